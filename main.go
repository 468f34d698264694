package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/api"
	"github.com/ZacxDev/reel-splitter/internal/frame"
	"github.com/ZacxDev/reel-splitter/internal/pipeline"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/ZacxDev/reel-splitter/pkg/videoprocessor"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "reel-splitter",
		Short: "Turn long-form videos into vertical reels",
		Long: `reel-splitter cuts long-form videos into short segments and composes
vertical 1080x1920 reels with captions above and below the video.

Examples:
  # Split a video into 30-second chunks
  reel-splitter split -i talk.mp4 -o ./chunks

  # Compose a reel with captions
  reel-splitter compose -i chunk.mp4 -o reel.mp4 --layout divider_frame --top "Wait for it"

  # Download, segment and record a video
  reel-splitter process https://www.youtube.com/watch?v=abc123`,
		SilenceUsage: true,
	}

	splitCmd = &cobra.Command{
		Use:   "split",
		Short: "Split a video into smaller chunks",
		Long: fmt.Sprintf(`Split a video file into consecutive chunks encoded for a target platform.

Supported platforms:
%s
Example:
  reel-splitter split -i input.mp4 -o ./output -d 30 -t tiktok`,
			formatList(videoprocessor.GetSupportedPlatforms())),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			inputPath, _ := cmd.Flags().GetString("input")
			outputDir, _ := cmd.Flags().GetString("output")
			duration, _ := cmd.Flags().GetInt("duration")
			targetPlatform, _ := cmd.Flags().GetString("target-platform")
			if targetPlatform == "" {
				targetPlatform = cfg.Platform
			}
			if duration <= 0 {
				duration = cfg.ChunkDuration
			}

			segs, err := videoprocessor.SplitVideo(cmd.Context(), &videoprocessor.VideoSplitterOptions{
				InputPath:      inputPath,
				OutputDir:      outputDir,
				ChunkDuration:  duration,
				MinDuration:    cfg.MinSegmentDuration,
				TargetPlatform: targetPlatform,
				FPS:            cfg.FPS,
				Tools:          tools(cfg),
				Logger:         log,
			})
			if err != nil {
				return err
			}
			for _, s := range segs {
				fmt.Printf("%03d  %4ds - %4ds  %s\n", s.Index, s.Start, s.End, s.Path)
			}
			return nil
		},
	}

	composeCmd = &cobra.Command{
		Use:   "compose",
		Short: "Compose a vertical reel from a clip",
		Long: fmt.Sprintf(`Place a clip inside a 1080x1920 frame layout and burn captions into the
zones above and below it.

Supported layouts:
%s
Example:
  reel-splitter compose -i chunk.mp4 -o reel.mp4 --layout center_strip --top "Hook" --bottom "Follow for more"`,
			formatList(videoprocessor.GetSupportedLayouts())),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			opts := &videoprocessor.ReelOptions{
				TargetPlatform: cfg.Platform,
				FontFile:       cfg.FontFile,
				FPS:            cfg.FPS,
				Timeout:        cfg.ComposeTimeout,
				Tools:          tools(cfg),
				Logger:         log,
			}
			opts.InputPath, _ = flags.GetString("input")
			opts.OutputPath, _ = flags.GetString("output")
			opts.Layout, _ = flags.GetString("layout")
			opts.TopText, _ = flags.GetString("top")
			opts.BottomText, _ = flags.GetString("bottom")
			opts.StartTime, _ = flags.GetFloat64("start")
			opts.Duration, _ = flags.GetFloat64("duration")
			if flags.Changed("shadow") {
				v, _ := flags.GetFloat64("shadow")
				opts.Shadow = &v
			}
			if flags.Changed("overlay") {
				v, _ := flags.GetFloat64("overlay")
				opts.ColorOverlay = &v
			}

			out, err := videoprocessor.ComposeReel(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}

	processCmd = &cobra.Command{
		Use:   "process <source-url>",
		Short: "Download, segment and record a source video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.orch.Submit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := a.orch.Run(cmd.Context(), v.ID)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}

	retryCmd = &cobra.Command{
		Use:   "retry <video-id>",
		Short: "Re-run a failed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.orch.Retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}

	layoutsCmd = &cobra.Command{
		Use:   "layouts",
		Short: "List the frame layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVIDEO Y\tDIVIDER\tDESCRIPTION")
			for _, l := range frame.All() {
				fmt.Fprintf(w, "%s\t%d\t%t\t%s\n", l.ID, l.VideoY, l.Divider.Enabled, l.Description)
			}
			return w.Flush()
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	}
)

func serve(ctx context.Context, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner := pipeline.NewRunner(ctx, a.orch, a.log)
	server := api.NewServer(api.ServerConfig{
		Addr:         a.cfg.HTTP.Addr,
		Store:        a.store,
		Orchestrator: a.orch,
		Runner:       runner,
		Composer:     a.composer,
		OutputDir:    a.cfg.OutputDir,
		OutputFormat: a.platform.GetOutputFormat(),
		Logger:       a.log,
		StartTime:    time.Now(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "http server")
		}
	}

	a.log.Info("initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Error("failed to shutdown HTTP server")
	}

	// In-flight runs are cancelled and land in FAILED.
	cancel()
	runner.Wait()
	a.log.Info("shutdown complete")
	return nil
}

func printResult(res *pipeline.RunResult) error {
	fmt.Printf("video %s: %s", res.VideoID, res.Status)
	if res.Status == types.StatusCompleted {
		fmt.Printf(" (%d segments)\n", res.SegmentCount)
		return nil
	}
	fmt.Println()
	return errors.New(res.Error)
}

func formatList(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s\n", item))
	}
	return sb.String()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Split command flags
	splitCmd.Flags().StringP("input", "i", "", "Input video file")
	splitCmd.Flags().StringP("output", "o", "", "Output directory")
	splitCmd.Flags().IntP("duration", "d", 0, "Duration of each chunk in seconds (default from config)")
	splitCmd.Flags().StringP("target-platform", "t", "",
		fmt.Sprintf("Target platform (%s)", strings.Join(videoprocessor.GetSupportedPlatforms(), ", ")))

	splitCmd.MarkFlagRequired("input")
	splitCmd.MarkFlagRequired("output")

	// Compose command flags
	composeCmd.Flags().StringP("input", "i", "", "Input clip")
	composeCmd.Flags().StringP("output", "o", "", "Output reel path")
	composeCmd.Flags().StringP("layout", "l", string(types.LayoutCenterStrip),
		fmt.Sprintf("Frame layout (%s)", strings.Join(videoprocessor.GetSupportedLayouts(), ", ")))
	composeCmd.Flags().String("top", "", "Caption for the top zone")
	composeCmd.Flags().String("bottom", "", "Caption for the bottom zone")
	composeCmd.Flags().Float64("shadow", 0.5, "Caption shadow opacity (0-1)")
	composeCmd.Flags().Float64("overlay", 0, "Colour overlay opacity (0-1)")
	composeCmd.Flags().Float64("start", 0, "Start offset in seconds")
	composeCmd.Flags().Float64("duration", 0, "Duration in seconds (0 renders to the end)")

	composeCmd.MarkFlagRequired("input")
	composeCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(splitCmd, composeCmd, processCmd, retryCmd, layoutsCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
