// Package videoprocessor is the embeddable entry point: split a local video
// into platform-sized segments, or compose one vertical reel from a clip.
package videoprocessor

import (
	"context"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/composer"
	"github.com/ZacxDev/reel-splitter/internal/ffmpeg"
	"github.com/ZacxDev/reel-splitter/internal/frame"
	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/internal/platform"
	"github.com/ZacxDev/reel-splitter/internal/processor"
	"github.com/ZacxDev/reel-splitter/internal/textlayout"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Tools locates the external binaries. Empty fields fall back to PATH.
type Tools struct {
	FFmpegPath   string
	FFprobePath  string
	ProbeTimeout time.Duration
}

// VideoSplitterOptions defines options for splitting videos
type VideoSplitterOptions struct {
	InputPath      string
	OutputDir      string
	ChunkDuration  int
	MinDuration    int
	TargetPlatform string
	FPS            int
	Verbose        bool
	Tools          Tools
	Logger         logrus.FieldLogger
}

// ReelOptions defines one reel composition.
type ReelOptions struct {
	InputPath  string
	OutputPath string
	Layout     string
	TopText    string
	BottomText string

	// Shadow overrides the caption shadow opacity.
	Shadow *float64
	// ColorOverlay adds a colour mix at the given opacity.
	ColorOverlay *float64

	StartTime float64
	// Duration of zero renders to the end of the input.
	Duration float64

	TargetPlatform string
	FontFile       string
	FPS            int
	Timeout        time.Duration
	Verbose        bool
	Tools          Tools
	Logger         logrus.FieldLogger
}

// Segment is one file written by SplitVideo.
type Segment struct {
	Index    int
	Start    int
	End      int
	Duration int
	Path     string
}

// VideoMetadata is what a probe reports about a file.
type VideoMetadata struct {
	Duration float64
	Width    int
	Height   int
	Codec    string
	HasAudio bool
}

// GetSupportedPlatforms returns the output profile names, sorted.
func GetSupportedPlatforms() []string {
	return platform.GetSupportedPlatforms()
}

// GetSupportedLayouts returns the frame layout identifiers, sorted.
func GetSupportedLayouts() []string {
	return frame.IDs()
}

// SplitVideo cuts opts.InputPath into consecutive segments under
// opts.OutputDir.
func SplitVideo(ctx context.Context, opts *VideoSplitterOptions) ([]Segment, error) {
	if opts.InputPath == "" || opts.OutputDir == "" {
		return nil, errors.New("input path and output directory are required")
	}
	log := resolveLogger(opts.Logger, opts.Verbose)

	p, err := platform.Get(opts.TargetPlatform)
	if err != nil {
		return nil, err
	}
	splitter, err := processor.NewSplitter(newEngine(opts.Tools, log), processor.Config{
		ChunkDuration: opts.ChunkDuration,
		MinDuration:   opts.MinDuration,
		FPS:           opts.FPS,
		Platform:      p,
	}, log)
	if err != nil {
		return nil, err
	}

	segs, err := splitter.Split(ctx, opts.InputPath, opts.OutputDir)
	if err != nil {
		return nil, err
	}
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = Segment{Index: s.Index, Start: s.Start, End: s.End, Duration: s.Duration, Path: s.Path}
	}
	return out, nil
}

// ComposeReel renders opts.InputPath into a 1080x1920 reel and returns the
// output path.
func ComposeReel(ctx context.Context, opts *ReelOptions) (string, error) {
	if opts.InputPath == "" || opts.OutputPath == "" {
		return "", errors.New("input and output paths are required")
	}
	log := resolveLogger(opts.Logger, opts.Verbose)

	p, err := platform.Get(opts.TargetPlatform)
	if err != nil {
		return "", err
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}
	c := composer.New(
		composer.NewPlanner(textlayout.New(opts.FontFile), fps),
		composer.NewExecutor(newEngine(opts.Tools, log), platform.Encoding(p, fps), opts.Timeout, log),
		log,
	)

	var captions []composer.Caption
	if opts.TopText != "" {
		captions = append(captions, composer.Caption{Text: opts.TopText, Zone: types.ZoneTop})
	}
	if opts.BottomText != "" {
		captions = append(captions, composer.Caption{Text: opts.BottomText, Zone: types.ZoneBottom})
	}

	var trim *ffmpeg.Trim
	if opts.StartTime > 0 || opts.Duration > 0 {
		trim = &ffmpeg.Trim{Start: opts.StartTime, Duration: opts.Duration}
	}

	return c.Compose(ctx, composer.Request{
		Source:   opts.InputPath,
		Output:   ffmpeg.EnsureExtension(opts.OutputPath, "."+p.GetOutputFormat()),
		Layout:   types.LayoutID(opts.Layout),
		Captions: captions,
		Options:  composer.Options{Shadow: opts.Shadow, ColorOverlay: opts.ColorOverlay},
		Trim:     trim,
	})
}

// GetVideoMetadata probes a local file.
func GetVideoMetadata(ctx context.Context, inputPath string, tools Tools) (*VideoMetadata, error) {
	md, err := newEngine(tools, logging.Discard()).Probe(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	return &VideoMetadata{
		Duration: md.Duration,
		Width:    md.Width,
		Height:   md.Height,
		Codec:    md.Codec,
		HasAudio: md.HasAudio,
	}, nil
}

func newEngine(t Tools, log logrus.FieldLogger) ffmpeg.Engine {
	return ffmpeg.NewProcessor(ffmpeg.Config{
		FFmpegPath:   t.FFmpegPath,
		FFprobePath:  t.FFprobePath,
		ProbeTimeout: t.ProbeTimeout,
	}, log)
}

func resolveLogger(log logrus.FieldLogger, verbose bool) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}
