package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZacxDev/reel-splitter/internal/ffmpeg"
	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/internal/platform"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Segment describes one materialised chunk.
type Segment struct {
	Index    int
	Start    int
	End      int
	Duration int
	Path     string
}

// Config controls chunking and the output profile.
type Config struct {
	ChunkDuration int
	MinDuration   int
	FPS           int
	Platform      platform.Platform
}

// Splitter handles video splitting operations
type Splitter struct {
	engine ffmpeg.Engine
	cfg    Config
	log    *logrus.Entry
}

// NewSplitter creates a new video splitter
func NewSplitter(engine ffmpeg.Engine, cfg Config, log logrus.FieldLogger) (*Splitter, error) {
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = DefaultChunkDuration
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = DefaultMinDuration
	}
	if cfg.Platform == nil {
		p, err := platform.Get("")
		if err != nil {
			return nil, err
		}
		cfg.Platform = p
	}
	if err := platform.CheckDuration(cfg.Platform, cfg.ChunkDuration); err != nil {
		return nil, err
	}
	return &Splitter{engine: engine, cfg: cfg, log: logging.WithComponent(log, "splitter")}, nil
}

// Split probes source and transcodes each planned window into outDir,
// strictly in order. The first failure aborts the call.
func (s *Splitter) Split(ctx context.Context, source, outDir string) ([]Segment, error) {
	metadata, err := s.engine.Probe(ctx, source)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get video metadata")
	}

	windows := PlanSegments(metadata.Duration, s.cfg.ChunkDuration, s.cfg.MinDuration)
	s.log.WithFields(logrus.Fields{
		"source":   source,
		"duration": metadata.Duration,
		"segments": len(windows),
	}).Info("planned segments")

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.Wrap(err, "error creating output directory")
	}

	base := filepath.Base(source)
	base = sanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
	ext := "." + s.cfg.Platform.GetOutputFormat()
	width, height := s.cfg.Platform.GetMaxDimensions()
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		width, height, width, height)

	enc := platform.Encoding(s.cfg.Platform, s.cfg.FPS)
	enc.Preset = "fast"

	res := make([]Segment, 0, len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "segment %d", i)
		}

		outputPath := filepath.Join(outDir, fmt.Sprintf("%s_chunk_%03d%s", base, i, ext))
		log := s.log.WithFields(logrus.Fields{"segment_index": i, "start": w.Start, "end": w.End})
		log.Debug("processing chunk")

		result, err := s.engine.Transcode(ctx, ffmpeg.TranscodeSpec{
			InputPath:   source,
			OutputPath:  outputPath,
			Trim:        &ffmpeg.Trim{Start: float64(w.Start), Duration: w.Span},
			VideoFilter: filter,
			Encoding:    enc,
		})
		if err == nil && result != nil && !result.IsSuccess() {
			err = &ffmpeg.TranscodeError{Output: outputPath, ExitCode: result.ExitCode, TimedOut: result.TimedOut, Stderr: result.Stderr}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error processing chunk %d", i)
		}
		if err := ffmpeg.VerifyOutput(outputPath); err != nil {
			return nil, errors.Wrapf(err, "error processing chunk %d", i)
		}

		res = append(res, Segment{
			Index:    i,
			Start:    w.Start,
			End:      w.End,
			Duration: w.End - w.Start,
			Path:     outputPath,
		})
		log.Info("completed chunk")
	}

	return res, nil
}
