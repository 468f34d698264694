package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const maxStderrBytes = 8 * 1024

var silenceOnce sync.Once

// Engine is the narrow boundary to the external transcoder. Segmentation
// and composition depend on it so tests can swap in a fake.
type Engine interface {
	Probe(ctx context.Context, path string) (*VideoMetadata, error)
	Transcode(ctx context.Context, spec TranscodeSpec) (*Result, error)
}

// Trim selects a window of the input before any filtering.
type Trim struct {
	Start    float64
	Duration float64
}

// Encoding holds the fixed output codec parameters.
type Encoding struct {
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	Preset       string
	CRF          int
	PixelFormat  string
	FrameRate    int
	FastStart    bool
}

// DefaultEncoding is H.264/AAC in a player-friendly pixel format.
func DefaultEncoding() Encoding {
	return Encoding{
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		AudioBitrate: "128k",
		Preset:       "medium",
		CRF:          23,
		PixelFormat:  "yuv420p",
		FrameRate:    30,
		FastStart:    true,
	}
}

// TranscodeSpec describes one transcoder invocation. Exactly one of
// FilterComplex or VideoFilter is normally set.
type TranscodeSpec struct {
	InputPath     string
	OutputPath    string
	Trim          *Trim
	FilterComplex string
	VideoFilter   string
	Maps          []string
	Encoding      Encoding
	// Timeout bounds the process wall clock. Zero means the processor default.
	Timeout time.Duration
}

// Result reports how the transcoder process ended.
type Result struct {
	ExitCode int
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

func (r *Result) IsSuccess() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Config configures a Processor.
type Config struct {
	FFmpegPath     string
	FFprobePath    string
	ProbeTimeout   time.Duration
	DefaultTimeout time.Duration
}

// Processor runs ffmpeg and ffprobe as subprocesses.
type Processor struct {
	cfg Config
	log *logrus.Entry
}

// NewProcessor creates a new FFmpeg processor
func NewProcessor(cfg Config, log logrus.FieldLogger) *Processor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 30 * time.Second
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 10 * time.Minute
	}
	// ffmpeg-go prints every compiled command through the standard logger.
	silenceOnce.Do(func() { ffmpeg.LogCompiledCommand = false })
	return &Processor{cfg: cfg, log: logging.WithComponent(log, "ffmpeg")}
}

// Probe reads container and stream metadata with ffprobe.
func (p *Processor) Probe(ctx context.Context, path string) (*VideoMetadata, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ProbeError{Path: path, Err: errors.WithStack(err)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.cfg.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxStderrBytes}

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &ProbeError{Path: path, Err: errors.Wrapf(err, "ffprobe: %s", strings.TrimSpace(stderr.String()))}
	}

	meta, err := ParseProbe(out)
	if err != nil {
		return nil, &ProbeError{Path: path, Err: err}
	}

	p.log.WithFields(logrus.Fields{
		"path":     path,
		"duration": meta.Duration,
		"width":    meta.Width,
		"height":   meta.Height,
		"codec":    meta.Codec,
	}).Debug("probed video")

	return meta, nil
}

// Transcode runs one ffmpeg process for spec. A nonzero exit or a timeout
// yields a *TranscodeError alongside the Result.
func (p *Processor) Transcode(ctx context.Context, spec TranscodeSpec) (*Result, error) {
	timeout := spec.Timeout
	if timeout == 0 {
		timeout = p.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	stream := newStream(ctx, spec).
		SetFfmpegPath(p.cfg.FFmpegPath).
		WithOutput(io.Discard).
		WithErrorOutput(&limitedWriter{w: &stderr, limit: maxStderrBytes})
	cmd := stream.Compile()
	cmd.WaitDelay = 5 * time.Second

	p.log.WithField("args", cmd.Args[1:]).Debug("executing ffmpeg")

	start := time.Now()
	err := cmd.Run()
	res := &Result{Stderr: stderr.String(), Duration: time.Since(start)}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
	}

	fields := logrus.Fields{
		"output":      spec.OutputPath,
		"exit_code":   res.ExitCode,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if !res.IsSuccess() || err != nil {
		fields["timed_out"] = res.TimedOut
		fields["stderr_tail"] = logging.Truncate(res.Stderr, 512)
		p.log.WithFields(fields).Warn("ffmpeg failed")
		if err == nil {
			err = ctx.Err()
		}
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}
		return res, &TranscodeError{
			Output:   spec.OutputPath,
			ExitCode: res.ExitCode,
			TimedOut: res.TimedOut,
			Stderr:   res.Stderr,
			Err:      errors.WithStack(err),
		}
	}
	p.log.WithFields(fields).Info("ffmpeg succeeded")
	return res, nil
}

// BuildArgs renders spec as an ffmpeg argument list.
func BuildArgs(spec TranscodeSpec) []string {
	return newStream(context.Background(), spec).GetArgs()
}

// newStream builds the ffmpeg-go output stream for spec, bound to ctx.
// Trim options are input options so seeking happens before decoding.
func newStream(ctx context.Context, spec TranscodeSpec) *ffmpeg.Stream {
	inputKwargs := ffmpeg.KwArgs{
		"hide_banner": "",
		"nostdin":     "",
	}
	if spec.Trim != nil {
		inputKwargs["ss"] = formatSeconds(spec.Trim.Start)
		if spec.Trim.Duration > 0 {
			inputKwargs["t"] = formatSeconds(spec.Trim.Duration)
		}
	}

	enc := spec.Encoding
	outputKwargs := ffmpeg.KwArgs{
		"c:v": enc.VideoCodec,
		"c:a": enc.AudioCodec,
	}
	if spec.FilterComplex != "" {
		outputKwargs["filter_complex"] = spec.FilterComplex
	}
	if spec.VideoFilter != "" {
		outputKwargs["vf"] = spec.VideoFilter
	}
	if len(spec.Maps) > 0 {
		outputKwargs["map"] = spec.Maps
	}
	if enc.AudioBitrate != "" {
		outputKwargs["b:a"] = enc.AudioBitrate
	}
	if enc.Preset != "" {
		outputKwargs["preset"] = enc.Preset
	}
	if enc.CRF > 0 {
		outputKwargs["crf"] = strconv.Itoa(enc.CRF)
	}
	if enc.PixelFormat != "" {
		outputKwargs["pix_fmt"] = enc.PixelFormat
	}
	if enc.FrameRate > 0 {
		outputKwargs["r"] = strconv.Itoa(enc.FrameRate)
	}
	if enc.FastStart {
		outputKwargs["movflags"] = "+faststart"
	}
	outputKwargs["threads"] = strconv.Itoa(GetOptimalThreadCount())

	in := ffmpeg.Input(spec.InputPath, inputKwargs)
	return ffmpeg.OutputContext(ctx, []*ffmpeg.Stream{in}, spec.OutputPath, outputKwargs).
		OverWriteOutput()
}

// VerifyOutput checks that a transcode that exited zero actually left a
// non-empty file behind.
func VerifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &TranscodeError{Output: path, Missing: true, Err: errors.WithStack(err)}
	}
	if info.Size() == 0 {
		return &TranscodeError{Output: path, Missing: true, Err: errors.New("output file is empty")}
	}
	return nil
}

func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	// Use 75% of available cores to prevent overload
	return int(math.Max(1, float64(cpuCount)*0.75))
}

// EnsureExtension replaces any known video extension with extension.
func EnsureExtension(filename, extension string) string {
	extensions := []string{".mp4", ".webm", ".mkv", ".avi", ".mov"}
	for _, ext := range extensions {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename + extension
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// limitedWriter keeps only the last limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
