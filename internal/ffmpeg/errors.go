package ffmpeg

import (
	"fmt"

	"github.com/ZacxDev/reel-splitter/internal/logging"
)

// ProbeError means the duration or stream layout of a file could not be read.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// TranscodeError covers a nonzero exit, a timeout, or a missing output file.
type TranscodeError struct {
	Output   string
	ExitCode int
	TimedOut bool
	Missing  bool
	Stderr   string
	Err      error
}

func (e *TranscodeError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("transcode %s: timed out", e.Output)
	case e.Missing:
		return fmt.Sprintf("transcode %s: output missing: %v", e.Output, e.Err)
	}
	msg := fmt.Sprintf("transcode %s: exit code %d", e.Output, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + logging.Truncate(e.Stderr, 512)
	}
	return msg
}

func (e *TranscodeError) Unwrap() error { return e.Err }
