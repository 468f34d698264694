package composer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/ffmpeg"
	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds one composition process.
const DefaultTimeout = 600 * time.Second

// CompositionError reports a failed render together with the transcoder's
// diagnostic output.
type CompositionError struct {
	Output      string
	Diagnostics string
	Err         error
}

func (e *CompositionError) Error() string {
	msg := fmt.Sprintf("compose %s: %v", e.Output, e.Err)
	if e.Diagnostics != "" {
		msg += ": " + logging.Truncate(e.Diagnostics, 512)
	}
	return msg
}

func (e *CompositionError) Unwrap() error { return e.Err }

// Executor renders a Plan with a single transcoder invocation.
type Executor struct {
	engine   ffmpeg.Engine
	encoding ffmpeg.Encoding
	timeout  time.Duration
	log      *logrus.Entry
}

func NewExecutor(engine ffmpeg.Engine, encoding ffmpeg.Encoding, timeout time.Duration, log logrus.FieldLogger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		engine:   engine,
		encoding: encoding,
		timeout:  timeout,
		log:      logging.WithComponent(log, "composer"),
	}
}

// Execute renders plan over source into output. trim, when set, is applied
// as an input seek before the filter graph. The output path is returned only
// after a zero exit and a successful existence check.
func (e *Executor) Execute(ctx context.Context, plan *Plan, source, output string, trim *ffmpeg.Trim) (string, error) {
	if plan == nil || plan.Final == "" {
		return "", &CompositionError{Output: output, Err: errors.New("empty composition plan")}
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return "", &CompositionError{Output: output, Err: errors.Wrap(err, "create output directory")}
	}
	// A leftover file from an earlier render must not pass for this one.
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return "", &CompositionError{Output: output, Err: errors.Wrap(err, "remove stale output")}
	}

	log := e.log.WithFields(logrus.Fields{"source": source, "output": output, "stages": len(plan.Stages)})
	log.Debug(plan.FilterGraph())

	res, err := e.engine.Transcode(ctx, ffmpeg.TranscodeSpec{
		InputPath:     source,
		OutputPath:    output,
		Trim:          trim,
		FilterComplex: plan.FilterGraph(),
		Maps:          []string{"[" + plan.Final + "]", "0:a?"},
		Encoding:      e.encoding,
		Timeout:       e.timeout,
	})
	if err != nil {
		return "", &CompositionError{Output: output, Diagnostics: diagnostics(res, err), Err: err}
	}
	if res != nil && !res.IsSuccess() {
		return "", &CompositionError{
			Output:      output,
			Diagnostics: res.Stderr,
			Err:         errors.Errorf("transcoder exited with code %d", res.ExitCode),
		}
	}
	if err := ffmpeg.VerifyOutput(output); err != nil {
		return "", &CompositionError{Output: output, Err: err}
	}

	log.Info("reel composed")
	return output, nil
}

func diagnostics(res *ffmpeg.Result, err error) string {
	if res != nil && res.Stderr != "" {
		return res.Stderr
	}
	var te *ffmpeg.TranscodeError
	if errors.As(err, &te) {
		return te.Stderr
	}
	return ""
}
