package pipeline

import (
	"context"
	"sync"

	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrAlreadyRunning is returned when a run for the same video is in flight
// in this process.
var ErrAlreadyRunning = errors.New("run already in progress")

// Runner executes orchestrator runs in the background, one goroutine per
// video. There is no global cap on concurrent runs.
type Runner struct {
	ctx  context.Context
	orch *Orchestrator
	log  *logrus.Entry

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

// NewRunner ties background runs to ctx; cancelling it aborts them.
func NewRunner(ctx context.Context, orch *Orchestrator, log logrus.FieldLogger) *Runner {
	return &Runner{
		ctx:    ctx,
		orch:   orch,
		log:    logging.WithComponent(log, "runner"),
		active: make(map[string]struct{}),
	}
}

// Start schedules a run for id.
func (r *Runner) Start(id string) error {
	if !r.claim(id) {
		return errors.Wrap(ErrAlreadyRunning, id)
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release(id)

		res, err := r.orch.Run(r.ctx, id)
		if err != nil {
			r.log.WithError(err).WithField("video_id", id).Warn("run not started")
			return
		}
		r.log.WithFields(logrus.Fields{
			"video_id": id,
			"status":   res.Status,
			"segments": res.SegmentCount,
		}).Info("run finished")
	}()
	return nil
}

// Retry resets a failed video and schedules a new run.
func (r *Runner) Retry(id string) error {
	if r.Active(id) {
		return errors.Wrap(ErrAlreadyRunning, id)
	}
	if err := r.orch.Reset(r.ctx, id); err != nil {
		return err
	}
	return r.Start(id)
}

// Active reports whether a run for id is in flight.
func (r *Runner) Active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}

// Wait blocks until every scheduled run has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; ok {
		return false
	}
	r.active[id] = struct{}{}
	return true
}

func (r *Runner) release(id string) {
	r.mu.Lock()
	delete(r.active, id)
	r.mu.Unlock()
}
