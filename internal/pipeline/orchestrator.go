// Package pipeline drives one source video through ingest, segmentation
// and persistence, recording each phase in the store.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/ingest"
	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/internal/model"
	"github.com/ZacxDev/reel-splitter/internal/processor"
	"github.com/ZacxDev/reel-splitter/internal/store"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const storeWriteTimeout = 10 * time.Second

// Splitter cuts a local file into segments under outDir.
type Splitter interface {
	Split(ctx context.Context, source, outDir string) ([]processor.Segment, error)
}

// Config bounds each phase and names where segments are written.
type Config struct {
	OutputDir      string
	IngestTimeout  time.Duration
	SegmentTimeout time.Duration
}

// RunResult is the outcome of one run. Failures of the run itself are
// reported here, not as an error.
type RunResult struct {
	VideoID      string
	Status       types.VideoStatus
	SegmentCount int
	Error        string
}

type Orchestrator struct {
	store    store.Store
	ingester ingest.Ingester
	splitter Splitter
	cfg      Config
	log      *logrus.Entry
}

func NewOrchestrator(st store.Store, ing ingest.Ingester, sp Splitter, cfg Config, log logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		ingester: ing,
		splitter: sp,
		cfg:      cfg,
		log:      logging.WithComponent(log, "pipeline"),
	}
}

// Submit records a new source video in UPLOADED.
func (o *Orchestrator) Submit(ctx context.Context, sourceURL string) (*model.SourceVideo, error) {
	v := &model.SourceVideo{SourceURL: sourceURL, Status: types.StatusUploaded}
	if err := o.store.CreateVideo(ctx, v); err != nil {
		return nil, err
	}
	o.log.WithFields(logrus.Fields{"video_id": v.ID, "source": sourceURL}).Info("video submitted")
	return v, nil
}

// SegmentDir is where segments of video id are written.
func (o *Orchestrator) SegmentDir(id string) string {
	return filepath.Join(o.cfg.OutputDir, id, "chunks")
}

// Run processes video id from UPLOADED to COMPLETED or FAILED. The only
// errors returned are store.ErrNotFound and store.ErrStatusConflict, both
// raised before the run has changed anything.
func (o *Orchestrator) Run(ctx context.Context, id string) (*RunResult, error) {
	// The lookup and the lease ignore cancellation of ctx, so a run that is
	// cancelled before it starts still ends in FAILED.
	lctx, lcancel := storeContext(ctx)
	defer lcancel()

	v, err := o.store.GetVideo(lctx, id)
	if err != nil {
		return nil, err
	}
	log := o.log.WithField("video_id", id)

	// The UPLOADED -> DOWNLOADING write is the lease: a concurrent run for
	// the same id loses here.
	if err := o.store.UpdateVideo(lctx, id, types.StatusUploaded, model.VideoUpdate{Status: types.StatusDownloading}); err != nil {
		return nil, err
	}
	r := &run{o: o, id: id, status: types.StatusDownloading, log: log}
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, errors.Wrap(err, "cancelled before ingest"))
	}
	log.Info("run started")

	ictx, cancel := phaseContext(ctx, o.cfg.IngestTimeout)
	res, err := o.ingester.Download(ictx, v.SourceURL, id)
	cancel()
	if err == nil {
		err = res.Validate()
	}
	if err != nil {
		var ie *ingest.IngestionError
		if !errors.As(err, &ie) {
			err = &ingest.IngestionError{Source: v.SourceURL, Err: err}
		}
		return r.fail(ctx, err)
	}

	if err := r.advance(ctx, types.StatusDownloaded, model.VideoUpdate{
		Title:        model.String(res.Title),
		Description:  model.String(res.Description),
		ThumbnailURL: model.String(res.ThumbnailURL),
		Transcript:   model.String(res.Transcript),
		LocalPath:    model.String(res.LocalPath),
		Duration:     model.Float(res.Duration),
	}); err != nil {
		return r.fail(ctx, err)
	}

	if err := r.advance(ctx, types.StatusProcessing, model.VideoUpdate{}); err != nil {
		return r.fail(ctx, err)
	}

	sctx, cancel := phaseContext(ctx, o.cfg.SegmentTimeout)
	segs, err := o.splitter.Split(sctx, res.LocalPath, o.SegmentDir(id))
	cancel()
	if err != nil {
		return r.fail(ctx, err)
	}

	for _, s := range segs {
		if err := o.store.CreateSegment(ctx, &model.Segment{
			VideoID:  id,
			Index:    s.Index,
			Start:    s.Start,
			End:      s.End,
			Duration: s.Duration,
			FilePath: s.Path,
		}); err != nil {
			return r.fail(ctx, err)
		}
	}

	if err := r.advance(ctx, types.StatusCompleted, model.VideoUpdate{ErrorMessage: model.String("")}); err != nil {
		return r.fail(ctx, err)
	}
	log.WithField("segments", len(segs)).Info("run completed")
	return &RunResult{VideoID: id, Status: types.StatusCompleted, SegmentCount: len(segs)}, nil
}

// Reset re-arms a FAILED video so it can run again. It is the only retry
// path; nothing retries automatically.
func (o *Orchestrator) Reset(ctx context.Context, id string) error {
	return o.store.UpdateVideo(ctx, id, types.StatusFailed, model.VideoUpdate{
		Status:       types.StatusUploaded,
		ErrorMessage: model.String(""),
	})
}

// Retry resets a failed video and runs it again synchronously.
func (o *Orchestrator) Retry(ctx context.Context, id string) (*RunResult, error) {
	if err := o.Reset(ctx, id); err != nil {
		return nil, err
	}
	return o.Run(ctx, id)
}

type run struct {
	o      *Orchestrator
	id     string
	status types.VideoStatus
	log    *logrus.Entry
}

func (r *run) advance(ctx context.Context, to types.VideoStatus, upd model.VideoUpdate) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	upd.Status = to
	if err := r.o.store.UpdateVideo(ctx, r.id, r.status, upd); err != nil {
		return errors.Wrapf(err, "transition to %s", to)
	}
	r.log.WithFields(logrus.Fields{"from": r.status, "to": to}).Info("status changed")
	r.status = to
	return nil
}

// fail records cause and ends the run. The write ignores cancellation of
// ctx so an aborted run still lands in FAILED.
func (r *run) fail(ctx context.Context, cause error) (*RunResult, error) {
	msg := cause.Error()
	wctx, cancel := storeContext(ctx)
	defer cancel()

	err := r.o.store.UpdateVideo(wctx, r.id, r.status, model.VideoUpdate{
		Status:       types.StatusFailed,
		ErrorMessage: model.String(msg),
	})
	if err != nil {
		r.log.WithError(err).Error("failed to record run failure")
	}
	r.log.WithFields(logrus.Fields{"phase": r.status, "cause": msg}).Warn("run failed")
	return &RunResult{VideoID: r.id, Status: types.StatusFailed, Error: msg}, nil
}

func phaseContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
}
