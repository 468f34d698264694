// Package store persists source videos and their segments.
package store

import (
	"context"

	"github.com/ZacxDev/reel-splitter/internal/model"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict means the row was not in the expected status, so
	// another run owns it.
	ErrStatusConflict = errors.New("status changed concurrently")
)

// Store is the record store the pipeline depends on.
type Store interface {
	CreateVideo(ctx context.Context, v *model.SourceVideo) error
	GetVideo(ctx context.Context, id string) (*model.SourceVideo, error)
	// UpdateVideo applies upd only if the row is currently in status expect.
	UpdateVideo(ctx context.Context, id string, expect types.VideoStatus, upd model.VideoUpdate) error
	// CreateSegment records a segment, replacing any earlier record with
	// the same video and index.
	CreateSegment(ctx context.Context, s *model.Segment) error
	ListSegments(ctx context.Context, videoID string) ([]*model.Segment, error)
	Close() error
}

// interruptedStatuses are non-terminal states left behind by a crash.
var interruptedStatuses = []types.VideoStatus{
	types.StatusDownloading,
	types.StatusDownloaded,
	types.StatusProcessing,
}

const interruptedCause = "interrupted by restart"

func checkTransition(expect types.VideoStatus, upd model.VideoUpdate) error {
	if !types.CanTransition(expect, upd.Status) {
		return errors.Errorf("invalid status transition %s -> %s", expect, upd.Status)
	}
	return nil
}
