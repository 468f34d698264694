package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/internal/model"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/pkg/errors"
)

func openTestDB(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "reels.db")
	s, err := OpenSQLite(path, logging.Discard())
	if err != nil {
		t.Fatalf("OpenSQLite() = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteVideoRoundTrip(t *testing.T) {
	s, _ := openTestDB(t)
	ctx := context.Background()

	v := &model.SourceVideo{SourceURL: "https://example.com/watch?v=abc"}
	if err := s.CreateVideo(ctx, v); err != nil {
		t.Fatal(err)
	}
	if v.ID == "" || v.Status != types.StatusUploaded {
		t.Fatalf("CreateVideo did not fill defaults: %+v", v)
	}

	got, err := s.GetVideo(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceURL != v.SourceURL || got.Status != types.StatusUploaded || got.CreatedAt.IsZero() {
		t.Errorf("GetVideo() = %+v", got)
	}

	if _, err := s.GetVideo(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVideo(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteUpdateCompareAndSet(t *testing.T) {
	s, _ := openTestDB(t)
	ctx := context.Background()

	v := &model.SourceVideo{SourceURL: "file:///tmp/a.mp4"}
	if err := s.CreateVideo(ctx, v); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateVideo(ctx, v.ID, types.StatusUploaded, model.VideoUpdate{Status: types.StatusDownloading}); err != nil {
		t.Fatalf("first lease = %v", err)
	}
	err := s.UpdateVideo(ctx, v.ID, types.StatusUploaded, model.VideoUpdate{Status: types.StatusDownloading})
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("second lease error = %v, want ErrStatusConflict", err)
	}

	err = s.UpdateVideo(ctx, v.ID, types.StatusDownloading, model.VideoUpdate{
		Status:    types.StatusDownloaded,
		Title:     model.String("A title"),
		Duration:  model.Float(95.5),
		LocalPath: model.String("/tmp/a.mp4"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetVideo(ctx, v.ID)
	if got.Status != types.StatusDownloaded || got.Title != "A title" || got.Duration != 95.5 || got.LocalPath != "/tmp/a.mp4" {
		t.Errorf("after update = %+v", got)
	}

	if err := s.UpdateVideo(ctx, "missing", types.StatusUploaded, model.VideoUpdate{Status: types.StatusDownloading}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRejectsInvalidTransition(t *testing.T) {
	s, _ := openTestDB(t)
	ctx := context.Background()

	v := &model.SourceVideo{SourceURL: "file:///tmp/a.mp4"}
	s.CreateVideo(ctx, v)

	err := s.UpdateVideo(ctx, v.ID, types.StatusUploaded, model.VideoUpdate{Status: types.StatusCompleted})
	if err == nil {
		t.Fatal("UPLOADED -> COMPLETED should be rejected")
	}
}

func TestSQLiteSegments(t *testing.T) {
	s, _ := openTestDB(t)
	ctx := context.Background()

	v := &model.SourceVideo{SourceURL: "file:///tmp/a.mp4"}
	s.CreateVideo(ctx, v)

	for _, i := range []int{2, 0, 1} {
		seg := &model.Segment{VideoID: v.ID, Index: i, Start: i * 30, End: (i + 1) * 30, Duration: 30, FilePath: "chunk"}
		if err := s.CreateSegment(ctx, seg); err != nil {
			t.Fatal(err)
		}
	}
	// re-recording an index replaces it
	if err := s.CreateSegment(ctx, &model.Segment{VideoID: v.ID, Index: 1, Start: 30, End: 60, Duration: 30, FilePath: "retry"}); err != nil {
		t.Fatal(err)
	}

	segs, err := s.ListSegments(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	for i, seg := range segs {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
	}
	if segs[1].FilePath != "retry" {
		t.Errorf("segment 1 path = %s, want retry", segs[1].FilePath)
	}

	if err := s.CreateSegment(ctx, &model.Segment{VideoID: "nope", Index: 0}); err == nil {
		t.Error("expected foreign key violation for unknown video")
	}
}

func TestSQLiteMarksInterruptedRuns(t *testing.T) {
	s, path := openTestDB(t)
	ctx := context.Background()

	v := &model.SourceVideo{SourceURL: "file:///tmp/a.mp4"}
	s.CreateVideo(ctx, v)
	s.UpdateVideo(ctx, v.ID, types.StatusUploaded, model.VideoUpdate{Status: types.StatusDownloading})

	done := &model.SourceVideo{SourceURL: "file:///tmp/b.mp4"}
	s.CreateVideo(ctx, done)
	s.Close()

	reopened, err := OpenSQLite(path, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, _ := reopened.GetVideo(ctx, v.ID)
	if got.Status != types.StatusFailed || got.ErrorMessage != interruptedCause {
		t.Errorf("interrupted run = %s %q", got.Status, got.ErrorMessage)
	}
	untouched, _ := reopened.GetVideo(ctx, done.ID)
	if untouched.Status != types.StatusUploaded {
		t.Errorf("uploaded video changed to %s", untouched.Status)
	}
}
