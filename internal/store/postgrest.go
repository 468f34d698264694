package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/internal/model"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	postgrest "github.com/supabase-community/postgrest-go"
	"golang.org/x/exp/slices"
)

const (
	videosTable   = "source_videos"
	segmentsTable = "segments"
)

// PostgREST stores records in a Supabase (PostgREST) database using the
// same table layout as the SQLite store.
type PostgREST struct {
	client *postgrest.Client
	log    *logrus.Entry
}

// OpenPostgREST connects to baseURL, the project URL without /rest/v1.
func OpenPostgREST(baseURL, key string, log logrus.FieldLogger) (*PostgREST, error) {
	if baseURL == "" || key == "" {
		return nil, errors.New("postgrest store requires a URL and a service key")
	}
	client := postgrest.NewClient(baseURL+"/rest/v1", "", map[string]string{
		"apikey":        key,
		"Authorization": fmt.Sprintf("Bearer %s", key),
	})
	if client.ClientError != nil {
		return nil, errors.Wrap(client.ClientError, "initialize postgrest client")
	}
	return &PostgREST{client: client, log: logging.WithComponent(log, "store")}, nil
}

func (p *PostgREST) Close() error { return nil }

func (p *PostgREST) CreateVideo(ctx context.Context, v *model.SourceVideo) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = types.StatusUploaded
	}
	ts := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = ts, ts

	var rows []model.SourceVideo
	if _, err := p.client.From(videosTable).Insert(v, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return errors.Wrap(err, "insert source video")
	}
	if len(rows) == 0 {
		return errors.Errorf("no record returned after insert, id: %s", v.ID)
	}
	return nil
}

func (p *PostgREST) GetVideo(ctx context.Context, id string) (*model.SourceVideo, error) {
	var rows []model.SourceVideo
	if _, err := p.client.From(videosTable).Select("*", "", false).Eq("id", id).ExecuteTo(&rows); err != nil {
		return nil, errors.Wrap(err, "select source video")
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "video %s", id)
	}
	return &rows[0], nil
}

// UpdateVideo filters on both id and status so PostgREST performs the
// compare-and-set in one statement.
func (p *PostgREST) UpdateVideo(ctx context.Context, id string, expect types.VideoStatus, upd model.VideoUpdate) error {
	if err := checkTransition(expect, upd); err != nil {
		return err
	}

	data := map[string]interface{}{
		"status":     string(upd.Status),
		"updated_at": time.Now().UTC(),
	}
	if upd.ErrorMessage != nil {
		data["error_message"] = *upd.ErrorMessage
	}
	if upd.Title != nil {
		data["title"] = *upd.Title
	}
	if upd.Description != nil {
		data["description"] = *upd.Description
	}
	if upd.ThumbnailURL != nil {
		data["thumbnail_url"] = *upd.ThumbnailURL
	}
	if upd.Transcript != nil {
		data["transcript"] = *upd.Transcript
	}
	if upd.LocalPath != nil {
		data["local_path"] = *upd.LocalPath
	}
	if upd.Duration != nil {
		data["duration"] = *upd.Duration
	}

	var rows []model.SourceVideo
	_, err := p.client.From(videosTable).
		Update(data, "representation", "").
		Eq("id", id).
		Eq("status", string(expect)).
		ExecuteTo(&rows)
	if err != nil {
		return errors.Wrap(err, "update source video")
	}
	if len(rows) > 0 {
		return nil
	}
	if _, err := p.GetVideo(ctx, id); err != nil {
		return err
	}
	return errors.Wrapf(ErrStatusConflict, "video %s is no longer %s", id, expect)
}

func (p *PostgREST) CreateSegment(ctx context.Context, seg *model.Segment) error {
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	seg.CreatedAt = time.Now().UTC()

	var rows []model.Segment
	_, err := p.client.From(segmentsTable).
		Insert(seg, true, "video_id,idx", "representation", "").
		ExecuteTo(&rows)
	return errors.Wrapf(err, "insert segment %d", seg.Index)
}

func (p *PostgREST) ListSegments(ctx context.Context, videoID string) ([]*model.Segment, error) {
	var rows []model.Segment
	_, err := p.client.From(segmentsTable).
		Select("*", "", false).
		Eq("video_id", videoID).
		Order("idx", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, errors.Wrap(err, "select segments")
	}
	slices.SortFunc(rows, func(a, b model.Segment) int { return a.Index - b.Index })

	out := make([]*model.Segment, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}
