package store

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/internal/model"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is the default Store, backed by a single local database file.
type SQLite struct {
	conn *sql.DB
	log  *logrus.Entry
}

// OpenSQLite opens (creating if needed) the database at path, applies
// migrations and fails any run a previous process left mid-flight.
func OpenSQLite(path string, log logrus.FieldLogger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create database directory")
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "execute %s", pragma)
		}
	}

	s := &SQLite{conn: conn, log: logging.WithComponent(log, "store")}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	if n, err := s.markInterrupted(context.Background()); err != nil {
		s.log.WithError(err).Warn("failed to mark interrupted runs")
	} else if n > 0 {
		s.log.WithField("count", n).Warn("marked interrupted runs as failed")
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return errors.Wrap(err, "read migrations")
	}
	for _, m := range entries {
		if m.IsDir() {
			continue
		}
		name := m.Name()
		if s.migrationApplied(name) {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return errors.Wrapf(err, "read migration %s", name)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return errors.Wrapf(err, "execute migration %s", name)
		}
		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return errors.Wrapf(err, "record migration %s", name)
		}
		s.log.WithField("name", name).Info("applied migration")
	}
	return nil
}

func (s *SQLite) migrationApplied(name string) bool {
	var applied int
	err := s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

func (s *SQLite) markInterrupted(ctx context.Context) (int64, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(interruptedStatuses)), ",")
	args := []interface{}{string(types.StatusFailed), interruptedCause, now()}
	for _, st := range interruptedStatuses {
		args = append(args, string(st))
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE source_videos SET status = ?, error_message = ?, updated_at = ? WHERE status IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLite) CreateVideo(ctx context.Context, v *model.SourceVideo) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = types.StatusUploaded
	}
	ts := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = ts, ts

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO source_videos (id, source_url, title, description, thumbnail_url, transcript,
			local_path, duration, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.SourceURL, nullString(v.Title), nullString(v.Description), nullString(v.ThumbnailURL),
		nullString(v.Transcript), nullString(v.LocalPath), v.Duration, string(v.Status),
		nullString(v.ErrorMessage), formatTime(ts), formatTime(ts))
	return errors.Wrap(err, "insert source video")
}

func (s *SQLite) GetVideo(ctx context.Context, id string) (*model.SourceVideo, error) {
	var (
		v                                             model.SourceVideo
		title, desc, thumb, transcript, local, errMsg sql.NullString
		status, created, updated                      string
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT id, source_url, title, description, thumbnail_url, transcript, local_path,
			duration, status, error_message, created_at, updated_at
		FROM source_videos WHERE id = ?`, id).
		Scan(&v.ID, &v.SourceURL, &title, &desc, &thumb, &transcript, &local,
			&v.Duration, &status, &errMsg, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "video %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select source video")
	}
	v.Title, v.Description, v.ThumbnailURL = title.String, desc.String, thumb.String
	v.Transcript, v.LocalPath, v.ErrorMessage = transcript.String, local.String, errMsg.String
	v.Status = types.VideoStatus(status)
	v.CreatedAt = parseTime(created)
	v.UpdatedAt = parseTime(updated)
	return &v, nil
}

func (s *SQLite) UpdateVideo(ctx context.Context, id string, expect types.VideoStatus, upd model.VideoUpdate) error {
	if err := checkTransition(expect, upd); err != nil {
		return err
	}

	sets := []string{"status = ?", "updated_at = ?"}
	args := []interface{}{string(upd.Status), now()}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.ErrorMessage != nil {
		add("error_message", nullString(*upd.ErrorMessage))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.ThumbnailURL != nil {
		add("thumbnail_url", *upd.ThumbnailURL)
	}
	if upd.Transcript != nil {
		add("transcript", *upd.Transcript)
	}
	if upd.LocalPath != nil {
		add("local_path", *upd.LocalPath)
	}
	if upd.Duration != nil {
		add("duration", *upd.Duration)
	}
	args = append(args, id, string(expect))

	res, err := s.conn.ExecContext(ctx,
		`UPDATE source_videos SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status = ?`, args...)
	if err != nil {
		return errors.Wrap(err, "update source video")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update source video")
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetVideo(ctx, id); err != nil {
		return err
	}
	return errors.Wrapf(ErrStatusConflict, "video %s is no longer %s", id, expect)
}

func (s *SQLite) CreateSegment(ctx context.Context, seg *model.Segment) error {
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	seg.CreatedAt = time.Now().UTC()
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO segments (id, video_id, idx, start_time, end_time, duration, file_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id, idx) DO UPDATE SET
			id = excluded.id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration = excluded.duration,
			file_path = excluded.file_path,
			created_at = excluded.created_at`,
		seg.ID, seg.VideoID, seg.Index, seg.Start, seg.End, seg.Duration, seg.FilePath, formatTime(seg.CreatedAt))
	return errors.Wrapf(err, "insert segment %d", seg.Index)
}

func (s *SQLite) ListSegments(ctx context.Context, videoID string) ([]*model.Segment, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, video_id, idx, start_time, end_time, duration, file_path, created_at
		FROM segments WHERE video_id = ? ORDER BY idx`, videoID)
	if err != nil {
		return nil, errors.Wrap(err, "select segments")
	}
	defer rows.Close()

	var out []*model.Segment
	for rows.Next() {
		var seg model.Segment
		var created string
		if err := rows.Scan(&seg.ID, &seg.VideoID, &seg.Index, &seg.Start, &seg.End,
			&seg.Duration, &seg.FilePath, &created); err != nil {
			return nil, errors.Wrap(err, "scan segment")
		}
		seg.CreatedAt = parseTime(created)
		out = append(out, &seg)
	}
	return out, errors.Wrap(rows.Err(), "iterate segments")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func now() string {
	return formatTime(time.Now().UTC())
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
