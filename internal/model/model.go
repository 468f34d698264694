package model

import (
	"time"

	"github.com/ZacxDev/reel-splitter/pkg/types"
)

// SourceVideo is one long-form input and its processing state.
type SourceVideo struct {
	ID           string            `json:"id"`
	SourceURL    string            `json:"source_url"`
	Title        string            `json:"title,omitempty"`
	Description  string            `json:"description,omitempty"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	Transcript   string            `json:"transcript,omitempty"`
	LocalPath    string            `json:"local_path,omitempty"`
	Duration     float64           `json:"duration"`
	Status       types.VideoStatus `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// VideoUpdate carries the fields a status transition writes. Nil pointers
// are left unchanged.
type VideoUpdate struct {
	Status       types.VideoStatus
	ErrorMessage *string
	Title        *string
	Description  *string
	ThumbnailURL *string
	Transcript   *string
	LocalPath    *string
	Duration     *float64
}

// Segment is an immutable slice of a SourceVideo.
type Segment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Index     int       `json:"idx"`
	Start     int       `json:"start_time"`
	End       int       `json:"end_time"`
	Duration  int       `json:"duration"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}

// String returns a pointer to s, for VideoUpdate fields.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
