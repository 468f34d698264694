package api

import (
	"github.com/ZacxDev/reel-splitter/internal/composer"
	"github.com/ZacxDev/reel-splitter/internal/frame"
	"github.com/ZacxDev/reel-splitter/internal/model"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptime_s"`
}

type SubmitVideoRequest struct {
	SourceURL string `json:"source_url" validate:"required"`
}

type SubmitVideoResponse struct {
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
}

type SegmentsResponse struct {
	VideoID  string           `json:"video_id"`
	Segments []*model.Segment `json:"segments"`
}

type RenderRequest struct {
	VideoID      string             `json:"video_id" validate:"required_without=SourcePath"`
	SegmentIndex *int               `json:"segment_index" validate:"omitempty,min=0"`
	SourcePath   string             `json:"source_path"`
	Layout       string             `json:"layout" validate:"required"`
	Captions     []composer.Caption `json:"captions" validate:"max=2,dive"`
	Shadow       *float64           `json:"shadow" validate:"omitempty,min=0,max=1"`
	ColorOverlay *float64           `json:"color_overlay"`
	StartTime    *float64           `json:"start_time" validate:"omitempty,min=0"`
	Duration     *float64           `json:"duration" validate:"omitempty,gt=0"`
	OutputName   string             `json:"output_name" validate:"max=120"`
}

type RenderResponse struct {
	OutputPath string `json:"output_path"`
	Layout     string `json:"layout"`
}

type ZoneResponse struct {
	StartY int `json:"start_y"`
	EndY   int `json:"end_y"`
}

type LayoutResponse struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Background  string       `json:"background"`
	VideoY      int          `json:"video_y"`
	VideoHeight int          `json:"video_height"`
	Divider     bool         `json:"divider"`
	Top         ZoneResponse `json:"top_zone"`
	Bottom      ZoneResponse `json:"bottom_zone"`
}

type LayoutsResponse struct {
	Layouts []LayoutResponse `json:"layouts"`
}

func LayoutToResponse(l frame.Layout) LayoutResponse {
	return LayoutResponse{
		ID:          string(l.ID),
		Name:        l.Name,
		Description: l.Description,
		Background:  l.Background,
		VideoY:      l.VideoY,
		VideoHeight: l.VideoHeight,
		Divider:     l.Divider.Enabled,
		Top:         ZoneResponse{StartY: l.Top.StartY, EndY: l.Top.EndY},
		Bottom:      ZoneResponse{StartY: l.Bottom.StartY, EndY: l.Bottom.EndY},
	}
}
