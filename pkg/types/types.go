package types

import "golang.org/x/exp/slices"

type ProcessingPlatform string

const (
	ProcessingPlatformInstagramReel ProcessingPlatform = "instagram-reel"
	ProcessingPlatformTikTok        ProcessingPlatform = "tiktok"
)

// LayoutID names one of the fixed frame layouts.
type LayoutID string

const (
	LayoutCenterStrip  LayoutID = "center_strip"
	LayoutDividerFrame LayoutID = "divider_frame"
	LayoutLowerAnchor  LayoutID = "lower_anchor"
)

// ZoneID names a caption safe zone.
type ZoneID string

const (
	ZoneTop    ZoneID = "top"
	ZoneBottom ZoneID = "bottom"
)

// VideoStatus is the persisted processing state of a source video.
type VideoStatus string

const (
	StatusUploaded    VideoStatus = "UPLOADED"
	StatusDownloading VideoStatus = "DOWNLOADING"
	StatusDownloaded  VideoStatus = "DOWNLOADED"
	StatusProcessing  VideoStatus = "PROCESSING"
	StatusCompleted   VideoStatus = "COMPLETED"
	StatusFailed      VideoStatus = "FAILED"
)

var transitions = map[VideoStatus][]VideoStatus{
	StatusUploaded:    {StatusDownloading, StatusFailed},
	StatusDownloading: {StatusDownloaded, StatusFailed},
	StatusDownloaded:  {StatusProcessing, StatusFailed},
	StatusProcessing:  {StatusCompleted, StatusFailed},
	// explicit retry re-arms a failed video
	StatusFailed: {StatusUploaded},
}

// Terminal reports whether no further pipeline transition leaves s.
func (s VideoStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the persisted enum values.
func (s VideoStatus) Valid() bool {
	_, ok := transitions[s]
	return ok || s == StatusCompleted
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to VideoStatus) bool {
	return slices.Contains(transitions[from], to)
}
