// Package processor cuts a source video into fixed-length vertical segments.
package processor

import (
	"regexp"
	"strings"
)

const (
	DefaultChunkDuration = 30
	DefaultMinDuration   = 10
)

// Window is a [Start, End) span in whole seconds. Span is the exact length
// to cut, which can exceed End-Start by a fraction for the final window.
type Window struct {
	Start int
	End   int
	Span  float64
}

// PlanSegments tiles [0, total) with chunk-second windows. A trailing
// remainder shorter than min is dropped.
func PlanSegments(total float64, chunk, min int) []Window {
	if chunk <= 0 || total <= 0 {
		return nil
	}
	var out []Window
	for start := 0.0; start < total; start += float64(chunk) {
		end := start + float64(chunk)
		if end > total {
			end = total
		}
		if end-start < float64(min) {
			break
		}
		out = append(out, Window{Start: int(start), End: int(end), Span: end - start})
	}
	return out
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9-_.]`)
	underscores = regexp.MustCompile(`_+`)
)

func sanitizeFilename(filename string) string {
	sanitized := strings.TrimSuffix(filename, ".mp4")
	sanitized = strings.TrimSuffix(sanitized, ".webm")
	sanitized = unsafeChars.ReplaceAllString(sanitized, "_")
	sanitized = underscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		return "video"
	}
	return sanitized
}

// SanitizeFilename is exported for callers naming reel outputs.
func SanitizeFilename(filename string) string {
	return sanitizeFilename(filename)
}
