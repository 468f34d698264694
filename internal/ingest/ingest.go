// Package ingest fetches a source video to local disk and reports its
// metadata.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Result is what a successful download reports. Title, Duration and
// LocalPath are mandatory.
type Result struct {
	Title        string
	Description  string
	Duration     float64
	ThumbnailURL string
	LocalPath    string
	Transcript   string
}

// Validate reports missing mandatory fields.
func (r *Result) Validate() error {
	if r == nil {
		return errors.New("no result")
	}
	var missing []string
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if r.Duration <= 0 {
		missing = append(missing, "duration")
	}
	if r.LocalPath == "" {
		missing = append(missing, "local path")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required metadata: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Ingester downloads sourceURL. idHint names the working directory.
type Ingester interface {
	Download(ctx context.Context, sourceURL, idHint string) (*Result, error)
}

// IngestionError means the source was unreachable or came back incomplete.
type IngestionError struct {
	Source string
	Err    error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Router sends local paths and file:// URLs to Local and everything with
// an http(s) scheme to Remote.
type Router struct {
	Local  Ingester
	Remote Ingester
}

func (r *Router) Download(ctx context.Context, sourceURL, idHint string) (*Result, error) {
	var target Ingester
	switch scheme(sourceURL) {
	case "", "file":
		target = r.Local
	case "http", "https":
		target = r.Remote
	}
	if target == nil {
		return nil, &IngestionError{Source: sourceURL, Err: errors.New("no ingester for source")}
	}

	res, err := target.Download(ctx, sourceURL, idHint)
	if err != nil {
		var ie *IngestionError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, &IngestionError{Source: sourceURL, Err: err}
	}
	if err := res.Validate(); err != nil {
		return nil, &IngestionError{Source: sourceURL, Err: err}
	}
	return res, nil
}

func scheme(source string) string {
	u, err := url.Parse(source)
	if err != nil || len(u.Scheme) < 2 {
		// single letter schemes are Windows drive letters
		return ""
	}
	return strings.ToLower(u.Scheme)
}
