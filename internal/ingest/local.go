package ingest

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ZacxDev/reel-splitter/internal/ffmpeg"
	"github.com/pkg/errors"
)

// Local ingests files already on disk. The title defaults to the file name.
type Local struct {
	engine ffmpeg.Engine
}

func NewLocal(engine ffmpeg.Engine) *Local {
	return &Local{engine: engine}
}

func (l *Local) Download(ctx context.Context, sourceURL, idHint string) (*Result, error) {
	path := sourceURL
	if u, err := url.Parse(sourceURL); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &IngestionError{Source: sourceURL, Err: errors.WithStack(err)}
	}

	meta, err := l.engine.Probe(ctx, abs)
	if err != nil {
		return nil, &IngestionError{Source: sourceURL, Err: err}
	}

	base := filepath.Base(abs)
	return &Result{
		Title:     strings.TrimSuffix(base, filepath.Ext(base)),
		Duration:  meta.Duration,
		LocalPath: abs,
	}, nil
}
