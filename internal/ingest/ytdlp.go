package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// YTDLP downloads hosted videos with the yt-dlp command line tool.
type YTDLP struct {
	bin     string
	dataDir string
	timeout time.Duration
	log     *logrus.Entry
}

func NewYTDLP(bin, dataDir string, timeout time.Duration, log logrus.FieldLogger) *YTDLP {
	if bin == "" {
		bin = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &YTDLP{bin: bin, dataDir: dataDir, timeout: timeout, log: logging.WithComponent(log, "ytdlp")}
}

type ytdlpInfo struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	Filename    string  `json:"_filename"`
	Requested   []struct {
		Filepath string `json:"filepath"`
	} `json:"requested_downloads"`
	Subtitles map[string]subtitleFile `json:"requested_subtitles"`
}

func (y *YTDLP) Download(ctx context.Context, sourceURL, idHint string) (*Result, error) {
	dir := filepath.Join(y.dataDir, idHint)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &IngestionError{Source: sourceURL, Err: errors.Wrap(err, "create download directory")}
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.bin,
		"--no-playlist",
		"--no-progress",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b",
		"--merge-output-format", "mp4",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", "en.*",
		"--sub-format", "vtt",
		"-o", filepath.Join(dir, "source.%(ext)s"),
		"--dump-json",
		"--no-simulate",
		sourceURL,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		y.log.WithError(err).WithField("stderr_tail", logging.Truncate(stderr.String(), 512)).Warn("download failed")
		return nil, &IngestionError{Source: sourceURL, Err: errors.Wrap(err, strings.TrimSpace(logging.Truncate(stderr.String(), 512)))}
	}

	res, subs, err := parseInfo(stdout.Bytes(), filepath.Join(dir, "source.mp4"))
	if err != nil {
		return nil, &IngestionError{Source: sourceURL, Err: err}
	}
	if subs != "" {
		// A missing transcript never fails the download.
		if res.Transcript, err = transcriptFromVTT(subs); err != nil {
			y.log.WithError(err).WithField("subtitles", subs).Warn("transcript unavailable")
		}
	}
	y.log.WithFields(logrus.Fields{
		"title":       res.Title,
		"duration":    res.Duration,
		"path":        res.LocalPath,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("download complete")
	return res, nil
}

// parseInfo reads the last JSON document yt-dlp printed. It also returns
// the path of the subtitle track yt-dlp wrote, if any.
func parseInfo(out []byte, fallbackPath string) (*Result, string, error) {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 || len(lines[len(lines)-1]) == 0 {
		return nil, "", errors.New("yt-dlp printed no metadata")
	}
	var info ytdlpInfo
	if err := json.Unmarshal(lines[len(lines)-1], &info); err != nil {
		return nil, "", errors.Wrap(err, "decode yt-dlp metadata")
	}

	path := fallbackPath
	switch {
	case len(info.Requested) > 0 && info.Requested[0].Filepath != "":
		path = info.Requested[0].Filepath
	case info.Filename != "":
		path = info.Filename
	}
	if _, err := os.Stat(path); err != nil {
		return nil, "", errors.Wrap(err, "downloaded file")
	}

	return &Result{
		Title:        info.Title,
		Description:  info.Description,
		Duration:     info.Duration,
		ThumbnailURL: info.Thumbnail,
		LocalPath:    path,
	}, pickSubtitles(info.Subtitles), nil
}
