package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, ".", "reels.yaml", `
ffmpeg_path: /opt/ffmpeg
chunk_duration: 45
compose_timeout: 2m
log_format: json
store:
  driver: postgrest
  postgrest_url: https://db.example.com
  postgrest_key: secret
http:
  addr: ":9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FFmpegPath != "/opt/ffmpeg" || cfg.ChunkDuration != 45 || cfg.LogFormat != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ComposeTimeout != 2*time.Minute {
		t.Errorf("ComposeTimeout = %v", cfg.ComposeTimeout)
	}
	if cfg.Store.Driver != DriverPostgREST || cfg.Store.PostgRESTKey != "secret" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	// untouched keys keep their defaults
	if cfg.FFprobePath != "ffprobe" || cfg.ProbeTimeout != DefaultProbeTimeout {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, ".", "reels.yaml", "chunk_duration: 45\nfps: 24\n")
	t.Setenv("REELS_CHUNK_DURATION", "60")
	t.Setenv("REELS_SEGMENT_TIMEOUT", "90s")
	t.Setenv("REELS_OUTPUT_DIR", "/srv/reels")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ChunkDuration != 60 || cfg.FPS != 24 {
		t.Errorf("ChunkDuration = %d FPS = %d", cfg.ChunkDuration, cfg.FPS)
	}
	if cfg.SegmentTimeout != 90*time.Second || cfg.OutputDir != "/srv/reels" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	chdir(t, t.TempDir())
	writeFile(t, ".", ".env", "REELS_PLATFORM=tiktok\nREELS_LOG_LEVEL=debug\n")
	t.Setenv("REELS_LOG_LEVEL", "warn")
	// Registered so the value loaded from .env is removed after the test.
	t.Setenv("REELS_PLATFORM", "")
	os.Unsetenv("REELS_PLATFORM")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Platform != "tiktok" {
		t.Errorf("Platform = %q, want value from .env", cfg.Platform)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, environment should win over .env", cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{"bad yaml", "fps: [", nil, "parse config file"},
		{"bad fps", "fps: 0\n", nil, "FPS"},
		{"bad driver", "store:\n  driver: mysql\n", nil, "Driver"},
		{"postgrest without url", "store:\n  driver: postgrest\n  postgrest_key: k\n", nil, "PostgRESTURL"},
		{"min above chunk", "chunk_duration: 10\nmin_segment_duration: 20\n", nil, "MinSegmentDuration"},
		{"bad log level", "log_level: loud\n", nil, "LogLevel"},
		{"bad env int", "", map[string]string{"REELS_FPS": "thirty"}, "REELS_FPS"},
		{"bad env duration", "", map[string]string{"REELS_PROBE_TIMEOUT": "soon"}, "REELS_PROBE_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, ".", "reels.yaml", tt.yaml)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.Store.SQLitePath = filepath.Join(root, "db", "reels.db")

	if err := cfg.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{cfg.DataDir, cfg.OutputDir, filepath.Dir(cfg.Store.SQLitePath)} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("%s not created", dir)
		}
	}
}
