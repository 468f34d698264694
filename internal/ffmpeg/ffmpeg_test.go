package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/pkg/errors"
)

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		duration  float64
		hasAudio  bool
		wantErr   bool
		wantWidth int
	}{
		{
			name:      "stream duration",
			json:      `{"streams":[{"codec_type":"video","codec_name":"h264","width":1920,"height":1080,"duration":"95.5"},{"codec_type":"audio"}],"format":{"duration":"96.0"}}`,
			duration:  95.5,
			hasAudio:  true,
			wantWidth: 1920,
		},
		{
			name:      "format duration fallback",
			json:      `{"streams":[{"codec_type":"video","codec_name":"vp9","width":1280,"height":720}],"format":{"duration":"42.25"}}`,
			duration:  42.25,
			wantWidth: 1280,
		},
		{
			name:      "frame count fallback",
			json:      `{"streams":[{"codec_type":"video","width":640,"height":360,"nb_frames":"300","r_frame_rate":"30/1"}],"format":{}}`,
			duration:  10,
			wantWidth: 640,
		},
		{
			name:    "no video stream",
			json:    `{"streams":[{"codec_type":"audio","duration":"10"}],"format":{"duration":"10"}}`,
			wantErr: true,
		},
		{
			name:    "no duration",
			json:    `{"streams":[{"codec_type":"video","r_frame_rate":"0/0"}],"format":{}}`,
			wantErr: true,
		},
		{
			name:    "garbage",
			json:    `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseProbe([]byte(tt.json))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProbe() = %v", err)
			}
			if meta.Duration != tt.duration {
				t.Errorf("Duration = %v, want %v", meta.Duration, tt.duration)
			}
			if meta.HasAudio != tt.hasAudio {
				t.Errorf("HasAudio = %v, want %v", meta.HasAudio, tt.hasAudio)
			}
			if meta.Width != tt.wantWidth {
				t.Errorf("Width = %d, want %d", meta.Width, tt.wantWidth)
			}
		})
	}
}

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(TranscodeSpec{
		InputPath:     "in.mp4",
		OutputPath:    "out.mp4",
		Trim:          &Trim{Start: 12.5, Duration: 30},
		FilterComplex: "[0:v]null[final]",
		Maps:          []string{"[final]", "0:a?"},
		Encoding:      DefaultEncoding(),
	})
	joined := strings.Join(args, " ")

	ss, in := indexOf(args, "-ss"), indexOf(args, "-i")
	if ss < 0 || in < 0 || ss > in {
		t.Fatalf("trim must precede input: %s", joined)
	}
	if args[ss+1] != "12.5" {
		t.Errorf("-ss value = %s", args[ss+1])
	}
	for _, want := range []string{
		"-filter_complex [0:v]null[final]",
		"-map [final]",
		"-map 0:a?",
		"-c:v libx264",
		"-c:a aac",
		"-pix_fmt yuv420p",
		"-movflags +faststart",
		"-r 30",
		"-crf 23",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if indexOf(args, "-y") < 0 {
		t.Errorf("args missing overwrite flag: %s", joined)
	}
	for _, flag := range []string{"-hide_banner", "-nostdin"} {
		if i := indexOf(args, flag); i < 0 || i > in {
			t.Errorf("%s must precede input: %s", flag, joined)
		}
	}
	out := indexOf(args, "out.mp4")
	if out < indexOf(args, "-c:v") {
		t.Errorf("output path must follow output options: %s", joined)
	}
	for _, a := range args[out+1:] {
		if a != "-y" {
			t.Errorf("unexpected option %q after output path: %s", a, joined)
		}
	}
}

func TestBuildArgsNoTrim(t *testing.T) {
	args := BuildArgs(TranscodeSpec{
		InputPath:   "in.mp4",
		OutputPath:  "out.mp4",
		VideoFilter: "scale=1080:1920",
		Encoding:    DefaultEncoding(),
	})
	if indexOf(args, "-ss") >= 0 || indexOf(args, "-t") >= 0 {
		t.Errorf("unexpected trim args: %v", args)
	}
	if i := indexOf(args, "-vf"); i < 0 || args[i+1] != "scale=1080:1920" {
		t.Errorf("missing -vf: %v", args)
	}
}

// fakeBinary writes an executable shell script standing in for ffmpeg.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscodeNonzeroExit(t *testing.T) {
	bin := fakeBinary(t, `echo "Invalid data found when processing input" >&2; exit 1`)
	p := NewProcessor(Config{FFmpegPath: bin}, logging.Discard())

	res, err := p.Transcode(context.Background(), TranscodeSpec{InputPath: "in.mp4", OutputPath: "out.mp4", Encoding: DefaultEncoding()})
	var te *TranscodeError
	if !errors.As(err, &te) {
		t.Fatalf("Transcode() error = %v, want *TranscodeError", err)
	}
	if te.ExitCode != 1 || res.ExitCode != 1 {
		t.Errorf("exit code = %d/%d, want 1", te.ExitCode, res.ExitCode)
	}
	if !strings.Contains(te.Stderr, "Invalid data") {
		t.Errorf("Stderr = %q", te.Stderr)
	}
}

func TestTranscodeOverwritesExistingOutput(t *testing.T) {
	bin := fakeBinary(t, `for a in "$@"; do [ "$a" = "-y" ] && exit 0; done
echo "File 'out.mp4' already exists. Exiting." >&2; exit 1`)
	p := NewProcessor(Config{FFmpegPath: bin}, logging.Discard())

	out := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(out, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Transcode(context.Background(), TranscodeSpec{InputPath: "in.mp4", OutputPath: out, Encoding: DefaultEncoding()}); err != nil {
		t.Fatalf("Transcode() error = %v", err)
	}
}

func TestTranscodeTimeout(t *testing.T) {
	bin := fakeBinary(t, `exec sleep 5`)
	p := NewProcessor(Config{FFmpegPath: bin}, logging.Discard())

	start := time.Now()
	_, err := p.Transcode(context.Background(), TranscodeSpec{
		InputPath:  "in.mp4",
		OutputPath: "out.mp4",
		Encoding:   DefaultEncoding(),
		Timeout:    100 * time.Millisecond,
	})
	var te *TranscodeError
	if !errors.As(err, &te) || !te.TimedOut {
		t.Fatalf("Transcode() error = %v, want timeout", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("timeout was not enforced")
	}
}

func TestTranscodeSuccess(t *testing.T) {
	bin := fakeBinary(t, `exit 0`)
	p := NewProcessor(Config{FFmpegPath: bin}, logging.Discard())

	res, err := p.Transcode(context.Background(), TranscodeSpec{InputPath: "in.mp4", OutputPath: "out.mp4", Encoding: DefaultEncoding()})
	if err != nil {
		t.Fatalf("Transcode() = %v", err)
	}
	if !res.IsSuccess() {
		t.Errorf("IsSuccess() = false")
	}
}

func TestProbeMissingFile(t *testing.T) {
	p := NewProcessor(Config{}, logging.Discard())
	_, err := p.Probe(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	var pe *ProbeError
	if !errors.As(err, &pe) {
		t.Fatalf("Probe() error = %v, want *ProbeError", err)
	}
}

func TestProbeUsesConfiguredBinary(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.mp4")
	if err := os.WriteFile(input, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	bin := fakeBinary(t, `echo '{"streams":[{"codec_type":"video","width":1920,"height":1080,"duration":"95"}],"format":{}}'`)
	p := NewProcessor(Config{FFprobePath: bin}, logging.Discard())

	meta, err := p.Probe(context.Background(), input)
	if err != nil {
		t.Fatalf("Probe() = %v", err)
	}
	if meta.Duration != 95 || meta.Aspect() != 1920.0/1080.0 {
		t.Errorf("meta = %+v", meta)
	}
}

func TestVerifyOutput(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp4")
	full := filepath.Join(dir, "full.mp4")
	os.WriteFile(empty, nil, 0644)
	os.WriteFile(full, []byte("data"), 0644)

	if err := VerifyOutput(full); err != nil {
		t.Errorf("VerifyOutput(full) = %v", err)
	}
	for _, path := range []string{empty, filepath.Join(dir, "missing.mp4")} {
		var te *TranscodeError
		if err := VerifyOutput(path); !errors.As(err, &te) || !te.Missing {
			t.Errorf("VerifyOutput(%s) = %v, want missing", path, err)
		}
	}
}

func TestEnsureExtension(t *testing.T) {
	if got := EnsureExtension("clip.mov", ".mp4"); got != "clip.mp4" {
		t.Errorf("EnsureExtension = %s", got)
	}
}
