package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		want          logrus.Level
		wantErr       bool
	}{
		{"", "", logrus.InfoLevel, false},
		{"debug", "text", logrus.DebugLevel, false},
		{"warn", "json", logrus.WarnLevel, false},
		{"loud", "json", 0, true},
		{"info", "xml", 0, true},
	}

	for _, tt := range tests {
		log, err := New(tt.level, tt.format)
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q, %q) expected error", tt.level, tt.format)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%q, %q) = %v", tt.level, tt.format, err)
		}
		if log.GetLevel() != tt.want {
			t.Errorf("level = %v, want %v", log.GetLevel(), tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "...def" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestWithComponentNil(t *testing.T) {
	e := WithComponent(nil, "x")
	if e.Data["component"] != "x" {
		t.Errorf("component field = %v", e.Data["component"])
	}
}
