package textlayout

import (
	"strings"
	"testing"

	"github.com/ZacxDev/reel-splitter/internal/frame"
	"github.com/ZacxDev/reel-splitter/pkg/types"
)

func zone(start, end int) frame.TextZone {
	return frame.TextZone{ID: types.ZoneTop, StartY: start, EndY: end, Left: 50, Right: 1030}
}

func TestFitShortText(t *testing.T) {
	l := New("").Fit("Short text", zone(0, 600))
	if l.FontSize != 72 {
		t.Errorf("FontSize = %d, want 72", l.FontSize)
	}
	if len(l.Lines) != 1 || l.Lines[0] != "Short text" {
		t.Errorf("Lines = %q", l.Lines)
	}
	if l.LineHeight != 94 {
		t.Errorf("LineHeight = %d, want 94", l.LineHeight)
	}
	if l.X != 50 {
		t.Errorf("X = %d, want 50", l.X)
	}
	if l.Y != 300-47 {
		t.Errorf("Y = %d, want %d", l.Y, 300-47)
	}
	if l.Overflow {
		t.Error("Overflow = true")
	}
	if l.FontFile != DefaultFontFile {
		t.Errorf("FontFile = %s", l.FontFile)
	}
}

func TestFitClampsToMinimum(t *testing.T) {
	words := make([]string, 100)
	for i := range words {
		words[i] = "word"
	}
	l := New("").Fit(strings.Join(words, " "), zone(0, 200))
	if l.FontSize != MinFontSize {
		t.Fatalf("FontSize = %d, want %d", l.FontSize, MinFontSize)
	}
	if !l.Overflow {
		t.Error("Overflow = false, want true")
	}
	var total int
	for _, line := range l.Lines {
		total += len(strings.Fields(line))
	}
	if total != 100 {
		t.Errorf("wrapped %d words, want 100 (no truncation)", total)
	}
}

func TestFitPrefersLargestFittingSize(t *testing.T) {
	// Long enough that the largest sizes need too many lines.
	text := strings.Repeat("abcd ", 30)
	z := zone(0, 400)
	l := New("").Fit(text, z)

	available := z.Height() - 2*VerticalMargin
	if l.BlockHeight() > available {
		t.Fatalf("block %d exceeds available %d", l.BlockHeight(), available)
	}
	for size := l.FontSize + FontStep; size <= MaxFontSize; size += FontStep {
		lines := Wrap(text, maxChars(z.MaxWidth(), size))
		if len(lines)*LineHeight(size) <= available {
			t.Fatalf("size %d also fits, search did not pick the largest", size)
		}
	}
}

func TestFitEmpty(t *testing.T) {
	for _, text := range []string{"", "   "} {
		l := New("").Fit(text, zone(0, 600))
		if len(l.Lines) != 1 || l.Lines[0] != "" {
			t.Errorf("Fit(%q).Lines = %q, want single empty line", text, l.Lines)
		}
	}
}

func TestWrapNeverSplitsWords(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"single line", "one two three", 20, []string{"one two three"}},
		{"exact fit", "aaaa bbbb", 9, []string{"aaaa bbbb"}},
		{"breaks", "aaaa bbbb cccc", 9, []string{"aaaa bbbb", "cccc"}},
		{"long word alone", "tiny supercalifragilistic tiny", 8, []string{"tiny", "supercalifragilistic", "tiny"}},
		{"collapses whitespace", "  a \t b\n c ", 80, []string{"a b c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Wrap() = %q, want %q", got, tt.want)
			}
			src := strings.Fields(tt.text)
			var out []string
			for _, line := range got {
				out = append(out, strings.Fields(line)...)
			}
			if strings.Join(src, " ") != strings.Join(out, " ") {
				t.Errorf("words changed: %q -> %q", src, out)
			}
		})
	}
}

func TestLineY(t *testing.T) {
	l := Layout{Y: 100, LineHeight: 47, Lines: []string{"a", "b", "c"}}
	if l.LineY(0) != 100 || l.LineY(2) != 194 {
		t.Errorf("LineY = %d, %d", l.LineY(0), l.LineY(2))
	}
}

func TestValidatePlacement(t *testing.T) {
	tests := []struct {
		y, h int
		want bool
	}{
		{0, 100, true},
		{600, 100, false},
		{1300, 100, true},
		{1264, 10, false},
	}
	for _, tt := range tests {
		if got := ValidatePlacement(tt.y, tt.h, 656, 1264); got != tt.want {
			t.Errorf("ValidatePlacement(%d, %d) = %v, want %v", tt.y, tt.h, got, tt.want)
		}
	}
}

func TestFitStaysInZoneForLayouts(t *testing.T) {
	e := New("")
	for _, l := range frame.All() {
		for _, z := range []frame.TextZone{l.Top, l.Bottom} {
			c := e.Fit("Watch until the very end for the twist nobody saw coming", z)
			if !ValidatePlacement(c.Y, c.BlockHeight(), l.VideoY, l.VideoBottomY()) {
				t.Errorf("%s/%s: caption overlaps video", l.ID, z.ID)
			}
		}
	}
}
