// Package textlayout fits caption text into a frame's text zones.
package textlayout

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ZacxDev/reel-splitter/internal/frame"
	"github.com/ZacxDev/reel-splitter/pkg/types"
)

const (
	MaxFontSize = 72
	MinFontSize = 36
	FontStep    = 4

	// VerticalMargin is kept clear at the top and bottom edge of a zone.
	VerticalMargin = 30
	// CharWidthRatio approximates the average glyph advance as a fraction of
	// the font size.
	CharWidthRatio = 0.6
	// LineSpacing is the line height as a multiple of the font size.
	LineSpacing = 1.3

	DefaultColor    = "#FFFFFF"
	DefaultFontFile = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
)

// Layout is the computed placement of one caption inside a zone.
type Layout struct {
	Text       string
	Zone       types.ZoneID
	FontSize   int
	Lines      []string
	LineHeight int
	X          int
	Y          int
	Color      string
	FontFile   string
	// Overflow is set when even the minimum font size left the block taller
	// than the zone allows.
	Overflow bool
}

// BlockHeight is the total height of all wrapped lines.
func (l Layout) BlockHeight() int {
	return len(l.Lines) * l.LineHeight
}

// LineY returns the vertical origin of line i.
func (l Layout) LineY(i int) int {
	return l.Y + i*l.LineHeight
}

// Engine computes caption layouts. The zero value uses DefaultFontFile.
type Engine struct {
	FontFile string
}

func New(fontFile string) *Engine {
	return &Engine{FontFile: fontFile}
}

// Fit searches font sizes from largest to smallest and returns the first
// whose wrapped block fits the zone. It never fails: when nothing fits the
// minimum size is used and Overflow is reported.
func (e *Engine) Fit(text string, zone frame.TextZone) Layout {
	fontFile := e.FontFile
	if fontFile == "" {
		fontFile = DefaultFontFile
	}

	available := zone.Height() - 2*VerticalMargin
	size := MaxFontSize
	var lines []string
	fits := false
	for ; size >= MinFontSize; size -= FontStep {
		lines = Wrap(text, maxChars(zone.MaxWidth(), size))
		if len(lines)*LineHeight(size) <= available {
			fits = true
			break
		}
	}
	if !fits {
		size = MinFontSize
		lines = Wrap(text, maxChars(zone.MaxWidth(), size))
	}

	lineHeight := LineHeight(size)
	block := len(lines) * lineHeight

	return Layout{
		Text:       text,
		Zone:       zone.ID,
		FontSize:   size,
		Lines:      lines,
		LineHeight: lineHeight,
		X:          zone.Left,
		Y:          zone.CenterY() - block/2,
		Color:      DefaultColor,
		FontFile:   fontFile,
		Overflow:   !fits,
	}
}

// LineHeight returns the line pitch for a font size.
func LineHeight(fontSize int) int {
	return int(math.Round(float64(fontSize) * LineSpacing))
}

func maxChars(width, fontSize int) int {
	return int(float64(width) / (float64(fontSize) * CharWidthRatio))
}

// Wrap greedily packs whitespace-delimited words into lines of at most
// limit runes. Words are never split; a word longer than limit gets a
// line of its own. Empty input yields a single empty line.
func Wrap(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var (
		lines   []string
		current []string
		length  int
	)
	for _, w := range words {
		// len(current) accounts for the separating spaces
		n := utf8.RuneCountInString(w)
		if len(current) > 0 && length+n+len(current) > limit {
			lines = append(lines, strings.Join(current, " "))
			current = current[:0]
			length = 0
		}
		current = append(current, w)
		length += n
	}
	return append(lines, strings.Join(current, " "))
}

// ValidatePlacement reports whether a block starting at y with the given
// height stays entirely above or below the video band.
func ValidatePlacement(y, height, videoStart, videoEnd int) bool {
	end := y + height
	return end < videoStart || y > videoEnd
}
