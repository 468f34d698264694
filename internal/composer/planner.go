package composer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZacxDev/reel-splitter/internal/frame"
	"github.com/ZacxDev/reel-splitter/internal/textlayout"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/pkg/errors"
)

const (
	sourceLabel = "0:v"

	defaultShadowOpacity = 0.5
	shadowOffset         = 2
)

// Caption is caption text bound to a zone.
type Caption struct {
	Text string       `json:"text" validate:"max=500"`
	Zone types.ZoneID `json:"zone" validate:"required,oneof=top bottom"`
}

// Options are the optional effects of a composition.
type Options struct {
	// Shadow sets the caption drop-shadow opacity. Nil keeps the default.
	Shadow *float64
	// ColorOverlay appends a colour mix at this opacity, clamped to [0,1].
	ColorOverlay *float64
}

// Planner turns a layout and captions into a filter graph. It does no I/O.
type Planner struct {
	text *textlayout.Engine
	fps  int
}

func NewPlanner(text *textlayout.Engine, fps int) *Planner {
	if text == nil {
		text = textlayout.New("")
	}
	if fps <= 0 {
		fps = 30
	}
	return &Planner{text: text, fps: fps}
}

// Plan builds the graph: scale, background, overlay, dividers, one drawtext
// per wrapped caption line, then the optional colour mix.
func (p *Planner) Plan(layout frame.Layout, captions []Caption, opts Options) (*Plan, error) {
	plan := &Plan{}

	// Letterbox into the 16:9 band so non-16:9 sources keep the layout's
	// geometry.
	bg := hexColor(layout.Background)
	plan.add(KindScale, fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=%s,setsar=1",
		layout.VideoWidth, layout.VideoHeight, layout.VideoWidth, layout.VideoHeight, bg,
	), "scaled", sourceLabel)

	plan.Stages = append(plan.Stages, Stage{
		Kind:   KindBackground,
		Expr:   fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", bg, layout.Width, layout.Height, p.fps),
		Output: "bg",
	})

	plan.add(KindOverlay, fmt.Sprintf("overlay=0:%d:shortest=1", layout.VideoY), "composed", "bg", "scaled")

	if d := layout.Divider; d.Enabled {
		for i, y := range []int{d.TopY, d.BottomY} {
			out := fmt.Sprintf("divider%d", i+1)
			plan.add(KindDrawBox, fmt.Sprintf("drawbox=x=0:y=%d:w=%d:h=%d:color=%s:t=fill",
				y, layout.Width, d.Thickness, hexColor(d.Color)), out, plan.Final)
		}
	}

	shadow := defaultShadowOpacity
	if opts.Shadow != nil {
		shadow = clamp01(*opts.Shadow)
	}

	for i, c := range captions {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		zone, err := layout.Zone(c.Zone)
		if err != nil {
			return nil, errors.Wrapf(err, "caption %d", i)
		}
		fit := p.text.Fit(c.Text, zone)
		for j, line := range fit.Lines {
			out := fmt.Sprintf("text%d_%d", i, j)
			plan.add(KindDrawText, fmt.Sprintf(
				"drawtext=text=%s:fontfile=%s:fontsize=%d:fontcolor=%s:x=%d:y=%d:shadowx=%d:shadowy=%d:shadowcolor=black@%s",
				EscapeText(line), EscapeOption(fit.FontFile), fit.FontSize, hexColor(fit.Color),
				fit.X, fit.LineY(j), shadowOffset, shadowOffset, formatFloat(shadow),
			), out, plan.Final)
		}
	}

	if opts.ColorOverlay != nil {
		plan.add(KindColorMix, fmt.Sprintf("colorize=hue=0:saturation=0.1:lightness=0:mix=%s",
			formatFloat(clamp01(*opts.ColorOverlay))), "overlayed", plan.Final)
	}

	return plan, nil
}

// A drawtext value is unescaped three times: by the graph parser, by the
// filter option parser and, for text, by drawtext's own %{} expansion.
var (
	expansionEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`)
	optionEscaper    = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper     = strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
		`;`, `\;`,
	)
)

// EscapeText escapes s for use as a drawtext text value inside a
// filter_complex graph.
func EscapeText(s string) string {
	return EscapeOption(expansionEscaper.Replace(s))
}

// EscapeOption escapes s for use as a plain filter option value inside a
// filter_complex graph.
func EscapeOption(s string) string {
	return graphEscaper.Replace(optionEscaper.Replace(s))
}

func hexColor(c string) string {
	return "0x" + strings.TrimPrefix(c, "#")
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
