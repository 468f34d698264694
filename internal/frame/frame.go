// Package frame holds the fixed canvas geometry shared by composition and
// caption layout. Layouts are built once at init and never mutated.
package frame

import (
	"fmt"
	"math"

	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

const (
	CanvasWidth  = 1080
	CanvasHeight = 1920

	// ZoneMargin separates a text zone from the video band.
	ZoneMargin = 50
	// HorizontalMargin is applied on both sides of every text zone.
	HorizontalMargin = 50
	// DividerOffset is the gap between the video edge and a divider line.
	DividerOffset = 10
	// LowerAnchorShift moves the lower-anchor video below center.
	LowerAnchorShift = 180
)

// VideoHeight is the height of a full-width 16:9 video on the canvas.
var VideoHeight = int(math.Round(float64(CanvasWidth) * 9 / 16))

// ErrUnknownLayout is returned for identifiers outside the closed layout set.
var ErrUnknownLayout = errors.New("unknown frame layout")

// Divider describes the optional lines drawn above and below the video.
type Divider struct {
	Enabled   bool
	Thickness int
	Color     string
	TopY      int
	BottomY   int
}

// TextZone is a vertical band guaranteed not to overlap the video.
type TextZone struct {
	ID     types.ZoneID
	StartY int
	EndY   int
	Left   int
	Right  int
}

func (z TextZone) Height() int   { return z.EndY - z.StartY }
func (z TextZone) CenterY() int  { return (z.StartY + z.EndY) / 2 }
func (z TextZone) MaxWidth() int { return z.Right - z.Left }

// Layout is the resolved geometry of one named frame.
type Layout struct {
	ID          types.LayoutID
	Name        string
	Description string
	Width       int
	Height      int
	Background  string
	VideoY      int
	VideoWidth  int
	VideoHeight int
	Divider     Divider
	Top         TextZone
	Bottom      TextZone
}

func (l Layout) VideoBottomY() int     { return l.VideoY + l.VideoHeight }
func (l Layout) TopBlackSpace() int    { return l.VideoY }
func (l Layout) BottomBlackSpace() int { return l.Height - l.VideoBottomY() }

// Zone returns the text zone with the given id.
func (l Layout) Zone(id types.ZoneID) (TextZone, error) {
	switch id {
	case types.ZoneTop:
		return l.Top, nil
	case types.ZoneBottom:
		return l.Bottom, nil
	}
	return TextZone{}, errors.Errorf("unknown text zone %q", id)
}

// Validate checks that both zones stay clear of the video band and that the
// black space and video account for the full canvas height.
func (l Layout) Validate() error {
	if l.Top.EndY >= l.VideoY {
		return errors.Errorf("layout %s: top zone ends at %d, video starts at %d", l.ID, l.Top.EndY, l.VideoY)
	}
	if l.Bottom.StartY <= l.VideoBottomY() {
		return errors.Errorf("layout %s: bottom zone starts at %d, video ends at %d", l.ID, l.Bottom.StartY, l.VideoBottomY())
	}
	if l.TopBlackSpace()+l.VideoHeight+l.BottomBlackSpace() != l.Height {
		return errors.Errorf("layout %s: geometry does not fill canvas", l.ID)
	}
	return nil
}

type definition struct {
	id          types.LayoutID
	name        string
	description string
	videoY      int
	background  string
	divider     bool
}

func build(s definition) Layout {
	l := Layout{
		ID:          s.id,
		Name:        s.name,
		Description: s.description,
		Width:       CanvasWidth,
		Height:      CanvasHeight,
		Background:  s.background,
		VideoY:      s.videoY,
		VideoWidth:  CanvasWidth,
		VideoHeight: VideoHeight,
	}
	l.Top = TextZone{
		ID:     types.ZoneTop,
		StartY: 0,
		EndY:   l.VideoY - ZoneMargin,
		Left:   HorizontalMargin,
		Right:  CanvasWidth - HorizontalMargin,
	}
	l.Bottom = TextZone{
		ID:     types.ZoneBottom,
		StartY: l.VideoBottomY() + ZoneMargin,
		EndY:   CanvasHeight,
		Left:   HorizontalMargin,
		Right:  CanvasWidth - HorizontalMargin,
	}
	if s.divider {
		l.Divider = Divider{
			Enabled:   true,
			Thickness: 2,
			Color:     "#FFFFFF",
			TopY:      l.VideoY - DividerOffset,
			BottomY:   l.VideoBottomY() + DividerOffset,
		}
	}
	return l
}

var (
	layouts = make(map[types.LayoutID]Layout)
	order   []types.LayoutID
)

func register(s definition) {
	l := build(s)
	if err := l.Validate(); err != nil {
		panic(err)
	}
	layouts[l.ID] = l
	order = append(order, l.ID)
}

func init() {
	centered := (CanvasHeight - VideoHeight) / 2

	register(definition{
		id:          types.LayoutCenterStrip,
		name:        "Center Strip",
		description: "Video centered with black bars above and below",
		videoY:      centered,
		background:  "#000000",
	})
	register(definition{
		id:          types.LayoutDividerFrame,
		name:        "Divider Frame",
		description: "Centered video with thin divider lines framing it",
		videoY:      centered,
		background:  "#2b2b2b",
		divider:     true,
	})
	register(definition{
		id:          types.LayoutLowerAnchor,
		name:        "Lower Anchor",
		description: "Video placed below center, leaving room for a headline",
		videoY:      centered + LowerAnchorShift,
		background:  "#000000",
	})
}

// Resolve returns the layout for id. Layout values are copies, callers can't
// mutate the registry.
func Resolve(id types.LayoutID) (Layout, error) {
	l, ok := layouts[id]
	if !ok {
		return Layout{}, errors.Wrapf(ErrUnknownLayout, "%q", id)
	}
	return l, nil
}

// MustResolve is Resolve for identifiers fixed at compile time.
func MustResolve(id types.LayoutID) Layout {
	l, err := Resolve(id)
	if err != nil {
		panic(err)
	}
	return l
}

// Valid reports whether id names a registered layout.
func Valid(id types.LayoutID) bool {
	_, ok := layouts[id]
	return ok
}

// All returns every layout in registration order.
func All() []Layout {
	out := make([]Layout, 0, len(order))
	for _, id := range order {
		out = append(out, layouts[id])
	}
	return out
}

// IDs returns the registered identifiers, sorted.
func IDs() []string {
	ids := make([]string, 0, len(layouts))
	for id := range layouts {
		ids = append(ids, string(id))
	}
	slices.Sort(ids)
	return ids
}

func (l Layout) String() string {
	return fmt.Sprintf("%s (%s)", l.Name, l.ID)
}
