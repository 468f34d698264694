package composer

import (
	"fmt"
	"strings"
)

// Kind identifies the operation a stage performs.
type Kind string

const (
	KindScale      Kind = "scale"
	KindBackground Kind = "background"
	KindOverlay    Kind = "overlay"
	KindDrawBox    Kind = "drawbox"
	KindDrawText   Kind = "drawtext"
	KindColorMix   Kind = "colormix"
)

// Stage is one node of the filter graph. Inputs and Output are buffer
// labels; Expr is the filter chain applied between them.
type Stage struct {
	Kind   Kind
	Inputs []string
	Expr   string
	Output string
}

func (s Stage) String() string {
	var sb strings.Builder
	for _, in := range s.Inputs {
		fmt.Fprintf(&sb, "[%s]", in)
	}
	sb.WriteString(s.Expr)
	fmt.Fprintf(&sb, "[%s]", s.Output)
	return sb.String()
}

// Plan is an ordered filter graph ending in the Final buffer.
type Plan struct {
	Stages []Stage
	Final  string
}

// FilterGraph renders the plan as a single filter_complex string.
func (p *Plan) FilterGraph() string {
	parts := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		parts[i] = s.String()
	}
	return strings.Join(parts, ";")
}

// Count returns how many stages of kind k the plan holds.
func (p *Plan) Count(k Kind) int {
	n := 0
	for _, s := range p.Stages {
		if s.Kind == k {
			n++
		}
	}
	return n
}

func (p *Plan) add(kind Kind, expr, output string, inputs ...string) {
	p.Stages = append(p.Stages, Stage{Kind: kind, Inputs: inputs, Expr: expr, Output: output})
	p.Final = output
}
