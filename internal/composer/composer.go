package composer

import (
	"context"

	"github.com/ZacxDev/reel-splitter/internal/ffmpeg"
	"github.com/ZacxDev/reel-splitter/internal/frame"
	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/sirupsen/logrus"
)

// Request describes one reel to render.
type Request struct {
	Source   string
	Output   string
	Layout   types.LayoutID
	Captions []Caption
	Options  Options
	Trim     *ffmpeg.Trim
}

// Composer resolves the layout, plans the graph and renders it.
type Composer struct {
	planner  *Planner
	executor *Executor
	log      *logrus.Entry
}

func New(planner *Planner, executor *Executor, log logrus.FieldLogger) *Composer {
	return &Composer{planner: planner, executor: executor, log: logging.WithComponent(log, "composer")}
}

// Compose returns the output path. An unknown layout fails with
// frame.ErrUnknownLayout before anything is rendered.
func (c *Composer) Compose(ctx context.Context, req Request) (string, error) {
	layout, err := frame.Resolve(req.Layout)
	if err != nil {
		return "", err
	}
	plan, err := c.planner.Plan(layout, req.Captions, req.Options)
	if err != nil {
		return "", err
	}
	c.log.WithFields(logrus.Fields{
		"layout": layout.ID,
		"stages": len(plan.Stages),
		"output": req.Output,
	}).Debug("plan built")
	return c.executor.Execute(ctx, plan, req.Source, req.Output, req.Trim)
}
