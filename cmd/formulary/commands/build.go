package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/formulary/internal/build"
	"git.home.luguber.info/inful/formulary/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Override the output directory"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Paths.Output = b.Output
		if err := config.ValidateConfig(cfg); err != nil {
			return err
		}
	}
	return runStage(g, cfg, build.ModeBuild)
}

// ParseCmd implements the 'parse' command.
type ParseCmd struct{}

func (p *ParseCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	return runStage(g, cfg, build.ModeParse)
}

// RenderCmd implements the 'render' command.
type RenderCmd struct{}

func (r *RenderCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	return runStage(g, cfg, build.ModeRender)
}

func runStage(g *Global, cfg *config.Config, mode string) error {
	ctx, stop := signalContext()
	defer stop()
	return RunStage(ctx, g, build.New(cfg), mode)
}

// RunStage runs one pipeline mode and prints its summary.
func RunStage(ctx context.Context, g *Global, o *build.Orchestrator, mode string) error {
	var (
		report *build.Report
		err    error
	)
	switch mode {
	case build.ModeParse:
		report, err = o.Parse(ctx)
	case build.ModeRender:
		report, err = o.Render(ctx)
	default:
		report, err = o.Build(ctx)
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.stdout(), report.Summary())
	if n := len(report.BrokenLinks); n > 0 {
		_, _ = fmt.Fprintf(g.stdout(), "%d broken internal links (see build report)\n", n)
	}
	return nil
}
