package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Output directory (overrides paths.output)"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Paths.Output = b.Output
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	p, err := newProject(cfg, false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runBuild(ctx, p)
}

func runBuild(ctx context.Context, p *project) error {
	result, err := p.pipeline.RunSequence(ctx, site.BuildTasks, task.Trigger{Reason: "build"})
	if err != nil {
		return pipeline.Classify(err)
	}
	artifacts := 0
	for _, o := range result.Tasks {
		artifacts += len(o.Artifacts)
	}
	slog.Info("Build complete",
		logfields.RunID(result.RunID),
		logfields.Path(p.builder.OutputDir()),
		logfields.Artifacts(artifacts),
		logfields.Duration(result.Duration))
	return nil
}
