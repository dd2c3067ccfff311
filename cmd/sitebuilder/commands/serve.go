package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/events"
	"git.home.luguber.info/inful/sitebuilder/internal/livereload"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/server"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

const shutdownTimeout = 5 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Output       string `short:"o" help:"Output directory (overrides paths.output)"`
	Host         string `help:"Listen host (overrides serve.host)"`
	Port         int    `short:"p" help:"Listen port (overrides serve.port)"`
	NoLiveReload bool   `name:"no-live-reload" help:"Disable browser live reload"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if s.Output != "" {
		cfg.Paths.Output = s.Output
	}
	if s.Host != "" {
		cfg.Serve.Host = s.Host
	}
	if s.Port != 0 {
		cfg.Serve.Port = s.Port
	}
	if s.NoLiveReload {
		cfg.Serve.LiveReload = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := newProject(cfg, cfg.Serve.Metrics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runBuild(ctx, p); err != nil {
		return err
	}
	return serve(ctx, p)
}

// serve runs the dev server and watch session until ctx is canceled.
func serve(ctx context.Context, p *project) error {
	logger := slog.Default()
	bus := events.NewBus()
	defer bus.Close()

	var detach []func()
	defer func() {
		for i := len(detach) - 1; i >= 0; i-- {
			detach[i]()
		}
	}()

	var hub *livereload.Hub
	if p.cfg.Serve.LiveReload {
		hub = livereload.NewHub(logger)
		detach = append(detach, hub.Attach(bus))
	}
	if url := p.cfg.Reload.NATSURL; url != "" {
		bridge, err := livereload.DialNATSBridge(url, p.cfg.Reload.Subject, logger)
		if err != nil {
			// The mirror is optional; local live reload keeps working.
			logger.Warn("NATS reload mirror disabled", logfields.Error(err))
		} else {
			detach = append(detach, bridge.Attach(bus), bridge.Close)
		}
	}

	opts := server.Options{
		Addr:      p.cfg.Address(),
		OutputDir: p.builder.OutputDir(),
		Hub:       hub,
		Logger:    logger,
	}
	if p.metrics != nil {
		opts.Metrics = metrics.HTTPHandler(p.metrics)
	}
	srv := server.New(opts)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("Dev server shutdown error", logfields.Error(err))
		}
	}()

	source, err := watch.NewFSNotifySource(logger, p.builder.WatchRoots()...)
	if err != nil {
		return err
	}
	notifier := livereload.NewNotifier(bus, p.builder.OutputDir(), p.recorder, logger)
	ctrl, err := watch.NewController(source, p.builder.Subscriptions(), p.pipeline, notifier, watch.Options{
		QuietWindow:  p.cfg.Serve.QuietWindow.Std(),
		SettleWindow: p.cfg.Serve.SettleWindow.Std(),
		Recorder:     p.recorder,
		Logger:       logger,
	})
	if err != nil {
		_ = source.Close()
		return err
	}
	if err := ctrl.Start(ctx); err != nil {
		_ = source.Close()
		return err
	}
	defer func() {
		if err := ctrl.Stop(); err != nil {
			logger.Warn("Watch shutdown error", logfields.Error(err))
		}
	}()

	if cron := p.cfg.Serve.RebuildSchedule; cron != "" {
		sched, err := watch.NewScheduler(logger)
		if err != nil {
			return err
		}
		if _, err := sched.ScheduleRebuild(cron, ctrl, site.RebuildTasks); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				logger.Warn("Scheduler shutdown error", logfields.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}
