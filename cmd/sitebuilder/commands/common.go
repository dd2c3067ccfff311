package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitebuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve ServeCmd `cmd:"" default:"withargs" help:"Build, serve the output and rebuild on changes (default)"`
	Build BuildCmd `cmd:"" help:"Run the full build once"`
	Tasks TasksCmd `cmd:"" help:"List registered tasks and the build order"`
	Init  InitCmd  `cmd:"" help:"Write a default configuration file"`
}

// AfterApply runs after flag parsing; sets up logging until the config is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig reads the config file and reconfigures logging from it.
// --verbose always wins over logging.level.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Logging.Format == config.LogFormatJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return cfg, nil
}

// project wires the site tasks into a pipeline.
type project struct {
	cfg      *config.Config
	builder  *site.Builder
	registry *task.Registry
	pipeline *pipeline.Pipeline
	metrics  *prometheus.Registry
	recorder metrics.Recorder
}

func newProject(cfg *config.Config, withMetrics bool) (*project, error) {
	logger := slog.Default()
	b := site.NewBuilder(cfg, logger)
	reg, err := site.NewRegistry(b)
	if err != nil {
		return nil, pipeline.Classify(err)
	}
	p := &project{cfg: cfg, builder: b, registry: reg, recorder: metrics.NoopRecorder{}}
	if withMetrics {
		p.metrics = prometheus.NewRegistry()
		p.recorder = metrics.NewPrometheusRecorder(p.metrics)
	}
	p.pipeline = pipeline.New(reg, task.NewRunner(logger),
		pipeline.WithLogger(logger),
		pipeline.WithRecorder(p.recorder))
	return p, nil
}
