// Package config loads sitebuilder.yaml: project paths, rendering options, dev
// server settings, the optional NATS reload mirror and logging.
package config

import (
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "sitebuilder.yaml"

// Config is the complete sitebuilder configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Render  RenderConfig  `yaml:"render"`
	Serve   ServeConfig   `yaml:"serve"`
	Reload  ReloadConfig  `yaml:"reload"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig locates sources and output. Relative paths resolve against Root.
type PathsConfig struct {
	Root        string `yaml:"root"`
	Output      string `yaml:"output"`
	Templates   string `yaml:"templates"`
	Data        string `yaml:"data"`
	Styles      string `yaml:"styles"`
	StylesEntry string `yaml:"styles_entry"`
	Images      string `yaml:"images"`
	Scripts     string `yaml:"scripts"`
	// VendorScripts are globs copied into js/ relative to their static base.
	VendorScripts []string `yaml:"vendor_scripts"`
}

// RenderConfig controls page rendering.
type RenderConfig struct {
	// RootPath overrides root_path in the site data so links work under a prefix.
	RootPath  string `yaml:"root_path"`
	Spaceless bool   `yaml:"spaceless"`
}

// ServeConfig configures the dev server and watch session.
type ServeConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	LiveReload   bool     `yaml:"live_reload"`
	QuietWindow  Duration `yaml:"quiet_window"`
	SettleWindow Duration `yaml:"settle_window"`
	// RebuildSchedule is an optional cron expression for periodic full rebuilds.
	RebuildSchedule string `yaml:"rebuild_schedule,omitempty"`
	Metrics         bool   `yaml:"metrics"`
}

// ReloadConfig configures the NATS mirror of reload events. Empty NATSURL disables it.
type ReloadConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:          ".",
			Output:        "dist",
			Templates:     "src/templates",
			Data:          "src/data/site.json",
			Styles:        "src/assets/css",
			StylesEntry:   "src/assets/css/app.css",
			Images:        "src/assets/img",
			Scripts:       "src/javascripts",
			VendorScripts: []string{"node_modules/bootstrap/dist/js/**/*.js"},
		},
		Render: RenderConfig{RootPath: "/"},
		Serve: ServeConfig{
			Host:         "localhost",
			Port:         8000,
			LiveReload:   true,
			QuietWindow:  Duration(100 * time.Millisecond),
			SettleWindow: Duration(250 * time.Millisecond),
		},
		Reload:  ReloadConfig{Subject: "sitebuilder.reload"},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// Resolve returns p joined to the project root unless it is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.Root, p)
}

// OutputDir is the resolved output directory.
func (c *Config) OutputDir() string { return c.Resolve(c.Paths.Output) }

// Address is the dev server listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Serve.Host, strconv.Itoa(c.Serve.Port))
}

// Validate checks the configuration after defaults and normalization.
func (c *Config) Validate() error {
	if c.Paths.Output == "" {
		return ferrors.ValidationError("paths.output is required").Build()
	}
	if c.Paths.Templates == "" {
		return ferrors.ValidationError("paths.templates is required").Build()
	}
	root, err := filepath.Abs(c.Paths.Root)
	if err != nil {
		return ferrors.ConfigError("cannot resolve paths.root").WithCause(err).Build()
	}
	out, err := filepath.Abs(c.OutputDir())
	if err != nil {
		return ferrors.ConfigError("cannot resolve paths.output").WithCause(err).Build()
	}
	// The output tree is wiped on every build.
	sources := []string{root}
	inputs := []string{c.Paths.Templates, c.Paths.Data, c.Paths.Styles, c.Paths.StylesEntry, c.Paths.Images, c.Paths.Scripts}
	for _, g := range c.Paths.VendorScripts {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(g))
		inputs = append(inputs, filepath.FromSlash(base))
	}
	for _, p := range inputs {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(c.Resolve(p)); err == nil {
			sources = append(sources, abs)
		}
	}
	for _, src := range sources {
		if out == src || isWithin(src, out) {
			return ferrors.ValidationError("paths.output must not contain source files").
				WithContext("output", out).WithContext("source", src).Build()
		}
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return ferrors.ValidationError("serve.port out of range").
			WithContext("port", c.Serve.Port).Build()
	}
	if c.Serve.QuietWindow < 0 || c.Serve.SettleWindow < 0 {
		return ferrors.ValidationError("serve windows must not be negative").Build()
	}
	if !strings.HasPrefix(c.Render.RootPath, "/") {
		return ferrors.ValidationError("render.root_path must start with /").
			WithContext("root_path", c.Render.RootPath).Build()
	}
	return nil
}

// isWithin reports whether path lies inside dir.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
