// Package site declares the static-site build tasks (clean, copy, render,
// styles) and the watch subscriptions that re-run them.
package site

import (
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

// Task names.
const (
	TaskCleanOutput       = "clean-output"
	TaskCopyStaticAssets  = "copy-static-assets"
	TaskCopyVendorScripts = "copy-vendor-scripts"
	TaskRenderPages       = "render-pages"
	TaskCompileStyles     = "compile-styles"
)

// BuildTasks is the full build, in execution order.
var BuildTasks = []string{
	TaskCleanOutput,
	TaskCopyStaticAssets,
	TaskCopyVendorScripts,
	TaskRenderPages,
	TaskCompileStyles,
}

// RebuildTasks is the full build without clean-output, used for scheduled
// rebuilds while the output is being served.
var RebuildTasks = BuildTasks[1:]

// Builder holds the resolved paths shared by the task actions.
type Builder struct {
	cfg    *config.Config
	out    string
	logger *slog.Logger
}

// NewBuilder resolves cfg's paths. A nil logger uses slog.Default().
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	out := cfg.OutputDir()
	if abs, err := filepath.Abs(out); err == nil {
		out = abs
	}
	return &Builder{cfg: cfg, out: out, logger: logger}
}

// OutputDir is the absolute output directory.
func (b *Builder) OutputDir() string { return b.out }

// Tasks returns the site tasks in BuildTasks order. None of them depends on
// clean-output, so a watch-triggered subset never wipes the output tree.
func (b *Builder) Tasks() []task.Task {
	p := b.cfg.Paths
	vendor := append([]string(nil), p.VendorScripts...)
	if p.Scripts != "" {
		vendor = append(vendor, glob(p.Scripts, "**/*.js"))
	}
	return []task.Task{
		{
			Name:        TaskCleanOutput,
			Description: "Remove the output directory",
			Action:      b.cleanOutput,
		},
		{
			Name:        TaskCopyStaticAssets,
			Description: "Copy images into img/",
			Inputs:      []string{glob(p.Images, "**")},
			Action:      b.copyStaticAssets,
		},
		{
			Name:        TaskCopyVendorScripts,
			Description: "Copy vendor and site scripts into js/",
			Inputs:      vendor,
			Action:      b.copyVendorScripts,
		},
		{
			Name:        TaskRenderPages,
			Description: "Render HTML templates with site data",
			Inputs:      []string{glob(p.Templates, "**/*.html"), filepath.ToSlash(filepath.Clean(p.Data))},
			Action:      b.renderPages,
		},
		{
			Name:        TaskCompileStyles,
			Description: "Bundle and minify the entry stylesheet into css/app.css",
			Kind:        task.KindStylesheet,
			Inputs:      []string{glob(p.Styles, "**/*.css")},
			Action:      b.compileStyles,
		},
	}
}

// NewRegistry registers the site tasks and validates the graph.
func NewRegistry(b *Builder) (*task.Registry, error) {
	reg := task.NewRegistry()
	for _, t := range b.Tasks() {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// watchedTasks are the tasks re-run on source changes; each maps only its own inputs.
var watchedTasks = []string{TaskCompileStyles, TaskRenderPages, TaskCopyVendorScripts}

// Subscriptions maps source inputs to their tasks and the output tree to
// reload-only notifications.
func (b *Builder) Subscriptions() []watch.Subscription {
	root, err := filepath.Abs(b.cfg.Paths.Root)
	if err != nil {
		root = b.cfg.Paths.Root
	}
	byName := make(map[string]task.Task)
	for _, t := range b.Tasks() {
		byName[t.Name] = t
	}
	subs := make([]watch.Subscription, 0, len(watchedTasks)+1)
	for _, name := range watchedTasks {
		t := byName[name]
		patterns := make([]string, 0, len(t.Inputs))
		for _, in := range t.Inputs {
			patterns = append(patterns, relativeGlob(root, in))
		}
		subs = append(subs, watch.Subscription{Name: name, BaseDir: root, Patterns: patterns, Tasks: []string{name}})
	}
	return append(subs, watch.Subscription{Name: "output", BaseDir: b.out, Patterns: []string{"**"}, ReloadOnly: true})
}

// WatchRoots are the directories the filesystem source must observe.
func (b *Builder) WatchRoots() []string {
	p := b.cfg.Paths
	roots := []string{b.out}
	add := func(dir string) {
		if dir == "" {
			return
		}
		abs, err := filepath.Abs(b.cfg.Resolve(dir))
		if err != nil {
			return
		}
		for _, r := range roots {
			if r == abs {
				return
			}
		}
		roots = append(roots, abs)
	}
	add(p.Templates)
	add(p.Styles)
	add(p.Scripts)
	add(filepath.Dir(p.Data))
	for _, g := range p.VendorScripts {
		base, _ := splitGlob(g)
		add(base)
	}
	return roots
}

func glob(dir, pattern string) string {
	return filepath.ToSlash(filepath.Join(filepath.Clean(dir), pattern))
}

// relativeGlob rewrites an absolute glob relative to root; relative globs are kept.
func relativeGlob(root, g string) string {
	if !filepath.IsAbs(g) {
		return filepath.ToSlash(filepath.Clean(g))
	}
	base, pattern := splitGlob(g)
	rel, err := filepath.Rel(root, base)
	if err != nil {
		return filepath.ToSlash(g)
	}
	return filepath.ToSlash(filepath.Join(rel, pattern))
}
