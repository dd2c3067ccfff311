package site

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/evanw/esbuild/pkg/api"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

// StylesheetPath is the compiled stylesheet, relative to the output directory.
const StylesheetPath = "css/app.css"

// Asset references in url() are left for the copy tasks to provide.
var styleExternals = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.webp", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.eot", "*.otf",
}

func (b *Builder) compileStyles(_ context.Context, _ task.Trigger) (task.Artifacts, error) {
	entry, err := filepath.Abs(b.cfg.Resolve(b.cfg.Paths.StylesEntry))
	if err != nil {
		return nil, ferrors.ConfigError("cannot resolve styles entry").WithCause(err).Build()
	}
	if _, err := os.Stat(entry); errors.Is(err, fs.ErrNotExist) {
		b.logger.Warn("Styles entry not found; skipping", logfields.Path(entry))
		return nil, nil
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{entry},
		Outfile:           filepath.Join(b.out, filepath.FromSlash(StylesheetPath)),
		Bundle:            true,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		External:          styleExternals,
		LogLevel:          api.LogLevelSilent,
		Write:             false,
	})
	for _, msg := range api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage}) {
		b.logger.Warn("Stylesheet warning", slog.String("detail", strings.TrimSpace(msg)))
	}
	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return nil, ferrors.StyleError("stylesheet compile failed").
			WithCause(errors.New(strings.TrimSpace(strings.Join(msgs, "\n")))).
			WithContext("entry", entry).
			WithContext("errors", len(result.Errors)).Build()
	}

	artifacts := make(task.Artifacts, 0, len(result.OutputFiles))
	var total int
	for _, f := range result.OutputFiles {
		if err := writeFileAtomic(f.Path, f.Contents); err != nil {
			return artifacts, ferrors.FileSystemError("failed to write stylesheet").
				WithCause(err).WithContext("path", f.Path).Build()
		}
		artifacts = append(artifacts, f.Path)
		total += len(f.Contents)
	}
	b.logger.Info("Compiled styles",
		logfields.Path(filepath.Join(b.out, filepath.FromSlash(StylesheetPath))),
		slog.String("size", humanize.Bytes(uint64(total))))
	return artifacts, nil
}
