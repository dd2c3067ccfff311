package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func templateFuncs() template.FuncMap {
	titler := cases.Title(language.English)
	return template.FuncMap{
		"markdown": func(src string) (template.HTML, error) {
			var buf bytes.Buffer
			if err := markdown.Convert([]byte(src), &buf); err != nil {
				return "", err
			}
			return template.HTML(buf.String()), nil //nolint:gosec // rendered from site-owned sources
		},
		"title": titler.String,
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}
}

// isPartial reports templates that are available for inclusion but not rendered.
func isPartial(rel string) bool {
	return strings.HasPrefix(filepath.Base(rel), "_")
}

// loadSiteData reads the site JSON fresh on every render and forces root_path.
func (b *Builder) loadSiteData() (map[string]any, error) {
	data := map[string]any{}
	path := b.cfg.Resolve(b.cfg.Paths.Data)
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		b.logger.Debug("No site data file", logfields.Path(path))
	case err != nil:
		return nil, ferrors.FileSystemError("failed to read site data").
			WithCause(err).WithContext("path", path).Build()
	default:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, ferrors.TemplateError("invalid site data").
				WithCause(err).WithContext("path", path).Build()
		}
	}
	data["root_path"] = b.cfg.Render.RootPath
	return data, nil
}

// renderPages parses every template into one set (names are slash paths
// relative to the templates dir), renders all non-partials in memory and only
// then writes them, so a template error leaves the previous pages untouched.
func (b *Builder) renderPages(_ context.Context, _ task.Trigger) (task.Artifacts, error) {
	dir := b.cfg.Resolve(b.cfg.Paths.Templates)
	names, err := doublestar.Glob(os.DirFS(dir), "**/*.html", doublestar.WithFilesOnly())
	if err != nil {
		return nil, ferrors.FileSystemError("failed to list templates").
			WithCause(err).WithContext("path", dir).Build()
	}

	set := template.New("").Funcs(templateFuncs()).Option("missingkey=zero")
	for _, name := range names {
		src, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, ferrors.FileSystemError("failed to read template").
				WithCause(err).WithContext("template", name).Build()
		}
		if _, err := set.New(name).Parse(string(src)); err != nil {
			return nil, ferrors.TemplateError("template parse failed").
				WithCause(err).WithContext("template", name).Build()
		}
	}

	data, err := b.loadSiteData()
	if err != nil {
		return nil, err
	}

	rendered := make(map[string][]byte, len(names))
	var pages []string
	for _, name := range names {
		if isPartial(name) {
			continue
		}
		var buf bytes.Buffer
		if err := set.ExecuteTemplate(&buf, name, data); err != nil {
			return nil, ferrors.TemplateError("template render failed").
				WithCause(err).WithContext("template", name).Build()
		}
		out := buf.Bytes()
		if b.cfg.Render.Spaceless {
			if out, err = collapseWhitespace(out); err != nil {
				return nil, ferrors.TemplateError("whitespace collapse failed").
					WithCause(err).WithContext("template", name).Build()
			}
		}
		rendered[name] = out
		pages = append(pages, name)
	}

	artifacts := make(task.Artifacts, 0, len(pages))
	var total int
	for _, name := range pages {
		dst := filepath.Join(b.out, filepath.FromSlash(name))
		if err := writeFileAtomic(dst, rendered[name]); err != nil {
			return artifacts, ferrors.FileSystemError("failed to write page").
				WithCause(err).WithContext("path", dst).Build()
		}
		artifacts = append(artifacts, dst)
		total += len(rendered[name])
	}
	b.logger.Info("Rendered pages",
		logfields.Artifacts(len(artifacts)),
		slog.Int("partials", len(names)-len(pages)),
		slog.String("size", humanize.Bytes(uint64(total))))
	return artifacts, nil
}

// rawTextElements keep their whitespace.
var rawTextElements = map[string]bool{"pre": true, "textarea": true, "script": true, "style": true}

// collapseWhitespace drops whitespace-only text between tags.
func collapseWhitespace(src []byte) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var out bytes.Buffer
	depth := 0
	for {
		tt := z.Next()
		raw := bytes.Clone(z.Raw())
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return out.Bytes(), nil
			}
			return nil, z.Err()
		case html.StartTagToken:
			name, _ := z.TagName()
			if rawTextElements[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if rawTextElements[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth == 0 && len(bytes.TrimSpace(raw)) == 0 {
				continue
			}
		}
		out.Write(raw)
	}
}
