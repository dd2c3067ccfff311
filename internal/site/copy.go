package site

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

func (b *Builder) cleanOutput(_ context.Context, _ task.Trigger) (task.Artifacts, error) {
	if b.out == "" || b.out == string(filepath.Separator) {
		return nil, ferrors.ValidationError("refusing to clean output directory").
			WithContext("path", b.out).Build()
	}
	if err := os.RemoveAll(b.out); err != nil {
		return nil, ferrors.FileSystemError("failed to remove output directory").
			WithCause(err).WithContext("path", b.out).Build()
	}
	b.logger.Debug("Output directory removed", logfields.Path(b.out))
	return nil, nil
}

func (b *Builder) copyStaticAssets(_ context.Context, _ task.Trigger) (task.Artifacts, error) {
	res, err := copyGlob(b.cfg.Resolve(glob(b.cfg.Paths.Images, "**")), filepath.Join(b.out, "img"))
	if err != nil {
		return nil, err
	}
	b.logCopied("img", res)
	return res.files, nil
}

func (b *Builder) copyVendorScripts(_ context.Context, _ task.Trigger) (task.Artifacts, error) {
	dest := filepath.Join(b.out, "js")
	globs := append([]string(nil), b.cfg.Paths.VendorScripts...)
	if b.cfg.Paths.Scripts != "" {
		globs = append(globs, glob(b.cfg.Paths.Scripts, "**/*.js"))
	}
	var all copyResult
	for _, g := range globs {
		res, err := copyGlob(b.cfg.Resolve(g), dest)
		if err != nil {
			return nil, err
		}
		all.files = append(all.files, res.files...)
		all.bytes += res.bytes
	}
	b.logCopied("js", all)
	return all.files, nil
}

func (b *Builder) logCopied(dest string, res copyResult) {
	b.logger.Info("Copied files",
		logfields.Path(filepath.Join(b.out, dest)),
		logfields.Artifacts(len(res.files)),
		slog.String("size", humanize.Bytes(uint64(res.bytes))))
}
