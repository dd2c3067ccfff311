package site

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// writeFileAtomic writes data next to path and renames it into place so that
// readers never observe a partially written file.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

// copyFile copies src to dst through writeFileAtomic and returns the size.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()
	data, err := io.ReadAll(in)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), writeFileAtomic(dst, data)
}

type copyResult struct {
	files []string
	bytes int64
}

// copyGlob copies every file matching glob into destDir, keeping paths relative
// to the glob's static base (node_modules/x/js/**/*.js copies js/a/b.js as a/b.js).
// A missing base directory copies nothing.
func copyGlob(glob, destDir string) (copyResult, error) {
	var res copyResult
	base, pattern := splitGlob(glob)
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return res, ferrors.FileSystemError("glob failed").
			WithCause(err).WithContext("glob", glob).Build()
	}
	for _, rel := range matches {
		dst := filepath.Join(destDir, filepath.FromSlash(rel))
		n, err := copyFile(filepath.Join(base, filepath.FromSlash(rel)), dst)
		if err != nil {
			return res, ferrors.FileSystemError("copy failed").
				WithCause(err).WithContext("path", rel).Build()
		}
		res.files = append(res.files, dst)
		res.bytes += n
	}
	return res, nil
}

// splitGlob separates the static directory prefix of g from its pattern.
func splitGlob(g string) (base, pattern string) {
	base, pattern = doublestar.SplitPattern(filepath.ToSlash(g))
	return filepath.FromSlash(base), pattern
}
