package watch

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// FSNotifySource watches directory trees recursively. The parent of each root is
// watched too, so a root that is removed and recreated is picked up again.
type FSNotifySource struct {
	watcher *fsnotify.Watcher
	roots   map[string]struct{}
	events  chan Event
	errs    chan error
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	logger  *slog.Logger
}

// NewFSNotifySource starts watching roots. A missing root is attached when it
// appears, provided its parent directory exists.
func NewFSNotifySource(logger *slog.Logger, roots ...string) (*FSNotifySource, error) {
	if len(roots) == 0 {
		return nil, ferrors.ValidationError("at least one watch root is required").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WatchError("failed to create filesystem watcher").WithCause(err).Build()
	}
	s := &FSNotifySource{
		watcher: w,
		roots:   make(map[string]struct{}, len(roots)),
		events:  make(chan Event, 64),
		errs:    make(chan error, 8),
		done:    make(chan struct{}),
		logger:  logger,
	}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			_ = w.Close()
			return nil, ferrors.FileSystemError("failed to resolve watch root").
				WithCause(err).WithContext("path", r).Build()
		}
		s.roots[abs] = struct{}{}
		parent := filepath.Dir(abs)
		if err := w.Add(parent); err != nil {
			// Missing roots (e.g. an uninstalled vendor tree) are not fatal.
			logger.Warn("Skipping watch root", logfields.Path(abs), logfields.Error(err))
			continue
		}
		s.addRecursive(abs)
	}

	s.wg.Add(1)
	go s.loop()
	return s, nil
}

func (s *FSNotifySource) Events() <-chan Event { return s.events }
func (s *FSNotifySource) Errors() <-chan error { return s.errs }

// Close stops the watcher and closes both channels.
func (s *FSNotifySource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
		close(s.events)
		close(s.errs)
	})
	return err
}

func (s *FSNotifySource) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errs <- err:
			default:
				s.logger.Warn("watcher error", logfields.Error(err))
			}
		}
	}
}

func (s *FSNotifySource) handle(ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || !s.inRoots(ev.Name) {
		return
	}
	var kind ChangeKind
	switch {
	case ev.Has(fsnotify.Create):
		kind = ChangeAdded
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			s.addRecursive(ev.Name)
		}
	case ev.Has(fsnotify.Write):
		kind = ChangeModified
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind = ChangeRemoved
	default:
		return
	}
	s.logger.Debug("File change detected", logfields.Path(ev.Name), logfields.Change(string(kind)))
	select {
	case s.events <- Event{Path: ev.Name, Kind: kind, Time: time.Now()}:
	case <-s.done:
	}
}

// inRoots filters out siblings reported through the parent watches.
func (s *FSNotifySource) inRoots(path string) bool {
	for root := range s.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (s *FSNotifySource) addRecursive(root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := s.watcher.Add(path); err != nil {
				s.logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("watch walk failed", logfields.Path(root), logfields.Error(err))
	}
}

// shouldIgnoreEvent reports hidden, editor temp and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
