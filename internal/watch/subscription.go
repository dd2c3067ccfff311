package watch

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Subscription maps path globs under BaseDir to the tasks they re-trigger.
// A ReloadOnly subscription requests a client reload without running tasks.
type Subscription struct {
	Name       string
	BaseDir    string
	Patterns   []string
	Tasks      []string
	ReloadOnly bool
}

// Validate checks that the subscription is usable.
func (s Subscription) Validate() error {
	if s.Name == "" {
		return ferrors.ValidationError("subscription name is required").Build()
	}
	if len(s.Patterns) == 0 {
		return ferrors.ValidationError("subscription has no patterns").
			WithContext("subscription", s.Name).Build()
	}
	if !s.ReloadOnly && len(s.Tasks) == 0 {
		return ferrors.ValidationError("subscription maps to no tasks").
			WithContext("subscription", s.Name).Build()
	}
	for _, p := range s.Patterns {
		if !doublestar.ValidatePattern(p) {
			return ferrors.ValidationError("invalid glob pattern").
				WithContext("subscription", s.Name).
				WithContext("pattern", p).Build()
		}
	}
	return nil
}

// Match reports whether path lies under BaseDir and matches one of the patterns.
func (s Subscription) Match(path string) bool {
	rel, ok := relativeTo(s.BaseDir, path)
	if !ok {
		return false
	}
	for _, p := range s.Patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (s Subscription) normalized() Subscription {
	if abs, err := filepath.Abs(s.BaseDir); err == nil {
		s.BaseDir = abs
	}
	s.Patterns = append([]string(nil), s.Patterns...)
	s.Tasks = append([]string(nil), s.Tasks...)
	return s
}

func relativeTo(base, path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
