package config

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// enumNormalizer case-folds raw strings onto a closed set of values.
type enumNormalizer[T ~string] struct {
	values map[string]T
	def    T
}

func newEnumNormalizer[T ~string](def T, values ...T) enumNormalizer[T] {
	m := make(map[string]T, len(values)+1)
	for _, v := range values {
		m[string(v)] = v
	}
	return enumNormalizer[T]{values: m, def: def}
}

// normalize returns the canonical value; empty input yields the default.
func (n enumNormalizer[T]) normalize(raw string) (T, error) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return n.def, nil
	}
	if v, ok := n.values[cleaned]; ok {
		return v, nil
	}
	return n.def, fmt.Errorf("invalid value %q, valid options: %v", raw, n.keys())
}

func (n enumNormalizer[T]) keys() []string {
	out := make([]string, 0, len(n.values))
	for k := range n.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var (
	logLevelNormalizer  = newEnumNormalizer(LogLevelInfo, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)
	logFormatNormalizer = newEnumNormalizer(LogFormatText, LogFormatText, LogFormatJSON)
)

// NormalizeLogLevel maps raw to a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	v, _ := logLevelNormalizer.normalize(raw)
	return v
}

// NormalizeLogFormat maps raw to a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	v, _ := logFormatNormalizer.normalize(raw)
	return v
}

// SlogLevel converts the level for slog handlers.
func (l LogLevel) SlogLevel() slog.Level {
	switch NormalizeLogLevel(string(l)) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
