package errors

import (
	"log/slog"
	"maps"
	"slices"
)

// ErrorCategory groups errors by the part of the build that produced them.
// The CLI derives its exit code from it.
type ErrorCategory string

const (
	CategoryConfig        ErrorCategory = "config"
	CategoryValidation    ErrorCategory = "validation"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryAlreadyExists ErrorCategory = "already_exists"

	// Build errors: task graph, pipeline runs and the task actions themselves.
	CategoryTask     ErrorCategory = "task"
	CategoryPipeline ErrorCategory = "pipeline"
	CategoryTemplate ErrorCategory = "template"
	CategoryStyle    ErrorCategory = "style"

	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryWatch      ErrorCategory = "watch"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryServer   ErrorCategory = "server"
	CategoryInternal ErrorCategory = "internal"
)

var exitCodes = map[ErrorCategory]int{
	CategoryValidation:    2,
	CategoryNotFound:      3,
	CategoryAlreadyExists: 3,
	CategoryConfig:        7,
	CategoryFileSystem:    8,
	CategoryWatch:         8,
	CategoryInternal:      10,
	CategoryPipeline:      11,
	CategoryTask:          11,
	CategoryTemplate:      11,
	CategoryStyle:         11,
	CategoryServer:        12,
	CategoryRuntime:       12,
}

// ExitCode is the process exit status for errors of this category.
func (c ErrorCategory) ExitCode() int {
	if code, ok := exitCodes[c]; ok {
		return code
	}
	return 1
}

// ErrorSeverity decides whether the CLI logs the error in addition to printing it.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
	SeverityInfo    ErrorSeverity = "info"
)

// Level maps the severity onto a slog level.
func (s ErrorSeverity) Level() slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// ErrorContext holds key/value details such as the failing task or path.
// Values are never modified in place; with returns a copy.
type ErrorContext map[string]any

// KeyTask is the context key naming the task an error belongs to.
const KeyTask = "task"

func (c ErrorContext) with(key string, value any) ErrorContext {
	out := make(ErrorContext, len(c)+1)
	maps.Copy(out, c)
	out[key] = value
	return out
}

// String returns the value for key when it is a string.
func (c ErrorContext) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// Keys returns the context keys in sorted order.
func (c ErrorContext) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}
