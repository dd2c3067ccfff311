package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
)

// ClassifiedError is an error with a category, a severity and structured
// context. Build it with NewError or one of the category constructors.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

func (e *ClassifiedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.category, e.message)
	if task := e.Task(); task != "" {
		fmt.Fprintf(&b, " (task %s)", task)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity { return e.severity }
func (e *ClassifiedError) Message() string         { return e.message }
func (e *ClassifiedError) Cause() error            { return e.cause }
func (e *ClassifiedError) Context() ErrorContext   { return e.context }

// Task returns the task name recorded in the context, if any.
func (e *ClassifiedError) Task() string {
	name, _ := e.context.String(KeyTask)
	return name
}

// IsFatal reports whether the error should end the process.
func (e *ClassifiedError) IsFatal() bool { return e.severity == SeverityFatal }

// WithContext returns a copy of e with key set; e is left untouched.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	cp := *e
	cp.context = e.context.with(key, value)
	return &cp
}

// Attrs renders the category, context and cause as slog attributes with
// context keys in sorted order.
func (e *ClassifiedError) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(e.context)+2)
	attrs = append(attrs, slog.String("category", string(e.category)))
	for _, k := range e.context.Keys() {
		attrs = append(attrs, slog.Any(k, e.context[k]))
	}
	if e.cause != nil {
		attrs = append(attrs, slog.String("error", e.cause.Error()))
	}
	return attrs
}

// AsClassified finds the first ClassifiedError in the chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// IsClassified reports whether err wraps a ClassifiedError.
func IsClassified(err error) bool {
	_, ok := AsClassified(err)
	return ok
}

// HasCategory reports whether the first ClassifiedError in the chain has category.
func HasCategory(err error, category ErrorCategory) bool {
	c, ok := AsClassified(err)
	return ok && c.category == category
}

// CategoryOf returns the category of err, or CategoryInternal for plain errors.
func CategoryOf(err error) ErrorCategory {
	if c, ok := AsClassified(err); ok {
		return c.category
	}
	return CategoryInternal
}

// SeverityOf returns the severity of err, or SeverityError for plain errors.
func SeverityOf(err error) ErrorSeverity {
	if c, ok := AsClassified(err); ok {
		return c.severity
	}
	return SeverityError
}
