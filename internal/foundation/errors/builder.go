package errors

// ErrorBuilder assembles a ClassifiedError fluently:
//
//	ferrors.TemplateError("failed to parse templates").
//		WithCause(err).
//		WithContext("path", dir).
//		Build()
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error of the given category with SeverityError.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		message:  message,
	}}
}

// WrapError starts an error that wraps cause.
func WrapError(cause error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(cause)
}

func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.err.severity = severity
	return b
}

func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.err.cause = err
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.with(key, value)
	return b
}

// ForTask records the task the error belongs to.
func (b *ErrorBuilder) ForTask(name string) *ErrorBuilder {
	return b.WithContext(KeyTask, name)
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder   { return b.WithSeverity(SeverityFatal) }
func (b *ErrorBuilder) Warning() *ErrorBuilder { return b.WithSeverity(SeverityWarning) }

// Build returns the finished error. The builder may be reused afterwards
// without affecting errors it already built.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	return &out
}

// Category constructors. Config-level, server and internal failures end the
// process and are fatal; build failures are plain errors so watch mode can
// log them and keep going.

func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

func TaskError(message string) *ErrorBuilder {
	return NewError(CategoryTask, message)
}

// PipelineError is fatal because it is only built at the one-shot build boundary.
func PipelineError(message string) *ErrorBuilder {
	return NewError(CategoryPipeline, message).Fatal()
}

func TemplateError(message string) *ErrorBuilder {
	return NewError(CategoryTemplate, message)
}

func StyleError(message string) *ErrorBuilder {
	return NewError(CategoryStyle, message)
}

func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

func WatchError(message string) *ErrorBuilder {
	return NewError(CategoryWatch, message)
}

func ServerError(message string) *ErrorBuilder {
	return NewError(CategoryServer, message).Fatal()
}

func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
