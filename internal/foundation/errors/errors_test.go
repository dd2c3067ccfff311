package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError_Error(t *testing.T) {
	cause := errors.New("unexpected EOF")

	plain := TemplateError("failed to parse templates").Build()
	assert.Equal(t, "[template] failed to parse templates", plain.Error())

	withTask := PipelineError("build failed").ForTask("render-pages").WithCause(cause).Build()
	assert.Equal(t, "[pipeline] build failed (task render-pages): unexpected EOF", withTask.Error())
	assert.ErrorIs(t, withTask, cause)
}

func TestClassifiedError_Accessors(t *testing.T) {
	err := NewError(CategoryConfig, "invalid configuration").
		Fatal().
		WithContext("file", "sitebuilder.yaml").
		Build()

	assert.Equal(t, CategoryConfig, err.Category())
	assert.Equal(t, SeverityFatal, err.Severity())
	assert.Equal(t, "invalid configuration", err.Message())
	assert.True(t, err.IsFatal())
	assert.Empty(t, err.Task())

	file, ok := err.Context().String("file")
	require.True(t, ok)
	assert.Equal(t, "sitebuilder.yaml", file)
}

func TestClassifiedError_WithContextCopies(t *testing.T) {
	base := TaskError("task failed").Build()
	derived := base.WithContext(KeyTask, "clean-output")

	assert.Empty(t, base.Task())
	assert.Equal(t, "clean-output", derived.Task())
}

func TestErrorBuilder_BuildSnapshots(t *testing.T) {
	b := StyleError("stylesheet compile failed").WithContext("entry", "app.css")
	first := b.Build()
	second := b.WithContext("line", 3).Warning().Build()

	assert.Equal(t, []string{"entry"}, first.Context().Keys())
	assert.Equal(t, SeverityError, first.Severity())
	assert.Equal(t, []string{"entry", "line"}, second.Context().Keys())
	assert.Equal(t, SeverityWarning, second.Severity())
}

func TestClassification_ThroughWrapping(t *testing.T) {
	inner := PipelineError("build failed").ForTask("render-pages").Build()
	wrapped := fmt.Errorf("serve: %w", inner)

	assert.True(t, IsClassified(wrapped))
	assert.True(t, HasCategory(wrapped, CategoryPipeline))
	assert.Equal(t, CategoryPipeline, CategoryOf(wrapped))
	assert.Equal(t, SeverityFatal, SeverityOf(wrapped))

	plain := errors.New("plain")
	assert.False(t, IsClassified(plain))
	assert.Equal(t, CategoryInternal, CategoryOf(plain))
	assert.Equal(t, SeverityError, SeverityOf(plain))
}

func TestErrorCategory_ExitCode(t *testing.T) {
	assert.Equal(t, 11, CategoryStyle.ExitCode())
	assert.Equal(t, 7, CategoryConfig.ExitCode())
	assert.Equal(t, 1, ErrorCategory("unknown").ExitCode())
}

func TestClassifiedError_Attrs(t *testing.T) {
	err := WrapError(errors.New("boom"), CategoryWatch, "watcher failed").
		WithContext("path", "src").
		WithContext("op", "add").
		Build()

	keys := make([]string, 0, 4)
	for _, a := range err.Attrs() {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{"category", "op", "path", "error"}, keys)
	assert.Equal(t, slog.StringValue("watch").String(), err.Attrs()[0].Value.String())
}
