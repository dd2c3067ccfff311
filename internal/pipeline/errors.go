package pipeline

import (
	"errors"
	"fmt"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

// PipelineError reports the task that aborted a run and what had completed before it.
type PipelineError struct {
	RunID          string
	FailedTask     string
	Cause          error
	CompletedTasks []string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline aborted at task %s: %v", e.FailedTask, e.Cause)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// Classify converts task graph and pipeline errors into classified errors for the
// CLI boundary. Registry errors are configuration errors; run failures are build
// errors naming the failed task, keeping any context the task itself attached.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pe *PipelineError
	if errors.As(err, &pe) {
		return classifyRunFailure(pe)
	}
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}

	var (
		dup     *task.DuplicateTaskError
		unknown *task.UnknownTaskError
		cyc     *task.CyclicDependencyError
	)
	switch {
	case errors.As(err, &dup):
		return ferrors.ConfigError("duplicate task").WithCause(err).ForTask(dup.Name).Build()
	case errors.As(err, &unknown):
		return ferrors.ConfigError("unknown task").WithCause(err).ForTask(unknown.Name).Build()
	case errors.As(err, &cyc):
		return ferrors.ConfigError("cyclic task dependencies").WithCause(err).Build()
	default:
		return ferrors.WrapError(err, ferrors.CategoryInternal, "unexpected build error").Build()
	}
}

func classifyRunFailure(pe *PipelineError) error {
	cause := pe.Cause
	var execErr *task.TaskExecutionError
	if errors.As(cause, &execErr) {
		cause = execErr.Cause
	}

	b := ferrors.PipelineError("build failed")
	if inner, ok := ferrors.AsClassified(cause); ok {
		ctx := inner.Context()
		for _, k := range ctx.Keys() {
			b.WithContext(k, ctx[k])
		}
		b.WithContext("reason", inner.Message())
		cause = inner.Cause()
		if cause == nil {
			cause = errors.New(inner.Message())
		}
	}
	return b.WithCause(cause).ForTask(pe.FailedTask).Build()
}

func resultLabel(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, errCanceled):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}
