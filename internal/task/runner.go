package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Runner executes a single task action to completion.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a Runner. A nil logger uses slog.Default().
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run calls the task's action exactly once and blocks until it reports completion.
// Failures, including panics inside the action, are returned as *TaskExecutionError.
func (r *Runner) Run(ctx context.Context, t Task, trig Trigger) (out Outcome, err error) {
	start := time.Now()
	r.logger.Debug("Task started", logfields.Task(t.Name), logfields.RunID(trig.RunID))

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Task panicked", logfields.Task(t.Name), slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
			out = Outcome{}
			err = &TaskExecutionError{TaskName: t.Name, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()

	artifacts, actionErr := t.Action(ctx, trig)
	dur := time.Since(start)
	if actionErr != nil {
		return Outcome{}, &TaskExecutionError{TaskName: t.Name, Cause: actionErr}
	}

	r.logger.Debug("Task completed", logfields.Task(t.Name), logfields.Duration(dur), logfields.Artifacts(len(artifacts)))
	return Outcome{Task: t.Name, Kind: t.Kind, Artifacts: artifacts, Duration: dur}, nil
}
