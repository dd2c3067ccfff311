// Package task defines named build tasks, the registry that resolves their
// dependency order, and the runner that executes a single task.
package task

import (
	"context"
	"time"
)

// Kind classifies what a task produces. Live reload uses it to decide between a
// stylesheet swap and a full page reload.
type Kind string

const (
	KindGeneric    Kind = "generic"
	KindStylesheet Kind = "stylesheet"
)

// Artifacts are the paths a task action wrote.
type Artifacts []string

// Trigger describes why a task is running.
type Trigger struct {
	RunID  string
	Reason string
	// Paths holds the changed paths for watch-triggered runs; empty for full builds.
	Paths []string
}

// Action performs the task's work. It must return only after the work has
// completed, whether or not it used goroutines internally.
type Action func(ctx context.Context, trig Trigger) (Artifacts, error)

// Task is a named unit of build work. Tasks are registered once and never mutated.
type Task struct {
	Name        string
	Description string
	Kind        Kind
	// Deps run, in order, before this task.
	Deps []string
	// Inputs are globs (relative to the project root) whose changes should re-run this task.
	Inputs []string
	Action Action
}

// Outcome is the result of one successful task execution.
type Outcome struct {
	Task      string
	Kind      Kind
	Artifacts Artifacts
	Duration  time.Duration
}
