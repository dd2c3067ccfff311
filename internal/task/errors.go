package task

import (
	"fmt"
	"strings"
)

// DuplicateTaskError is returned when a task name is registered twice.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %q already registered", e.Name)
}

// UnknownTaskError is returned when a requested task, or a dependency, is not registered.
type UnknownTaskError struct {
	Name string
	// RequiredBy is the task declaring the dependency; empty when the name was requested directly.
	RequiredBy string
}

func (e *UnknownTaskError) Error() string {
	if e.RequiredBy != "" {
		return fmt.Sprintf("unknown task %q (dependency of %q)", e.Name, e.RequiredBy)
	}
	return fmt.Sprintf("unknown task %q", e.Name)
}

// CyclicDependencyError reports a dependency cycle. Cycle starts and ends with the same task.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "dependency cycle: " + strings.Join(e.Cycle, " -> ")
}

// TaskExecutionError wraps the failure of a single task action.
type TaskExecutionError struct {
	TaskName string
	Cause    error
}

func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskName, e.Cause)
}

func (e *TaskExecutionError) Unwrap() error { return e.Cause }
