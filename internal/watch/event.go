// Package watch maps filesystem changes to task subsets and drives rebuilds
// through the pipeline, one run at a time.
package watch

import "time"

// ChangeKind classifies a filesystem change.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Event is a single filesystem change.
type Event struct {
	Path string
	Kind ChangeKind
	Time time.Time
}

// Source produces change events until closed. Events and Errors are closed
// when the source shuts down.
type Source interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}
