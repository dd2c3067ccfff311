// Package livereload turns pipeline outcomes into reload events and delivers them
// to development clients over server-sent events.
package livereload

import "time"

// Kind is the client action a ReloadEvent requests.
type Kind string

const (
	KindFullReload     Kind = "full-reload"
	KindStyleInjection Kind = "style-injection"
)

// ReloadEvent instructs connected clients to refresh.
type ReloadEvent struct {
	Kind Kind `json:"kind"`
	// Stylesheet is the URL path of the updated stylesheet for style injections.
	Stylesheet string    `json:"stylesheet,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
	At         time.Time `json:"at"`
}
