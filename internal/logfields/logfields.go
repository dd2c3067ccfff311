package logfields

import (
	"log/slog"
	"strings"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTask       = "task"
	KeyTasks      = "tasks"
	KeyRunID      = "run_id"
	KeyReason     = "reason"
	KeyPath       = "path"
	KeyChange     = "change"
	KeyReloadKind = "reload_kind"
	KeyDurationMS = "duration_ms"
	KeyArtifacts  = "artifacts"
	KeyState      = "state"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Task(name string) slog.Attr           { return slog.String(KeyTask, name) }
func Tasks(names []string) slog.Attr       { return slog.String(KeyTasks, strings.Join(names, ",")) }
func RunID(id string) slog.Attr            { return slog.String(KeyRunID, id) }
func Reason(r string) slog.Attr            { return slog.String(KeyReason, r) }
func Path(p string) slog.Attr              { return slog.String(KeyPath, p) }
func Change(kind string) slog.Attr         { return slog.String(KeyChange, kind) }
func ReloadKind(kind string) slog.Attr     { return slog.String(KeyReloadKind, kind) }
func Artifacts(n int) slog.Attr            { return slog.Int(KeyArtifacts, n) }
func State(s string) slog.Attr             { return slog.String(KeyState, s) }
func DurationMS(ms float64) slog.Attr      { return slog.Float64(KeyDurationMS, ms) }
func Duration(d time.Duration) slog.Attr   { return DurationMS(float64(d.Microseconds()) / 1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
