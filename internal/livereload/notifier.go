package livereload

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/events"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

// Notifier publishes exactly one ReloadEvent per successful triggered run on the bus.
type Notifier struct {
	bus       *events.Bus
	outputDir string
	recorder  metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewNotifier creates a Notifier. outputDir is used to turn stylesheet artifacts
// into URL paths.
func NewNotifier(bus *events.Bus, outputDir string, recorder metrics.Recorder, logger *slog.Logger) *Notifier {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if abs, err := filepath.Abs(outputDir); err == nil {
		outputDir = abs
	}
	return &Notifier{bus: bus, outputDir: outputDir, recorder: recorder, logger: logger, now: time.Now}
}

// Notify reports a pipeline outcome. Failed runs are logged and produce no event.
// It returns the published event and whether one was published.
func (n *Notifier) Notify(ctx context.Context, result *pipeline.Result, runErr error) (ReloadEvent, bool) {
	if runErr != nil || result == nil {
		n.logger.Warn("Rebuild failed; keeping previous output, no reload sent", logfields.Error(runErr))
		return ReloadEvent{}, false
	}

	evt := ReloadEvent{Kind: KindFullReload, RunID: result.RunID, At: n.now()}
	if sheet, ok := n.styleOnly(result); ok {
		evt.Kind = KindStyleInjection
		evt.Stylesheet = sheet
	}
	return evt, n.publish(ctx, evt)
}

// NotifyChanged reports output changes that did not come from a pipeline run.
func (n *Notifier) NotifyChanged(ctx context.Context, paths []string) (ReloadEvent, bool) {
	if len(paths) == 0 {
		return ReloadEvent{}, false
	}
	evt := ReloadEvent{Kind: KindFullReload, At: n.now()}
	sheets := make([]string, 0, len(paths))
	for _, p := range paths {
		u, ok := n.urlPath(p)
		if !ok || !isStylesheet(p) {
			sheets = nil
			break
		}
		sheets = append(sheets, u)
	}
	if len(sheets) > 0 {
		// An empty Stylesheet asks clients to refresh every stylesheet.
		evt.Kind = KindStyleInjection
		if len(sheets) == 1 {
			evt.Stylesheet = sheets[0]
		}
	}
	return evt, n.publish(ctx, evt)
}

func (n *Notifier) publish(ctx context.Context, evt ReloadEvent) bool {
	if n.bus != nil {
		if err := n.bus.Publish(ctx, evt); err != nil {
			n.logger.Warn("Failed to publish reload event", logfields.ReloadKind(string(evt.Kind)), logfields.Error(err))
			return false
		}
	}
	n.recorder.IncReloadEvent(string(evt.Kind))
	n.logger.Info("Reload event sent", logfields.ReloadKind(string(evt.Kind)), logfields.RunID(evt.RunID), slog.String("stylesheet", evt.Stylesheet))
	return true
}

// styleOnly reports the stylesheet URL when every executed task is a stylesheet
// task and at least one CSS artifact lies inside the output tree.
func (n *Notifier) styleOnly(result *pipeline.Result) (string, bool) {
	if len(result.Tasks) == 0 {
		return "", false
	}
	sheet := ""
	for _, t := range result.Tasks {
		if t.Kind != task.KindStylesheet {
			return "", false
		}
		for _, a := range t.Artifacts {
			if sheet != "" || !isStylesheet(a) {
				continue
			}
			if u, ok := n.urlPath(a); ok {
				sheet = u
			}
		}
	}
	return sheet, sheet != ""
}

func (n *Notifier) urlPath(p string) (string, bool) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(n.outputDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return "/" + filepath.ToSlash(rel), true
}

func isStylesheet(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".css")
}
