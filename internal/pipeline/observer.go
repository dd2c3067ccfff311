package pipeline

import (
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Observer receives lifecycle callbacks for pipeline runs.
type Observer interface {
	OnTaskStart(runID, task string)
	OnTaskComplete(runID, task string, duration time.Duration, err error)
	OnRunComplete(result *Result, err error)
}

// NoopObserver is a no-op implementation; embed it to implement only some callbacks.
type NoopObserver struct{}

func (NoopObserver) OnTaskStart(string, string)                           {}
func (NoopObserver) OnTaskComplete(string, string, time.Duration, error) {}
func (NoopObserver) OnRunComplete(*Result, error)                         {}

// recorderObserver adapts metrics.Recorder into an Observer.
type recorderObserver struct {
	NoopObserver
	rec metrics.Recorder
}

func (o recorderObserver) OnTaskComplete(_ string, task string, d time.Duration, err error) {
	o.rec.ObserveTaskDuration(task, d)
	o.rec.IncTaskResult(task, resultLabel(err))
}

func (o recorderObserver) OnRunComplete(result *Result, err error) {
	if result != nil {
		o.rec.ObservePipelineDuration(result.Duration)
	}
	if err != nil {
		o.rec.IncPipelineOutcome(metrics.OutcomeFailed)
		return
	}
	o.rec.IncPipelineOutcome(metrics.OutcomeSucceeded)
}

// multiObserver fans callbacks out in order.
type multiObserver []Observer

func (m multiObserver) OnTaskStart(runID, task string) {
	for _, o := range m {
		o.OnTaskStart(runID, task)
	}
}

func (m multiObserver) OnTaskComplete(runID, task string, d time.Duration, err error) {
	for _, o := range m {
		o.OnTaskComplete(runID, task, d, err)
	}
}

func (m multiObserver) OnRunComplete(result *Result, err error) {
	for _, o := range m {
		o.OnRunComplete(result, err)
	}
}
