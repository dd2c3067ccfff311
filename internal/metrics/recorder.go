package metrics

import "time"

// ResultLabel enumerates task result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// OutcomeLabel enumerates pipeline run outcomes.
type OutcomeLabel string

const (
	OutcomeSucceeded OutcomeLabel = "succeeded"
	OutcomeFailed    OutcomeLabel = "failed"
)

// Recorder defines observability hooks for task and pipeline metrics.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	ObservePipelineDuration(d time.Duration)
	IncPipelineOutcome(outcome OutcomeLabel)
	IncWatchTrigger(subscription string)
	IncReloadEvent(kind string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) ObservePipelineDuration(time.Duration)     {}
func (NoopRecorder) IncPipelineOutcome(OutcomeLabel)           {}
func (NoopRecorder) IncWatchTrigger(string)                    {}
func (NoopRecorder) IncReloadEvent(string)                     {}
