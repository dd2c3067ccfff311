package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	taskDuration     *prom.HistogramVec
	taskResults      *prom.CounterVec
	pipelineDuration prom.Histogram
	pipelineOutcome  *prom.CounterVec
	watchTriggers    *prom.CounterVec
	reloadEvents     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.taskDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitebuilder",
			Name:      "task_duration_seconds",
			Help:      "Duration of individual build tasks",
			Buckets:   prom.DefBuckets,
		}, []string{"task"})
		pr.taskResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "task_results_total",
			Help:      "Task result counts by outcome",
		}, []string{"task", "result"})
		pr.pipelineDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "sitebuilder",
			Name:      "pipeline_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.pipelineOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "pipeline_outcomes_total",
			Help:      "Pipeline runs by final status",
		}, []string{"outcome"})
		pr.watchTriggers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "watch_triggers_total",
			Help:      "Filesystem events matched per subscription",
		}, []string{"subscription"})
		pr.reloadEvents = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "reload_events_total",
			Help:      "Reload events emitted to development clients",
		}, []string{"kind"})
		reg.MustRegister(pr.taskDuration, pr.taskResults, pr.pipelineDuration, pr.pipelineOutcome, pr.watchTriggers, pr.reloadEvents)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil || p.taskDuration == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	if p == nil || p.taskResults == nil {
		return
	}
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) ObservePipelineDuration(d time.Duration) {
	if p == nil || p.pipelineDuration == nil {
		return
	}
	p.pipelineDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPipelineOutcome(outcome OutcomeLabel) {
	if p == nil || p.pipelineOutcome == nil {
		return
	}
	p.pipelineOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncWatchTrigger(subscription string) {
	if p == nil || p.watchTriggers == nil {
		return
	}
	p.watchTriggers.WithLabelValues(subscription).Inc()
}

func (p *PrometheusRecorder) IncReloadEvent(kind string) {
	if p == nil || p.reloadEvents == nil {
		return
	}
	p.reloadEvents.WithLabelValues(kind).Inc()
}
