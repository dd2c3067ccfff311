// Package metrics provides observability hooks for task and pipeline execution.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so callers never need nil checks:
//
//	p := pipeline.New(reg, runner, pipeline.WithRecorder(metrics.NoopRecorder{}))
//
// The serve command swaps in a PrometheusRecorder when serve.metrics is enabled and
// exposes it through HTTPHandler on the dev server.
package metrics
