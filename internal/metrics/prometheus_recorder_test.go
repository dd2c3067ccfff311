package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveTaskDuration("render-pages", 150*time.Millisecond)
	pr.IncTaskResult("render-pages", ResultSuccess)
	pr.IncTaskResult("compile-styles", ResultFailed)
	pr.ObservePipelineDuration(500 * time.Millisecond)
	pr.IncPipelineOutcome(OutcomeSucceeded)
	pr.IncWatchTrigger("styles")
	pr.IncReloadEvent("style-injection")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 6)

	assert.InDelta(t, 1, testutil.ToFloat64(pr.taskResults.WithLabelValues("compile-styles", "failed")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.reloadEvents.WithLabelValues("style-injection")), 0.001)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveTaskDuration("x", time.Second)
	pr.IncTaskResult("x", ResultSuccess)
	pr.ObservePipelineDuration(time.Second)
	pr.IncPipelineOutcome(OutcomeFailed)
	pr.IncWatchTrigger("x")
	pr.IncReloadEvent("full-reload")
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncPipelineOutcome(OutcomeSucceeded)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitebuilder_pipeline_outcomes_total")
}
