package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/livereload"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html><body><h1>Home</h1></body></html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "app.css"), []byte("body{}"), 0o600))
	return dir
}

func get(t *testing.T, h http.Handler, path string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	resp := rec.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHandler_InjectsScriptIntoPages(t *testing.T) {
	h := New(Options{OutputDir: writeSite(t), Hub: livereload.NewHub(nil)}).Handler()

	resp, body := get(t, h, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html><body><h1>Home</h1>"+scriptTag+"</body></html>", body)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	_, css := get(t, h, "/css/app.css")
	assert.Equal(t, "body{}", css)

	resp, js := get(t, h, "/livereload.js")
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Equal(t, livereload.ClientScript, js)
}

func TestHandler_WithoutLiveReload(t *testing.T) {
	h := New(Options{OutputDir: writeSite(t)}).Handler()

	_, body := get(t, h, "/")
	assert.NotContains(t, body, "livereload")

	resp, _ := get(t, h, "/livereload.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.IncReloadEvent("full-reload")
	h := New(Options{OutputDir: writeSite(t), Metrics: metrics.HTTPHandler(reg)}).Handler()

	resp, body := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "sitebuilder_reload_events_total")
}

func TestInjector_PassesThroughNonHTML(t *testing.T) {
	h := injectLiveReload(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}</body>`))
	}))
	_, body := get(t, h, "/data/")
	assert.Equal(t, `{"ok":true}</body>`, body)
}

func TestInjector_LargePagePassesThrough(t *testing.T) {
	page := "<html><body>" + strings.Repeat("x", maxInjectSize) + "</body></html>"
	h := injectLiveReload(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page[:1024]))
		_, _ = w.Write([]byte(page[1024:]))
	}))
	_, body := get(t, h, "/big.html")
	assert.Equal(t, page, body)
}

func TestDevServer_StartStop(t *testing.T) {
	s := New(Options{Addr: "127.0.0.1:0", OutputDir: writeSite(t), Hub: livereload.NewHub(nil)})
	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), scriptTag)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
