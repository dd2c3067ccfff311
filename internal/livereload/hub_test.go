package livereload

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/events"
)

func readEvent(t *testing.T, r *bufio.Reader) ReloadEvent {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var evt ReloadEvent
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(data)), &evt))
			return evt
		}
	}
}

func TestHub_DeliversBusEventsToClients(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()
	bus := events.NewBus()
	defer bus.Close()
	detach := hub.Attach(bus)
	defer detach()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, ReloadEvent{Kind: KindStyleInjection, Stylesheet: "/css/app.css"}))

	evt := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, KindStyleInjection, evt.Kind)
	assert.Equal(t, "/css/app.css", evt.Stylesheet)
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Shutdown()

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livereload", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 0, hub.ClientCount())
}
