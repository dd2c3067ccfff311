package livereload

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/events"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

const heartbeatInterval = 30 * time.Second

// Hub manages SSE clients and forwards reload events to them.
type Hub struct {
	mu      sync.RWMutex
	nextID  int
	clients map[int]*client
	closed  bool
	logger  *slog.Logger
}

type client struct {
	id   int
	ch   chan []byte
	done chan struct{}
}

// NewHub creates a Hub. A nil logger uses slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: map[int]*client{}, logger: logger}
}

// Attach subscribes the hub to reload events on bus. The returned function
// detaches it and waits for the forwarding goroutine to exit.
func (h *Hub) Attach(bus *events.Bus) func() {
	ch, unsubscribe := events.Subscribe[ReloadEvent](bus, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for evt := range ch {
			h.Broadcast(evt)
		}
	}()
	return func() {
		unsubscribe()
		wg.Wait()
	}
}

// ServeHTTP implements the SSE endpoint at /livereload.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := &client{ch: make(chan []byte, 8), done: make(chan struct{})}
	h.mu.Lock()
	c.id = h.nextID
	h.nextID++
	h.clients[c.id] = c
	h.mu.Unlock()
	defer h.removeClient(c.id)

	bw := bufio.NewWriter(w)
	write := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			h.logger.Debug("livereload write", logfields.Error(err))
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	if !write(": connected\n\n") {
		return
	}

	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-hb.C:
			if !write(": ping\n\n") {
				return
			}
		case payload := <-c.ch:
			if !write("data: " + string(payload) + "\n\n") {
				return
			}
		}
	}
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends evt to all clients, dropping clients whose buffers are full.
func (h *Hub) Broadcast(evt ReloadEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("livereload encode", logfields.Error(err))
		return
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- payload:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.logger.Debug("livereload broadcast", logfields.ReloadKind(string(evt.Kind)), slog.Int("clients", len(snapshot)), slog.Int("dropped", dropped))
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*client{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
}
