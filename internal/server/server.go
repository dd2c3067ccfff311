// Package server is the development HTTP server: it serves the output tree,
// injects the live-reload client into pages and exposes the SSE stream.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/livereload"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Options configures a DevServer.
type Options struct {
	Addr      string
	OutputDir string
	// Hub enables live reload when set.
	Hub *livereload.Hub
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// DevServer serves the built site.
type DevServer struct {
	opts   Options
	logger *slog.Logger

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// New creates a DevServer.
func New(opts Options) *DevServer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DevServer{opts: opts, logger: logger}
}

// Handler builds the request router.
func (s *DevServer) Handler() http.Handler {
	mux := http.NewServeMux()

	var site http.Handler = http.FileServer(http.Dir(s.opts.OutputDir))
	if s.opts.Hub != nil {
		mux.Handle("/livereload", s.opts.Hub)
		mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			if _, err := w.Write([]byte(livereload.ClientScript)); err != nil {
				s.logger.Error("failed to write livereload script", logfields.Error(err))
			}
		})
		site = injectLiveReload(site)
	}
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	mux.Handle("/", noStore(site))
	return mux
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Start binds the listener and serves in the background. Bind errors are
// returned immediately.
func (s *DevServer) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ferrors.ServerError("dev server already started").Build()
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return ferrors.ServerError("failed to bind dev server").
			WithCause(err).WithContext("addr", s.opts.Addr).Build()
	}
	// No write timeout: SSE connections are long-lived.
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 300 * time.Second}
	s.srv, s.ln = srv, ln
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Dev server stopped", logfields.Error(err))
		}
	}()
	s.logger.Info("Serving site", slog.String("url", "http://"+ln.Addr().String()+"/"), logfields.Path(s.opts.OutputDir))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *DevServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.opts.Addr
}

// Stop closes live-reload streams and shuts the server down.
func (s *DevServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if s.opts.Hub != nil {
		s.opts.Hub.Shutdown()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return ferrors.ServerError("dev server shutdown").WithCause(err).Build()
	}
	s.logger.Info("Dev server stopped")
	return nil
}
