// Package server exposes livespell over HTTP.
//
// Routes:
//
//   - GET  /ws                 live editing session (WebSocket, JSON messages)
//   - POST /api/check-text     one-shot analysis of {"text": "..."}
//   - POST /api/check-file     multipart upload, one or more "file" parts
//   - GET  /api/download       corrected artifact, ?locator=...
//   - GET  /healthz, /readyz   liveness and readiness
//   - GET  /metrics            Prometheus scrape endpoint
//
// Every route except /metrics goes through [observe.Middleware].
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MrWong99/livespell/internal/filecheck"
	"github.com/MrWong99/livespell/internal/health"
	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/internal/spellcheck"
	"github.com/MrWong99/livespell/pkg/provider/analysis"
)

const (
	defaultTextLimit = 1 << 20
	shutdownGrace    = 10 * time.Second
)

// Sessions opens and closes live editing sessions.
type Sessions interface {
	Open() (*spellcheck.Session, error)
	Close(id string) error
}

// Deps holds everything the handlers need.
type Deps struct {
	// Sessions backs /ws. Required.
	Sessions Sessions

	// Analyzer backs /api/check-text. Required.
	Analyzer analysis.Provider

	// Files backs /api/check-file and /api/download. Nil disables both.
	Files *filecheck.Checker

	// Health serves /healthz and /readyz. Nil serves liveness only.
	Health *health.Handler

	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler

	// Observe receives HTTP request metrics. Default: observe.DefaultMetrics.
	Observe *observe.Metrics

	// AllowedOrigins are extra host patterns allowed to open /ws.
	AllowedOrigins []string

	// RequestTimeout bounds one-shot analysis calls. Default: 10s.
	RequestTimeout time.Duration

	// MaxTextBytes caps /api/check-text bodies. Default: 1 MiB.
	MaxTextBytes int64
}

// Server routes HTTP requests to the livespell subsystems.
type Server struct {
	deps Deps
	mux  *http.ServeMux
	h    http.Handler
}

// New builds the route table.
func New(deps Deps) (*Server, error) {
	if deps.Sessions == nil {
		return nil, errors.New("server: Sessions is required")
	}
	if deps.Analyzer == nil {
		return nil, errors.New("server: Analyzer is required")
	}
	if deps.Observe == nil {
		deps.Observe = observe.DefaultMetrics()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = spellcheck.DefaultRequestTimeout
	}
	if deps.MaxTextBytes <= 0 {
		deps.MaxTextBytes = defaultTextLimit
	}

	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.HandleFunc("POST /api/check-text", s.handleCheckText)
	s.mux.HandleFunc("POST /api/check-file", s.handleCheckFile)
	s.mux.HandleFunc("GET /api/download", s.handleDownload)
	if deps.Health != nil {
		deps.Health.Register(s.mux)
	} else {
		s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}

	observed := observe.Middleware(deps.Observe)(s.mux)
	if deps.Metrics == nil {
		s.h = observed
		return s, nil
	}
	root := http.NewServeMux()
	root.Handle("GET /metrics", deps.Metrics)
	root.Handle("/", observed)
	s.h = root
	return s, nil
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.h.ServeHTTP(w, r)
}

// ListenConfig describes where and how to listen.
type ListenConfig struct {
	Addr     string
	CertFile string
	KeyFile  string
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context, cfg ListenConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", cfg.Addr, err)
	}
	return s.Serve(ctx, ln, cfg)
}

// Serve is like [Server.Run] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, cfg ListenConfig) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String(), "tls", cfg.CertFile != "")
		var err error
		if cfg.CertFile != "" {
			err = srv.ServeTLS(ln, cfg.CertFile, cfg.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}
