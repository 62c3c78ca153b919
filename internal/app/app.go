// Package app wires the livespell subsystems into a running server.
//
// New builds the session manager, file checker, readiness checks and HTTP
// routes from the config and the providers main created through the
// registry. Run serves until the context is cancelled, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles through [Providers] and the functional
// options; [App.Handler] exposes the routes without opening a socket.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/livespell/internal/config"
	"github.com/MrWong99/livespell/internal/filecheck"
	"github.com/MrWong99/livespell/internal/health"
	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/internal/resilience"
	"github.com/MrWong99/livespell/internal/server"
	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/provider/langdetect"
)

// Providers holds one value per collaborator slot. Nil means not
// configured; Analysis is required.
type Providers struct {
	Analysis analysis.Provider
	Files    analysis.FileProvider
	Language langdetect.Provider
}

// readiness is implemented by providers that can report their own health,
// such as [resilience.AnalysisFallback].
type readiness interface {
	Ready(ctx context.Context) error
}

type statusReporter interface {
	Status() []resilience.EntryStatus
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics
	promH     http.Handler
	level     *slog.LevelVar
	watcher   *config.Watcher

	sessions *SessionManager
	files    *filecheck.Checker
	health   *health.Handler
	server   *server.Server

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithMetrics sets the metrics sink. Default: observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.promH = h }
}

// WithLogLevel lets config reloads change the log level.
func WithLogLevel(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// WithWatcher runs w alongside the HTTP server.
func WithWatcher(w *config.Watcher) Option {
	return func(a *App) { a.watcher = w }
}

// WithCloser registers fn to run during Shutdown.
func WithCloser(fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, fn) }
}

// New creates an App by wiring all subsystems together.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Analysis == nil {
		return nil, errors.New("app: an analysis provider is required")
	}
	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.sessions = NewSessionManager(ctx, SessionManagerConfig{
		Analyzer: providers.Analysis,
		Language: providers.Language,
		Tuning:   cfg.Session,
		Metrics:  a.metrics,
	})

	if providers.Files != nil {
		a.files = filecheck.New(providers.Files,
			filecheck.WithAllowedExtensions(cfg.Files.AllowedExtensions...),
			filecheck.WithMaxBytes(cfg.Files.MaxUploadBytes),
			filecheck.WithMaxBatch(cfg.Files.MaxBatchFiles),
			filecheck.WithParallelism(cfg.Files.Parallelism),
			filecheck.WithMetrics(a.metrics),
			filecheck.WithBreaker(resilience.CircuitBreakerConfig{
				Name:         "files/" + cfg.Providers.Files.Name,
				MaxFailures:  cfg.Resilience.MaxFailures,
				ResetTimeout: cfg.Resilience.ResetTimeout,
			}),
		)
	}

	a.health = health.New(a.checkers()...)

	srv, err := server.New(server.Deps{
		Sessions:       a.sessions,
		Analyzer:       providers.Analysis,
		Files:          a.files,
		Health:         a.health,
		Metrics:        a.promH,
		Observe:        a.metrics,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Session.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("app: init server: %w", err)
	}
	a.server = srv
	return a, nil
}

func (a *App) checkers() []health.Checker {
	var out []health.Checker
	if r, ok := a.providers.Analysis.(readiness); ok {
		c := health.Checker{Name: "analysis", Check: r.Ready}
		if s, ok := a.providers.Analysis.(statusReporter); ok {
			c.Details = func() any { return s.Status() }
		}
		out = append(out, c)
	}
	if a.files != nil {
		out = append(out, health.Checker{
			Name:    "files",
			Check:   a.files.Ready,
			Details: func() any { return a.files.State() },
		})
	}
	return out
}

// Handler returns the HTTP routes.
func (a *App) Handler() http.Handler { return a.server }

// Sessions returns the session manager.
func (a *App) Sessions() *SessionManager { return a.sessions }

// Files returns the file checker, or nil when no file provider is configured.
func (a *App) Files() *filecheck.Checker { return a.files }

// Run serves HTTP, and polls the config file when a watcher was given,
// until ctx is cancelled. It returns nil after a clean stop.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lc := server.ListenConfig{Addr: a.cfg.Server.ListenAddr}
		if tls := a.cfg.Server.TLS; tls != nil {
			lc.CertFile, lc.KeyFile = tls.CertFile, tls.KeyFile
		}
		return a.server.Run(gctx, lc)
	})
	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}
	slog.Info("app running", "addr", a.cfg.Server.ListenAddr)
	return g.Wait()
}

// ApplyConfig hot-applies the safe parts of a config change. It is meant to
// be used as the [config.Watcher] callback.
func (a *App) ApplyConfig(d config.ConfigDiff) {
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.SessionChanged {
		a.sessions.SetTuning(d.NewSession)
		slog.Info("session tuning changed; applies to new sessions",
			"min_length", d.NewSession.MinLength,
			"boundary_chars", d.NewSession.BoundaryChars,
			"request_timeout", d.NewSession.RequestTimeout,
		)
	}
	if d.FilesChanged && a.files != nil {
		a.files.SetLimits(d.NewFiles.AllowedExtensions, d.NewFiles.MaxUploadBytes)
		slog.Info("upload restrictions changed",
			"allowed_extensions", d.NewFiles.AllowedExtensions,
			"max_upload_bytes", d.NewFiles.MaxUploadBytes,
		)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config sections changed that need a restart to take effect", "sections", d.RestartRequired)
	}
}

// Shutdown closes every session and then runs the registered closers. If
// ctx expires first, remaining closers are skipped and the context error is
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "sessions", a.sessions.Count(), "closers", len(a.closers))
		a.sessions.CloseAll()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// SlogLevel maps a config log level to its slog equivalent.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
