package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/livespell/internal/config"
	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/internal/spellcheck"
	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/provider/langdetect"
)

var (
	// ErrSessionNotFound is returned when no open session has the given ID.
	ErrSessionNotFound = errors.New("app: session not found")

	// ErrTooManySessions is returned by Open when the session limit is reached.
	ErrTooManySessions = errors.New("app: too many open sessions")

	// ErrShuttingDown is returned by Open after CloseAll.
	ErrShuttingDown = errors.New("app: shutting down")
)

// SessionManager owns every open editing session. Sessions live as long as
// the client connection that opened them. All exported methods are safe for
// concurrent use.
type SessionManager struct {
	ctx      context.Context
	cancel   context.CancelFunc
	analyzer analysis.Provider
	language langdetect.Provider
	metrics  *observe.Metrics
	limit    int

	mu       sync.Mutex
	tuning   config.SessionConfig
	sessions map[string]*spellcheck.Session
	closed   bool
}

// SessionManagerConfig holds all dependencies for a [SessionManager].
type SessionManagerConfig struct {
	Analyzer analysis.Provider
	Language langdetect.Provider // optional
	Tuning   config.SessionConfig
	Metrics  *observe.Metrics

	// MaxSessions caps concurrently open sessions. Zero means unlimited.
	MaxSessions int
}

// NewSessionManager creates a SessionManager. Sessions it opens are bound
// to ctx: cancelling it fails their in-flight calls.
func NewSessionManager(ctx context.Context, cfg SessionManagerConfig) *SessionManager {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &SessionManager{
		ctx:      ctx,
		cancel:   cancel,
		analyzer: cfg.Analyzer,
		language: cfg.Language,
		metrics:  m,
		limit:    cfg.MaxSessions,
		tuning:   cfg.Tuning,
		sessions: make(map[string]*spellcheck.Session),
	}
}

// Open starts a new session with the current tuning.
func (sm *SessionManager) Open() (*spellcheck.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.closed {
		return nil, ErrShuttingDown
	}
	if sm.limit > 0 && len(sm.sessions) >= sm.limit {
		return nil, fmt.Errorf("%w (limit %d)", ErrTooManySessions, sm.limit)
	}

	opts := []spellcheck.Option{
		spellcheck.WithDetector(spellcheck.NewDetector(
			spellcheck.WithMinLength(sm.tuning.MinLength),
			spellcheck.WithBoundaryChars(sm.tuning.BoundaryChars),
		)),
		spellcheck.WithMetrics(sm.metrics),
	}
	if sm.tuning.RequestTimeout > 0 {
		opts = append(opts, spellcheck.WithTimeout(sm.tuning.RequestTimeout))
	}
	if sm.language != nil {
		opts = append(opts, spellcheck.WithLanguageDetector(sm.language))
	}

	s := spellcheck.New(sm.ctx, sm.analyzer, opts...)
	sm.sessions[s.ID()] = s
	slog.Info("session opened", "session", s.ID(), "open_sessions", len(sm.sessions))
	return s, nil
}

// Get returns the open session with the given ID.
func (sm *SessionManager) Get(id string) (*spellcheck.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close closes and forgets the session with the given ID.
func (sm *SessionManager) Close(id string) error {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	delete(sm.sessions, id)
	n := len(sm.sessions)
	sm.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	s.Close()
	slog.Info("session closed", "session", id, "open_sessions", n)
	return nil
}

// CloseAll closes every session and refuses new ones.
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	sm.closed = true
	sessions := make([]*spellcheck.Session, 0, len(sm.sessions))
	for id, s := range sm.sessions {
		sessions = append(sessions, s)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()

	sm.cancel()
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
	if len(sessions) > 0 {
		slog.Info("all sessions closed", "count", len(sessions))
	}
}

// Count returns the number of open sessions.
func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Tuning returns the settings applied to newly opened sessions.
func (sm *SessionManager) Tuning() config.SessionConfig {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.tuning
}

// SetTuning replaces the settings for sessions opened from now on. Open
// sessions keep the settings they started with.
func (sm *SessionManager) SetTuning(t config.SessionConfig) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.tuning = t
}
