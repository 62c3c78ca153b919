package spellcheck

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/provider/langdetect"
	"github.com/MrWong99/livespell/pkg/types"
)

var sessionCounter atomic.Uint64

// Snapshot is an immutable copy of everything a renderer needs.
type Snapshot struct {
	SessionID string `json:"session_id"`

	// Text is the current buffer.
	Text string `json:"text"`

	// Seq is the sequence number of the visible findings.
	Seq uint64 `json:"seq"`

	// Findings are the visible per-token findings.
	Findings []types.WordFinding `json:"findings"`

	// Language is the last successfully detected language code, or "".
	Language string `json:"language,omitempty"`

	// LanguageName is the English display name of Language.
	LanguageName string `json:"language_name,omitempty"`

	// Pending is the number of analysis requests still in flight.
	Pending int `json:"pending"`

	Notices []Notice `json:"notices"`
}

// Option configures a [Session].
type Option func(*Session)

// WithID sets the session identifier used in logs and snapshots.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLanguageDetector enables language detection on the analysis cadence.
func WithLanguageDetector(p langdetect.Provider) Option {
	return func(s *Session) {
		s.lang = p
	}
}

// WithDetector replaces the trigger detector.
func WithDetector(d *Detector) Option {
	return func(s *Session) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithTimeout bounds each analysis and language detection call.
// Default: [DefaultRequestTimeout].
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Session is one live editor. It owns the text buffer, which only Edit,
// SetText, Blur and ApplyCorrection mutate, and runs collaborator calls in
// the background. All methods are safe for concurrent use.
type Session struct {
	id       string
	detector *Detector
	lang     langdetect.Provider
	timeout  time.Duration
	metrics  *observe.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	coord *Coordinator
	rec   Reconciler

	langWG sync.WaitGroup

	mu        sync.Mutex
	text      string
	pending   int
	language  string
	langFloor uint64
	notices   []Notice
	noticeSeq uint64
	subs      map[*subscriber]struct{}
	closed    bool
	closeOnce sync.Once
}

type subscriber struct {
	ch   chan Snapshot
	once sync.Once
}

// New creates a Session that analyzes text with p. Collaborator calls run
// under ctx; cancelling it fails every in-flight request.
func New(ctx context.Context, p analysis.Provider, opts ...Option) *Session {
	s := &Session{
		id:       fmt.Sprintf("session-%d", sessionCounter.Add(1)),
		detector: NewDetector(),
		timeout:  DefaultRequestTimeout,
		subs:     make(map[*subscriber]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.ctx, s.cancel = context.WithCancel(observe.WithSession(ctx, s.id))
	s.coord = NewCoordinator(p, s.deliver,
		WithRequestTimeout(s.timeout),
		WithCoordinatorMetrics(s.metrics),
	)
	s.metrics.ActiveSessions.Add(s.ctx, 1)
	slog.Debug("session started", "session", s.id)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Text returns the current buffer.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Edit replaces the buffer with next as the result of ev and acts on the
// detector's decision.
func (s *Session) Edit(next string, ev EditEvent) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return DecisionNone
	}
	return s.changeLocked(next, ev)
}

// SetText replaces the whole buffer, e.g. with the text of an uploaded file,
// and analyzes it unless it is too short.
func (s *Session) SetText(text string) Decision {
	return s.Edit(text, EditEvent{Kind: EventUpload})
}

// Blur signals that the editor lost focus.
func (s *Session) Blur() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return DecisionNone
	}
	return s.changeLocked(s.text, EditEvent{Kind: EventBlur})
}

// ApplyCorrection replaces every whole-word occurrence of target with
// replacement and re-analyzes the result regardless of the boundary rule.
// On failure the buffer is unchanged, a notice is surfaced and the error
// wraps [ErrMalformedPattern].
func (s *Session) ApplyCorrection(target, replacement string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.text, ErrSessionClosed
	}

	next, err := Apply(s.text, target, replacement)
	if err != nil {
		s.metrics.RecordCorrection(s.ctx, "malformed_pattern")
		s.addNoticeLocked(NoticeCorrectionFailed, msgCorrectionFailed, 0)
		s.publishLocked()
		slog.Warn("correction rejected", "session", s.id, "target", target, "err", err)
		return s.text, fmt.Errorf("spellcheck: apply correction: %w", err)
	}

	s.metrics.RecordCorrection(s.ctx, "ok")
	s.changeLocked(next, EditEvent{Kind: EventProgrammatic})
	return next, nil
}

// State returns the visible analysis state.
func (s *Session) State() State {
	return s.rec.State()
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// DismissNotice removes the notice with the given ID. It reports whether
// such a notice existed.
func (s *Session) DismissNotice(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notices {
		if n.ID == id {
			s.notices = append(s.notices[:i], s.notices[i+1:]...)
			s.publishLocked()
			return true
		}
	}
	return false
}

// Subscribe returns a channel that receives a snapshot after every change.
// Only the newest undelivered snapshot is kept, so a slow reader never
// blocks the session. The channel is closed by the returned cancel function
// or by [Session.Close].
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	sub := &subscriber{ch: make(chan Snapshot, 1)}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	s.subs[sub] = struct{}{}
	sub.ch <- s.snapshotLocked()
	s.mu.Unlock()

	return sub.ch, func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		sub.close()
	}
}

// Wait blocks until every background call issued so far has been applied.
func (s *Session) Wait() {
	s.coord.Wait()
	s.langWG.Wait()
}

// Close cancels in-flight calls, waits for them to drain and closes all
// subscriber channels. It is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		s.Wait()

		s.mu.Lock()
		for sub := range s.subs {
			sub.close()
			delete(s.subs, sub)
		}
		s.mu.Unlock()

		s.metrics.ActiveSessions.Add(context.Background(), -1)
		slog.Debug("session closed", "session", s.id)
	})
}

// changeLocked stores next and acts on the trigger decision.
func (s *Session) changeLocked(next string, ev EditEvent) Decision {
	prev := s.text
	s.text = next

	d := s.detector.Decide(prev, next, ev)
	switch d {
	case DecisionClear:
		seq := s.coord.Supersede()
		s.rec.Clear(seq)
		s.language = ""
		s.langFloor = seq
	case DecisionAnalyze:
		seq := s.coord.Issue(s.ctx, next)
		s.pending++
		slog.Debug("analysis issued", "session", s.id, "seq", seq, "event", ev.Kind.String())
		if s.lang != nil {
			s.detectLanguageLocked(seq, next)
		}
	}
	s.publishLocked()
	return d
}

// deliver is the Coordinator callback.
func (s *Session) deliver(req Request, out Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending--
	v := s.rec.Reconcile(req.Seq, out, s.coord.Latest())
	s.metrics.RecordVerdict(s.ctx, v.String())

	switch v {
	case VerdictStale:
		slog.Debug("stale analysis dropped", "session", s.id, "seq", req.Seq)
	case VerdictFailedCleared, VerdictFailedRetained:
		s.addNoticeLocked(NoticeAnalysisFailed, msgAnalysisFailed, req.Seq)
	}
	if !s.closed {
		s.publishLocked()
	}
}

// addNoticeLocked surfaces a notice, replacing any earlier notice of the
// same kind.
func (s *Session) addNoticeLocked(kind NoticeKind, msg string, seq uint64) {
	s.noticeSeq++
	n := Notice{ID: s.noticeSeq, Kind: kind, Message: msg, Seq: seq}
	for i := range s.notices {
		if s.notices[i].Kind == kind {
			s.notices[i] = n
			return
		}
	}
	s.notices = append(s.notices, n)
}

func (s *Session) snapshotLocked() Snapshot {
	st := s.rec.State()
	return Snapshot{
		SessionID:    s.id,
		Text:         s.text,
		Seq:          st.Seq,
		Findings:     st.Findings,
		Language:     s.language,
		LanguageName: langdetect.DisplayName(s.language),
		Pending:      s.pending,
		Notices:      append([]Notice(nil), s.notices...),
	}
}

// publishLocked hands the current snapshot to every subscriber, replacing
// any snapshot the subscriber has not read yet.
func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for sub := range s.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
	}
}

func (sub *subscriber) close() {
	sub.once.Do(func() { close(sub.ch) })
}
