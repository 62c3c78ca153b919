package spellcheck

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientNetwork wraps every failure of an analysis or language
	// detection call: transport errors, timeouts, cancellations and provider
	// panics. The previous valid state is kept where possible and a notice is
	// surfaced; nothing is retried.
	ErrTransientNetwork = errors.New("spellcheck: transient network error")

	// ErrMalformedPattern is returned when a correction target cannot be
	// turned into a whole-word matcher. The buffer is left unchanged.
	ErrMalformedPattern = errors.New("spellcheck: malformed correction pattern")

	// ErrSessionClosed is returned by operations on a closed [Session].
	ErrSessionClosed = errors.New("spellcheck: session closed")
)

// NoticeKind classifies a user-visible, dismissible notice.
type NoticeKind int

const (
	// NoticeAnalysisFailed reports a failed spelling analysis.
	NoticeAnalysisFailed NoticeKind = iota + 1

	// NoticeLanguageFailed reports a failed language detection.
	NoticeLanguageFailed

	// NoticeCorrectionFailed reports a correction that could not be applied.
	NoticeCorrectionFailed
)

// String returns the wire name of the kind.
func (k NoticeKind) String() string {
	switch k {
	case NoticeAnalysisFailed:
		return "analysis_failed"
	case NoticeLanguageFailed:
		return "language_failed"
	case NoticeCorrectionFailed:
		return "correction_failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k NoticeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NoticeKind) UnmarshalText(b []byte) error {
	for _, c := range []NoticeKind{NoticeAnalysisFailed, NoticeLanguageFailed, NoticeCorrectionFailed} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("spellcheck: unknown notice kind %q", b)
}

// Notice is a transient, non-blocking error indicator.
type Notice struct {
	// ID identifies the notice for [Session.DismissNotice].
	ID uint64 `json:"id"`

	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`

	// Seq is the analysis sequence number the notice relates to, or zero.
	Seq uint64 `json:"seq,omitempty"`
}

const (
	msgAnalysisFailed   = "Failed to check spelling. Please try again."
	msgLanguageFailed   = "Failed to detect language. Please try again."
	msgCorrectionFailed = "The correction could not be applied."
)
