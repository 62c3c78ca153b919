package spellcheck

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultBoundaryChars are the characters whose typing signals that a
	// word was just completed.
	DefaultBoundaryChars = " .,?!"

	// DefaultMinLength is the shortest text, in runes, that is analyzed.
	DefaultMinLength = 3
)

// EventKind classifies an edit event.
type EventKind int

const (
	// EventInput is a keystroke, paste or deletion in the editor.
	EventInput EventKind = iota

	// EventBlur is emitted when the editor loses focus.
	EventBlur

	// EventUpload is emitted when a file's text has been loaded into the
	// editor.
	EventUpload

	// EventProgrammatic is a buffer change not made by the user, such as an
	// applied correction.
	EventProgrammatic
)

// String returns the wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventInput:
		return "input"
	case EventBlur:
		return "blur"
	case EventUpload:
		return "upload"
	case EventProgrammatic:
		return "programmatic"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event ends an editing burst and therefore
// triggers analysis regardless of the inserted text.
func (k EventKind) Terminal() bool {
	return k == EventBlur || k == EventUpload || k == EventProgrammatic
}

// EditEvent describes one change of the buffer.
type EditEvent struct {
	Kind EventKind

	// Inserted is the text the edit inserted; empty for pure deletions. When
	// empty on an EventInput it is derived from the previous and new text.
	Inserted string
}

// Decision is the outcome of [Detector.Decide].
type Decision int

const (
	// DecisionNone leaves the current findings untouched.
	DecisionNone Decision = iota

	// DecisionAnalyze issues a new analysis request for the new text.
	DecisionAnalyze

	// DecisionClear skips analysis and clears the current findings.
	DecisionClear
)

// String returns a human-readable name of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionNone:
		return "none"
	case DecisionAnalyze:
		return "analyze"
	case DecisionClear:
		return "clear"
	default:
		return "unknown"
	}
}

// DetectorOption configures a [Detector].
type DetectorOption func(*Detector)

// WithMinLength sets the minimum text length in runes. Values below 1 are
// ignored.
func WithMinLength(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.minLength = n
		}
	}
}

// WithBoundaryChars replaces the boundary character set. An empty string is
// ignored.
func WithBoundaryChars(chars string) DetectorOption {
	return func(d *Detector) {
		if chars != "" {
			d.boundary = chars
		}
	}
}

// Detector decides whether an edit should trigger analysis. It has no
// mutable state and is safe for concurrent use.
type Detector struct {
	boundary  string
	minLength int
}

// NewDetector returns a Detector using [DefaultBoundaryChars] and
// [DefaultMinLength] unless overridden.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		boundary:  DefaultBoundaryChars,
		minLength: DefaultMinLength,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// MinLength returns the configured minimum text length.
func (d *Detector) MinLength() int { return d.minLength }

// BoundaryChars returns the configured boundary character set.
func (d *Detector) BoundaryChars() string { return d.boundary }

// Decide classifies the edit from prev to next.
//
// Text that is empty, whitespace only, or shorter than the minimum length
// always yields [DecisionClear]. Otherwise terminal events yield
// [DecisionAnalyze], and input events do so exactly when the last inserted
// character is a boundary character.
func (d *Detector) Decide(prev, next string, ev EditEvent) Decision {
	if d.IsShort(next) {
		return DecisionClear
	}
	if ev.Kind.Terminal() {
		return DecisionAnalyze
	}
	inserted := ev.Inserted
	if inserted == "" {
		inserted = insertedText(prev, next)
	}
	if inserted == "" {
		return DecisionNone
	}
	last, _ := utf8.DecodeLastRuneInString(inserted)
	if strings.ContainsRune(d.boundary, last) {
		return DecisionAnalyze
	}
	return DecisionNone
}

// ShouldAnalyze reports whether Decide yields [DecisionAnalyze].
func (d *Detector) ShouldAnalyze(prev, next string, ev EditEvent) bool {
	return d.Decide(prev, next, ev) == DecisionAnalyze
}

// IsShort reports whether text falls under the short-input rule.
func (d *Detector) IsShort(text string) bool {
	return strings.TrimSpace(text) == "" || utf8.RuneCountInString(text) < d.minLength
}

// insertedText returns the span of next that is not part of the common
// prefix and suffix shared with prev.
func insertedText(prev, next string) string {
	p := 0
	for p < len(prev) && p < len(next) && prev[p] == next[p] {
		p++
	}
	// Do not split a multi-byte rune.
	for p > 0 && p < len(next) && !utf8.RuneStart(next[p]) {
		p--
	}
	s := 0
	for s < len(prev)-p && s < len(next)-p && prev[len(prev)-1-s] == next[len(next)-1-s] {
		s++
	}
	for s > 0 && !utf8.RuneStart(next[len(next)-s]) {
		s--
	}
	return next[p : len(next)-s]
}
