package spellcheck

import (
	"sync"

	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/pkg/types"
)

// Verdict is the outcome of [Reconciler.Reconcile].
type Verdict int

const (
	// VerdictStale means a newer response was already accepted; the response
	// was dropped.
	VerdictStale Verdict = iota

	// VerdictAccepted means the findings replaced the active state.
	VerdictAccepted

	// VerdictFailedCleared means the authoritative request failed and the
	// findings were cleared.
	VerdictFailedCleared

	// VerdictFailedRetained means a non-authoritative request failed and the
	// previous findings were kept.
	VerdictFailedRetained
)

// String returns the metric label of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictStale:
		return observe.VerdictStale
	case VerdictAccepted:
		return observe.VerdictAccepted
	case VerdictFailedCleared:
		return observe.VerdictFailedCleared
	case VerdictFailedRetained:
		return observe.VerdictFailedRetained
	default:
		return "unknown"
	}
}

// State is the visible analysis state: the findings of the newest accepted
// response and its sequence number.
type State struct {
	Seq      uint64
	Findings []types.WordFinding
}

// Reconciler holds the single authoritative [State]. Comparing sequence
// numbers and replacing the state happen in one critical section, so readers
// never observe a mix of old and new findings.
type Reconciler struct {
	mu    sync.Mutex
	state State
}

// Reconcile applies the outcome of request seq. latest is the newest
// sequence number allocated so far.
//
// Responses older than the active state are stale. Successful responses
// replace the state wholesale. A failure clears the findings only when seq
// is the newest request; otherwise the previous findings stay visible.
func (r *Reconciler) Reconcile(seq uint64, out Outcome, latest uint64) Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq < r.state.Seq {
		return VerdictStale
	}
	if !out.Failed() {
		r.state = State{Seq: seq, Findings: types.CloneFindings(out.Findings)}
		return VerdictAccepted
	}
	if seq >= latest {
		r.state = State{Seq: seq}
		return VerdictFailedCleared
	}
	return VerdictFailedRetained
}

// Clear empties the findings on behalf of seq. It reports false, leaving the
// state untouched, when a newer response was already accepted.
func (r *Reconciler) Clear(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq < r.state.Seq {
		return false
	}
	r.state = State{Seq: seq}
	return true
}

// State returns a deep copy of the active state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{Seq: r.state.Seq, Findings: types.CloneFindings(r.state.Findings)}
}
