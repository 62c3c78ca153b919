// Package spellcheck implements the incremental text-analysis orchestration
// behind livespell's live editor.
//
// A [Session] owns the text buffer of one editor and ties four pieces
// together:
//
//   - [Detector] decides, per edit, whether to analyze, clear or do nothing.
//   - [Coordinator] tags every analysis request with a strictly increasing
//     sequence number and runs the analysis provider asynchronously.
//   - [Reconciler] accepts a response only if no newer one has been accepted,
//     replacing the visible findings wholesale.
//   - [Apply] rewrites every whole-word occurrence of a flagged word with the
//     chosen suggestion.
//
// Transports drive a Session through [Session.Edit], [Session.SetText],
// [Session.Blur] and [Session.ApplyCorrection], and render the snapshots
// delivered by [Session.Subscribe].
package spellcheck
