// Package analysis defines the Provider interfaces for text and file spelling
// analysis backends.
//
// An analysis provider wraps a spell-checking service (a remote HTTP API, a
// language model, or an in-process dictionary) and presents a uniform
// request/response contract to the editing session core. The core treats the
// provider as opaque: it never inspects how findings are computed.
//
// Implementations must be safe for concurrent use; the session core issues
// overlapping requests while the user keeps typing.
package analysis

import (
	"context"
	"io"

	"github.com/MrWong99/livespell/pkg/types"
)

// Provider analyses free-form text.
type Provider interface {
	// Analyze checks text and returns an ordered list of findings, one per
	// token. Empty text must yield an empty (nil or zero-length) result and a
	// nil error. text may contain arbitrary UTF-8.
	//
	// Network failures, timeouts and context cancellation are returned as
	// non-nil errors; the caller decides how to surface them.
	Analyze(ctx context.Context, text string) ([]types.WordFinding, error)
}

// FileProvider analyses whole documents and produces a corrected artifact.
type FileProvider interface {
	// AnalyzeFile uploads data under filename and returns a report with the
	// number of corrections and a locator for the corrected artifact.
	AnalyzeFile(ctx context.Context, data []byte, filename string) (*types.FileReport, error)

	// Download dereferences a locator obtained from AnalyzeFile. The caller
	// must close the returned reader.
	Download(ctx context.Context, locator string) (io.ReadCloser, error)
}

// Func adapts an ordinary function to the [Provider] interface.
type Func func(ctx context.Context, text string) ([]types.WordFinding, error)

// Analyze calls f(ctx, text).
func (f Func) Analyze(ctx context.Context, text string) ([]types.WordFinding, error) {
	return f(ctx, text)
}
