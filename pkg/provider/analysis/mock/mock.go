// Package mock provides test doubles for the analysis.Provider and
// analysis.FileProvider interfaces.
//
// Provider answers from a static response or a per-text table, and can be
// gated so tests decide the order in which concurrent requests complete:
//
//	p := mock.NewGated()
//	// ... issue requests ...
//	p.Release("second text", findingsB, nil)
//	p.Release("first text", findingsA, nil)
package mock

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/types"
)

// AnalyzeCall records a single invocation of Analyze.
type AnalyzeCall struct {
	// Ctx is the context passed to Analyze.
	Ctx context.Context
	// Text is the snapshot passed to Analyze.
	Text string
}

type reply struct {
	findings []types.WordFinding
	err      error
}

// Provider is a mock implementation of analysis.Provider.
//
// Resolution order for a call with text t: a gated call waits for
// [Provider.Release] of t; otherwise Responses[t] is used when present;
// otherwise Findings/Err.
type Provider struct {
	mu sync.Mutex

	// Findings is returned when no per-text response is configured.
	Findings []types.WordFinding

	// Err, if non-nil, is returned when no per-text response is configured.
	Err error

	// Responses maps an input text to the findings returned for it.
	Responses map[string][]types.WordFinding

	// Calls records every invocation of Analyze in order.
	Calls []AnalyzeCall

	gated   bool
	waiters map[string][]chan reply
	called  chan string
}

var _ analysis.Provider = (*Provider)(nil)

// NewGated returns a Provider whose Analyze calls block until released.
func NewGated() *Provider {
	return &Provider{
		gated:   true,
		waiters: make(map[string][]chan reply),
		called:  make(chan string, 64),
	}
}

// Analyze records the call and returns the configured response.
func (p *Provider) Analyze(ctx context.Context, text string) ([]types.WordFinding, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, AnalyzeCall{Ctx: ctx, Text: text})
	if p.gated {
		ch := make(chan reply, 1)
		p.waiters[text] = append(p.waiters[text], ch)
		p.mu.Unlock()
		p.called <- text
		select {
		case r := <-ch:
			return r.findings, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	defer p.mu.Unlock()
	if f, ok := p.Responses[text]; ok {
		return types.CloneFindings(f), nil
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return types.CloneFindings(p.Findings), nil
}

// Started returns a channel that receives the text of every gated call once
// it is blocked waiting for release.
func (p *Provider) Started() <-chan string {
	return p.called
}

// Release completes the oldest pending gated call for text. It reports false
// when no call for text is waiting.
func (p *Provider) Release(text string, findings []types.WordFinding, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.waiters[text]
	if len(q) == 0 {
		return false
	}
	q[0] <- reply{findings: findings, err: err}
	p.waiters[text] = q[1:]
	return true
}

// CallCount returns the number of recorded Analyze calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Texts returns the snapshots passed to Analyze in call order. Thread-safe.
func (p *Provider) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Calls))
	for i, c := range p.Calls {
		out[i] = c.Text
	}
	return out
}

// ErrNoArtifact is returned by [FileProvider.Download] for unknown locators.
var ErrNoArtifact = errors.New("mock: no artifact for locator")

// FileProvider is a mock implementation of analysis.FileProvider.
type FileProvider struct {
	mu sync.Mutex

	// Report is returned by AnalyzeFile.
	Report *types.FileReport

	// AnalyzeErr, if non-nil, is returned by AnalyzeFile.
	AnalyzeErr error

	// Artifacts maps a locator to the bytes returned by Download.
	Artifacts map[string][]byte

	// DownloadErr, if non-nil, is returned by Download.
	DownloadErr error

	// Uploads records the filenames passed to AnalyzeFile.
	Uploads []string
}

var _ analysis.FileProvider = (*FileProvider)(nil)

// AnalyzeFile records the call and returns Report, AnalyzeErr.
func (f *FileProvider) AnalyzeFile(_ context.Context, _ []byte, filename string) (*types.FileReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads = append(f.Uploads, filename)
	if f.AnalyzeErr != nil {
		return nil, f.AnalyzeErr
	}
	return f.Report, nil
}

// Download returns Artifacts[locator] or DownloadErr.
func (f *FileProvider) Download(_ context.Context, locator string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DownloadErr != nil {
		return nil, f.DownloadErr
	}
	data, ok := f.Artifacts[locator]
	if !ok {
		return nil, ErrNoArtifact
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
