// Package mock provides a test double for the langdetect.Provider interface.
package mock

import (
	"context"
	"sync"
)

// Provider is a mock implementation of langdetect.Provider.
type Provider struct {
	mu sync.Mutex

	// Language is returned by Detect when Err is nil.
	Language string

	// Err, if non-nil, is returned by Detect.
	Err error

	// DetectCalls records the text of every Detect invocation in order.
	DetectCalls []string
}

// Detect records the call and returns Language, Err.
func (p *Provider) Detect(_ context.Context, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DetectCalls = append(p.DetectCalls, text)
	if p.Err != nil {
		return "", p.Err
	}
	return p.Language, nil
}

// Set replaces the configured result. Thread-safe.
func (p *Provider) Set(language string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Language, p.Err = language, err
}

// Calls returns a snapshot of the recorded Detect texts. Thread-safe.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.DetectCalls...)
}
