// Package mock provides a scripted llm.Provider for testing model-backed
// analyzers.
//
// Replies can be keyed by the text under analysis (the last user message),
// so one mock serves several checks:
//
//	p := &mock.Provider{Replies: map[string]string{
//	    "helo": `{"misspellings":[{"word":"helo","suggestions":["hello"]}]}`,
//	}}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/livespell/pkg/provider/llm"
	"github.com/MrWong99/livespell/pkg/types"
)

var _ llm.Provider = (*Provider)(nil)

// Call is one recorded Complete invocation.
type Call struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Provider answers Complete from Replies, then CompleteResponse.
type Provider struct {
	mu sync.Mutex

	// Replies maps the last user message to the reply content.
	Replies map[string]string

	// CompleteResponse answers texts missing from Replies. Nil yields a nil
	// response and nil error.
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, fails every call.
	CompleteErr error

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities types.ModelCapabilities

	calls []Call
}

// Reply returns a Provider that answers every call with content.
func Reply(content string) *Provider {
	return &Provider{CompleteResponse: &llm.CompletionResponse{Content: content}}
}

// Complete records the call and returns the scripted answer.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Ctx: ctx, Req: req})
	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if content, ok := p.Replies[lastUser(req.Messages)]; ok {
		return &llm.CompletionResponse{Content: content}, nil
	}
	return p.CompleteResponse, nil
}

// Capabilities returns ModelCapabilities.
func (p *Provider) Capabilities() types.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ModelCapabilities
}

// Calls returns a copy of the recorded calls.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

func lastUser(msgs []types.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}
