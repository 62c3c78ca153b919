package config

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/provider/langdetect"
	"github.com/MrWong99/livespell/pkg/provider/llm"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds a provider from its configuration entry.
type Factory[P any] func(ProviderEntry) (P, error)

// factories is one kind's name → constructor table.
type factories[P any] struct {
	kind string
	m    map[string]Factory[P]
}

func newFactories[P any](kind string) factories[P] {
	return factories[P]{kind: kind, m: make(map[string]Factory[P])}
}

// create looks up the factory under mu and runs it without the lock held,
// so factories may themselves use the registry.
func create[P any](mu *sync.RWMutex, f factories[P], entry ProviderEntry) (P, error) {
	mu.RLock()
	factory, ok := f.m[entry.Name]
	mu.RUnlock()
	if !ok {
		var zero P
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, f.kind, entry.Name)
	}
	p, err := factory(entry)
	if err != nil {
		var zero P
		return zero, fmt.Errorf("config: create %s/%q: %w", f.kind, entry.Name, err)
	}
	return p, nil
}

func (f factories[P]) names() []string {
	out := make([]string, 0, len(f.m))
	for name := range f.m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	analysis factories[analysis.Provider]
	files    factories[analysis.FileProvider]
	language factories[langdetect.Provider]
	llm      factories[llm.Provider]
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		analysis: newFactories[analysis.Provider]("analysis"),
		files:    newFactories[analysis.FileProvider]("files"),
		language: newFactories[langdetect.Provider]("language"),
		llm:      newFactories[llm.Provider]("llm"),
	}
}

// RegisterAnalysis registers a text analysis provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterAnalysis(name string, factory Factory[analysis.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analysis.m[name] = factory
}

// RegisterFiles registers a file analysis provider factory under name.
func (r *Registry) RegisterFiles(name string, factory Factory[analysis.FileProvider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files.m[name] = factory
}

// RegisterLanguage registers a language detection provider factory under name.
func (r *Registry) RegisterLanguage(name string, factory Factory[langdetect.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.language.m[name] = factory
}

// RegisterLLM registers an LLM provider factory under name.
func (r *Registry) RegisterLLM(name string, factory Factory[llm.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm.m[name] = factory
}

// CreateAnalysis instantiates a text analysis provider using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateAnalysis(entry ProviderEntry) (analysis.Provider, error) {
	return create(&r.mu, r.analysis, entry)
}

// CreateFiles instantiates a file analysis provider.
func (r *Registry) CreateFiles(entry ProviderEntry) (analysis.FileProvider, error) {
	return create(&r.mu, r.files, entry)
}

// CreateLanguage instantiates a language detection provider.
func (r *Registry) CreateLanguage(entry ProviderEntry) (langdetect.Provider, error) {
	return create(&r.mu, r.language, entry)
}

// CreateLLM instantiates an LLM provider.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	return create(&r.mu, r.llm, entry)
}

// Names returns the sorted registered provider names for kind ("analysis",
// "files", "language" or "llm"). Unknown kinds yield nil.
func (r *Registry) Names(kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch kind {
	case r.analysis.kind:
		return r.analysis.names()
	case r.files.kind:
		return r.files.names()
	case r.language.kind:
		return r.language.names()
	case r.llm.kind:
		return r.llm.names()
	}
	return nil
}
