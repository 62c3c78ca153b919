package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/livespell/internal/config"
	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/provider/analysis/dictionary"
	"github.com/MrWong99/livespell/pkg/provider/analysis/httpapi"
	"github.com/MrWong99/livespell/pkg/provider/analysis/llmcheck"
	"github.com/MrWong99/livespell/pkg/provider/langdetect"
	"github.com/MrWong99/livespell/pkg/provider/langdetect/detectlanguage"
	"github.com/MrWong99/livespell/pkg/provider/llm"
	"github.com/MrWong99/livespell/pkg/provider/llm/anyllm"
	"github.com/MrWong99/livespell/pkg/provider/llm/openai"
)

// registerBuiltinProviders wires every built-in provider factory into reg.
// The "llm" analysis provider builds its model backend from llmEntry.
func registerBuiltinProviders(reg *config.Registry, llmEntry config.ProviderEntry) {
	// ── Analysis ──────────────────────────────────────────────────────────────

	reg.RegisterAnalysis("remote", func(entry config.ProviderEntry) (analysis.Provider, error) {
		return newRemote(entry)
	})

	reg.RegisterAnalysis("dictionary", func(entry config.ProviderEntry) (analysis.Provider, error) {
		opts := []dictionary.Option{
			dictionary.WithMaxSuggestions(entry.IntOption("max_suggestions", 0)),
			dictionary.WithMaxDistance(entry.IntOption("max_distance", 0)),
			dictionary.WithWords(entry.StringsOption("words")...),
		}
		path := entry.StringOption("words_file", "")
		if path == "" {
			return dictionary.New(opts...), nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open word list: %w", err)
		}
		defer f.Close()
		return dictionary.NewFromReader(f, opts...)
	})

	reg.RegisterAnalysis("llm", func(entry config.ProviderEntry) (analysis.Provider, error) {
		backend, err := reg.CreateLLM(llmEntry)
		if err != nil {
			return nil, err
		}
		return llmcheck.New(backend,
			llmcheck.WithMaxSuggestions(entry.IntOption("max_suggestions", 0)),
		), nil
	})

	// ── Files ─────────────────────────────────────────────────────────────────

	reg.RegisterFiles("remote", func(entry config.ProviderEntry) (analysis.FileProvider, error) {
		return newRemote(entry)
	})

	// ── Language ──────────────────────────────────────────────────────────────

	reg.RegisterLanguage("detectlanguage", func(entry config.ProviderEntry) (langdetect.Provider, error) {
		return detectlanguage.New(entry.APIKey,
			detectlanguage.WithBaseURL(entry.BaseURL),
			detectlanguage.WithTimeout(seconds(entry, "timeout_seconds")),
		)
	})

	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := entry.StringOption("organization", ""); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if d := seconds(entry, "timeout_seconds"); d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// The remaining backends share one shape: optional APIKey + optional
	// BaseURL. ollama ignores the key.
	for _, name := range anyllm.SupportedBackends {
		if name == "openai" {
			continue
		}
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" && name != "ollama" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(name, entry.Model, opts...)
		})
	}

	for _, kind := range []string{"analysis", "files", "language", "llm"} {
		slog.Debug("registered providers", "kind", kind, "names", reg.Names(kind))
	}
}

func newRemote(entry config.ProviderEntry) (*httpapi.Client, error) {
	return httpapi.New(
		httpapi.Config{BaseURL: entry.BaseURL, APIKey: entry.APIKey},
		httpapi.WithTimeout(seconds(entry, "timeout_seconds")),
	)
}

func seconds(entry config.ProviderEntry, key string) time.Duration {
	return time.Duration(entry.IntOption(key, 0)) * time.Second
}
