package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/livespell/internal/config"
	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/internal/resilience"
	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/types"
)

// BuildProviders instantiates every provider named in cfg through reg. The
// analysis provider is always wrapped in a [resilience.AnalysisFallback]
// holding the primary followed by the configured fallbacks, so that each
// backend gets its own circuit breaker.
//
// Optional slots (files, language) whose name is not registered are skipped
// with a warning; an unregistered analysis provider is an error.
func BuildProviders(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*Providers, error) {
	ps := &Providers{}

	fbCfg := resilience.FallbackConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.Resilience.MaxFailures,
		ResetTimeout: cfg.Resilience.ResetTimeout,
	}}

	primary, err := reg.CreateAnalysis(cfg.Providers.Analysis)
	if err != nil {
		return nil, fmt.Errorf("app: create analysis provider: %w", err)
	}
	var fbOpts []resilience.AnalysisOption
	if m != nil {
		fbOpts = append(fbOpts, resilience.WithMetrics(m))
	}
	chain := resilience.NewAnalysisFallback(tracedAnalysis(cfg.Providers.Analysis.Name, primary), cfg.Providers.Analysis.Name, fbCfg, fbOpts...)
	slog.Info("provider created", "kind", "analysis", "name", cfg.Providers.Analysis.Name)

	for i, entry := range cfg.Providers.Fallback {
		p, err := reg.CreateAnalysis(entry)
		if err != nil {
			return nil, fmt.Errorf("app: create analysis fallback %d: %w", i, err)
		}
		chain.AddFallback(entry.Name, tracedAnalysis(entry.Name, p))
		slog.Info("provider created", "kind", "analysis-fallback", "name", entry.Name, "position", i+1)
	}
	ps.Analysis = chain

	if name := cfg.Providers.Files.Name; name != "" {
		p, err := reg.CreateFiles(cfg.Providers.Files)
		switch {
		case errors.Is(err, config.ErrProviderNotRegistered):
			slog.Warn("provider not registered; skipping", "kind", "files", "name", name)
		case err != nil:
			return nil, fmt.Errorf("app: create files provider: %w", err)
		default:
			ps.Files = p
			slog.Info("provider created", "kind", "files", "name", name)
		}
	}

	if name := cfg.Providers.Language.Name; name != "" {
		p, err := reg.CreateLanguage(cfg.Providers.Language)
		switch {
		case errors.Is(err, config.ErrProviderNotRegistered):
			slog.Warn("provider not registered; skipping", "kind", "language", "name", name)
		case err != nil:
			return nil, fmt.Errorf("app: create language provider: %w", err)
		default:
			ps.Language = p
			slog.Info("provider created", "kind", "language", "name", name)
		}
	}

	return ps, nil
}

// tracedAnalysis wraps p so that every call gets a provider span naming the
// backend.
func tracedAnalysis(name string, p analysis.Provider) analysis.Provider {
	return analysis.Func(func(ctx context.Context, text string) (findings []types.WordFinding, err error) {
		ctx, span := observe.StartProviderSpan(ctx, "analysis", name)
		defer func() {
			span.SetAttributes(attribute.Int("findings", len(findings)))
			observe.EndSpan(span, err)
		}()
		return p.Analyze(ctx, text)
	})
}
