package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/types"
)

// AnalysisFallback implements [analysis.Provider] with failover across
// several analysis backends. Each backend has its own circuit breaker.
type AnalysisFallback struct {
	group   *FallbackGroup[analysis.Provider]
	metrics *observe.Metrics
}

var _ analysis.Provider = (*AnalysisFallback)(nil)

// AnalysisOption configures an [AnalysisFallback].
type AnalysisOption func(*AnalysisFallback)

// WithMetrics records one provider request per attempted backend.
func WithMetrics(m *observe.Metrics) AnalysisOption {
	return func(f *AnalysisFallback) { f.metrics = m }
}

// NewAnalysisFallback creates an [AnalysisFallback] with primary as the
// preferred backend.
func NewAnalysisFallback(primary analysis.Provider, primaryName string, cfg FallbackConfig, opts ...AnalysisOption) *AnalysisFallback {
	f := &AnalysisFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
	for _, o := range opts {
		o(f)
	}
	return f
}

// AddFallback registers an additional analysis backend.
func (f *AnalysisFallback) AddFallback(name string, p analysis.Provider) {
	f.group.AddFallback(name, p)
}

// Analyze returns the findings of the first healthy backend that succeeds.
func (f *AnalysisFallback) Analyze(ctx context.Context, text string) ([]types.WordFinding, error) {
	return ExecuteWithResult(ctx, f.group, func(name string, p analysis.Provider) ([]types.WordFinding, error) {
		findings, err := p.Analyze(ctx, text)
		if f.metrics != nil {
			f.metrics.RecordProviderRequest(ctx, name, "analysis", requestStatus(err))
		}
		return findings, err
	})
}

// Status reports every backend's breaker state in failover order.
func (f *AnalysisFallback) Status() []EntryStatus { return f.group.Status() }

// Ready returns an error when every backend's breaker is open.
func (f *AnalysisFallback) Ready(context.Context) error {
	if f.group.Available() {
		return nil
	}
	return ErrCircuitOpen
}

func requestStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
