// Package observe provides application-wide observability primitives for
// livespell: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all livespell metrics.
const meterName = "github.com/MrWong99/livespell"

// Verdict labels recorded on [Metrics.AnalysisRequests].
const (
	VerdictAccepted       = "accepted"
	VerdictStale          = "stale"
	VerdictFailedCleared  = "failed_cleared"
	VerdictFailedRetained = "failed_retained"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// AnalysisDuration tracks text analysis collaborator latency.
	AnalysisDuration metric.Float64Histogram

	// LanguageDuration tracks language detection latency.
	LanguageDuration metric.Float64Histogram

	// FileCheckDuration tracks whole-file analysis latency.
	FileCheckDuration metric.Float64Histogram

	// --- Counters ---

	// AnalysisRequests counts resolved analysis requests. Use with attribute:
	//   attribute.String("verdict", ...)
	AnalysisRequests metric.Int64Counter

	// StaleDrops counts responses discarded because a newer one was already
	// accepted.
	StaleDrops metric.Int64Counter

	// AnalysisFailures counts failed analysis calls. Use with attribute:
	//   attribute.String("kind", ...)
	AnalysisFailures metric.Int64Counter

	// LanguageDetections counts language detection calls. Use with attributes:
	//   attribute.String("language", ...), attribute.String("status", ...)
	LanguageDetections metric.Int64Counter

	// CorrectionsApplied counts correction attempts. Use with attribute:
	//   attribute.String("status", ...)
	CorrectionsApplied metric.Int64Counter

	// FilesChecked counts file checks. Use with attributes:
	//   attribute.String("file_type", ...), attribute.String("status", ...)
	FilesChecked metric.Int64Counter

	// ProviderRequests counts provider calls made through a fallback group.
	// Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live editing sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time by "method",
	// "path" and "status" class. WebSocket sessions are excluded.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// interactive request latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AnalysisDuration, err = m.Float64Histogram("livespell.analysis.duration",
		metric.WithDescription("Latency of text analysis requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LanguageDuration, err = m.Float64Histogram("livespell.language.duration",
		metric.WithDescription("Latency of language detection requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FileCheckDuration, err = m.Float64Histogram("livespell.files.duration",
		metric.WithDescription("Latency of whole-file analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.AnalysisRequests, err = m.Int64Counter("livespell.analysis.requests",
		metric.WithDescription("Total resolved analysis requests by reconciliation verdict."),
	); err != nil {
		return nil, err
	}
	if met.StaleDrops, err = m.Int64Counter("livespell.analysis.stale_drops",
		metric.WithDescription("Total analysis responses dropped as stale."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisFailures, err = m.Int64Counter("livespell.analysis.failures",
		metric.WithDescription("Total failed analysis requests by kind."),
	); err != nil {
		return nil, err
	}
	if met.LanguageDetections, err = m.Int64Counter("livespell.language.detections",
		metric.WithDescription("Total language detections by language and status."),
	); err != nil {
		return nil, err
	}
	if met.CorrectionsApplied, err = m.Int64Counter("livespell.corrections.applied",
		metric.WithDescription("Total correction attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.FilesChecked, err = m.Int64Counter("livespell.files.checked",
		metric.WithDescription("Total file checks by file type and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("livespell.provider.requests",
		metric.WithDescription("Total provider calls by provider, kind, and status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("livespell.active_sessions",
		metric.WithDescription("Number of live editing sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("livespell.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path and status class."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordVerdict records a resolved analysis request. Stale verdicts also
// increment [Metrics.StaleDrops].
func (m *Metrics) RecordVerdict(ctx context.Context, verdict string) {
	m.AnalysisRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
	if verdict == VerdictStale {
		m.StaleDrops.Add(ctx, 1)
	}
}

// RecordAnalysisFailure records a failed analysis call.
func (m *Metrics) RecordAnalysisFailure(ctx context.Context, kind string) {
	m.AnalysisFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordLanguageDetection records a language detection outcome. language is
// empty for failures.
func (m *Metrics) RecordLanguageDetection(ctx context.Context, language, status string) {
	m.LanguageDetections.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("language", language),
			attribute.String("status", status),
		),
	)
}

// RecordCorrection records a correction attempt.
func (m *Metrics) RecordCorrection(ctx context.Context, status string) {
	m.CorrectionsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordFileCheck records a file check outcome.
func (m *Metrics) RecordFileCheck(ctx context.Context, fileType, status string) {
	m.FilesChecked.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("file_type", fileType),
			attribute.String("status", status),
		),
	)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}
