package spellcheck

import (
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/pkg/types"
)

// testMetrics returns a Metrics instance isolated from the global provider.
func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// findingsFor builds a findings list in which the given words are misspelled.
func findingsFor(words ...string) []types.WordFinding {
	out := make([]types.WordFinding, 0, len(words))
	for _, w := range words {
		out = append(out, types.WordFinding{Word: w, IsCorrect: false, Suggestions: []string{w + "!"}})
	}
	return out
}
