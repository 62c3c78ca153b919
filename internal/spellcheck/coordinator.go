package spellcheck

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/types"
)

// DefaultRequestTimeout bounds a single analysis call.
const DefaultRequestTimeout = 10 * time.Second

// Request is one issued analysis request.
type Request struct {
	Seq      uint64
	Snapshot string
}

// Outcome is the result of an analysis call: findings on success, or an error
// wrapping [ErrTransientNetwork].
type Outcome struct {
	Findings []types.WordFinding
	Err      error
}

// Failed reports whether the call failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// DeliverFunc receives every resolved request exactly once. It is called from
// the goroutine that ran the analysis.
type DeliverFunc func(req Request, out Outcome)

// CoordinatorOption configures a [Coordinator].
type CoordinatorOption func(*Coordinator)

// WithRequestTimeout bounds each analysis call. Zero or negative disables the
// timeout. Default: [DefaultRequestTimeout].
func WithRequestTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// WithCoordinatorMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithCoordinatorMetrics(m *observe.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Coordinator issues analysis requests. Every request gets the next sequence
// number (starting at 1, never reused) and runs on its own goroutine; any
// number of requests may be outstanding. Failed calls are not retried.
//
// Coordinator is safe for concurrent use.
type Coordinator struct {
	provider analysis.Provider
	deliver  DeliverFunc
	timeout  time.Duration
	metrics  *observe.Metrics

	seq atomic.Uint64
	wg  sync.WaitGroup
}

// NewCoordinator returns a Coordinator that analyzes with p and hands results
// to deliver.
func NewCoordinator(p analysis.Provider, deliver DeliverFunc, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		provider: p,
		deliver:  deliver,
		timeout:  DefaultRequestTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Issue allocates a sequence number, starts analyzing text in the background
// and returns the number without waiting.
func (c *Coordinator) Issue(ctx context.Context, text string) uint64 {
	req := Request{Seq: c.seq.Add(1), Snapshot: text}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		out := c.call(ctx, req)
		c.deliver(req, out)
	}()
	return req.Seq
}

// Supersede allocates a sequence number without dispatching anything. Every
// request issued before it becomes older than the returned number.
func (c *Coordinator) Supersede() uint64 {
	return c.seq.Add(1)
}

// Latest returns the most recently allocated sequence number, or zero.
func (c *Coordinator) Latest() uint64 {
	return c.seq.Load()
}

// Wait blocks until every issued request has been delivered.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// call runs the provider for req and converts every failure, including a
// panic, into an error wrapping ErrTransientNetwork.
func (c *Coordinator) call(ctx context.Context, req Request) (out Outcome) {
	ctx, span := observe.StartAnalysisSpan(ctx, req.Seq, len(req.Snapshot))

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("%w: analysis provider panicked: %v", ErrTransientNetwork, r)}
		}
		status := "ok"
		if out.Failed() {
			status = "error"
			c.metrics.RecordAnalysisFailure(ctx, failureKind(ctx))
			observe.Logger(ctx).Warn("analysis failed", "seq", req.Seq, "err", out.Err)
		}
		c.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("status", status)))
		observe.EndSpan(span, out.Err)
	}()

	findings, err := c.provider.Analyze(ctx, req.Snapshot)
	if err != nil {
		return Outcome{Err: fmt.Errorf("%w: %w", ErrTransientNetwork, err)}
	}
	observe.Logger(ctx).Debug("analysis completed", "seq", req.Seq, "findings", len(findings))
	return Outcome{Findings: findings}
}

func failureKind(ctx context.Context) string {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return "timeout"
	case context.Canceled:
		return "canceled"
	default:
		return "error"
	}
}
