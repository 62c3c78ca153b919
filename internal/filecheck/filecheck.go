// Package filecheck validates uploaded documents and runs them through the
// whole-file analysis provider.
//
// Each user action results in exactly one AnalyzeFile call. The provider is
// guarded by a circuit breaker; failures are reported as transient network
// errors and never retried automatically.
package filecheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/internal/resilience"
	"github.com/MrWong99/livespell/internal/spellcheck"
	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/types"
)

var (
	// ErrUnsupportedType is returned for files whose extension is not allowed.
	ErrUnsupportedType = errors.New("filecheck: unsupported file type")

	// ErrTooLarge is returned for files above the configured size limit.
	ErrTooLarge = errors.New("filecheck: file too large")

	// ErrEmpty is returned for zero-byte uploads.
	ErrEmpty = errors.New("filecheck: file is empty")

	// ErrTooManyFiles is returned for batches above the configured size.
	ErrTooManyFiles = errors.New("filecheck: too many files")
)

const (
	defaultTimeout  = 60 * time.Second
	defaultParallel = 4
	defaultMaxBatch = 5
)

// Result is the outcome of checking one file.
type Result struct {
	Filename         string `json:"filename"`
	CorrectionsCount int    `json:"corrections_count"`
	Locator          string `json:"download_url"`
	FileType         string `json:"file_type,omitempty"`
}

// Upload is one file of a batch.
type Upload struct {
	Filename string
	Data     []byte
}

// BatchResult pairs an upload with its result or error. Exactly one of
// Result and Err is set.
type BatchResult struct {
	Filename string
	Result   *Result
	Err      error
}

// Checker runs file checks. It is safe for concurrent use.
type Checker struct {
	provider analysis.FileProvider
	breaker  *resilience.CircuitBreaker
	metrics  *observe.Metrics
	timeout  time.Duration
	parallel int
	maxBatch int

	mu       sync.RWMutex
	allowed  []string
	maxBytes int64
}

// Option configures a [Checker].
type Option func(*Checker)

// WithAllowedExtensions restricts uploads to exts (without leading dots,
// case-insensitive). Default: txt, pdf, docx.
func WithAllowedExtensions(exts ...string) Option {
	return func(c *Checker) { c.allowed = normalize(exts) }
}

// WithMaxBytes caps upload size. Zero disables the limit.
func WithMaxBytes(n int64) Option {
	return func(c *Checker) { c.maxBytes = n }
}

// WithTimeout bounds each provider call. Default: 60s.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// WithBreaker replaces the default circuit breaker configuration.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *Checker) {
		if cfg.Name == "" {
			cfg.Name = "files"
		}
		c.breaker = resilience.NewCircuitBreaker(cfg)
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Checker) { c.metrics = m }
}

// WithParallelism caps how many files of a batch are analyzed at once.
func WithParallelism(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.parallel = n
		}
	}
}

// WithMaxBatch caps how many files one batch may contain. Default: 5.
func WithMaxBatch(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// New returns a Checker backed by p.
func New(p analysis.FileProvider, opts ...Option) *Checker {
	c := &Checker{
		provider: p,
		timeout:  defaultTimeout,
		parallel: defaultParallel,
		maxBatch: defaultMaxBatch,
		allowed:  []string{"txt", "pdf", "docx"},
	}
	for _, o := range opts {
		o(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "files"})
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// SetLimits replaces the upload restrictions. Used on config reload.
func (c *Checker) SetLimits(exts []string, maxBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowed = normalize(exts)
	c.maxBytes = maxBytes
}

// MaxBytes returns the current upload size limit (zero means unlimited).
func (c *Checker) MaxBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxBytes
}

// MaxBatch returns the largest number of files accepted by [Checker.CheckAll].
func (c *Checker) MaxBatch() int { return c.maxBatch }

// AllowedExtensions returns a copy of the accepted extensions.
func (c *Checker) AllowedExtensions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.allowed)
}

// Validate checks filename and size against the current restrictions.
func (c *Checker) Validate(filename string, size int64) error {
	ext := Extension(filename)
	c.mu.RLock()
	allowed, maxBytes := c.allowed, c.maxBytes
	c.mu.RUnlock()

	if !slices.Contains(allowed, ext) {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedType, filename, strings.Join(allowed, ", "))
	}
	if size == 0 {
		return fmt.Errorf("%w: %q", ErrEmpty, filename)
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: %q is %d bytes (limit %d)", ErrTooLarge, filename, size, maxBytes)
	}
	return nil
}

// Check validates data and submits it to the file provider once.
func (c *Checker) Check(ctx context.Context, filename string, data []byte) (res *Result, err error) {
	ext := Extension(filename)
	ctx, span := observe.StartFileSpan(ctx, ext, len(data))

	start := time.Now()
	defer func() {
		status := "ok"
		switch {
		case errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrTooLarge), errors.Is(err, ErrEmpty):
			status = "rejected"
			span.SetAttributes(attribute.String("file.rejected", err.Error()))
			observe.EndSpan(span, nil)
		case err != nil:
			status = "error"
			observe.Logger(ctx).Warn("file check failed", "file", filename, "err", err)
			observe.EndSpan(span, err)
		default:
			observe.EndSpan(span, nil)
		}
		c.metrics.RecordFileCheck(ctx, ext, status)
		c.metrics.FileCheckDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("status", status)))
	}()

	if err := c.Validate(filename, int64(len(data))); err != nil {
		return nil, err
	}

	var report *types.FileReport
	err = c.breaker.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var callErr error
		report, callErr = c.provider.AnalyzeFile(callCtx, data, filepath.Base(filename))
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("filecheck: analyze %q: %w: %w", filename, spellcheck.ErrTransientNetwork, err)
	}
	if report == nil {
		return nil, fmt.Errorf("filecheck: analyze %q: %w: empty report", filename, spellcheck.ErrTransientNetwork)
	}

	res = &Result{
		Filename:         filepath.Base(filename),
		CorrectionsCount: report.CorrectionsCount,
		Locator:          report.DownloadLocator,
		FileType:         report.FileType,
	}
	if res.FileType == "" {
		res.FileType = ext
	}
	return res, nil
}

// CheckAll checks every upload, at most [WithParallelism] at a time. One
// file failing does not affect the others; results keep the input order.
// Batches larger than [Checker.MaxBatch] are rejected as a whole.
func (c *Checker) CheckAll(ctx context.Context, uploads []Upload) ([]BatchResult, error) {
	if len(uploads) > c.maxBatch {
		return nil, fmt.Errorf("%w: %d (limit %d)", ErrTooManyFiles, len(uploads), c.maxBatch)
	}
	ctx, span := observe.StartSpan(ctx, "filecheck.batch",
		trace.WithAttributes(observe.AttrFileCount.Int(len(uploads))))
	defer span.End()

	out := make([]BatchResult, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for i, u := range uploads {
		g.Go(func() error {
			res, err := c.Check(gctx, u.Filename, u.Data)
			out[i] = BatchResult{Filename: u.Filename, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// Download fetches the corrected artifact behind locator. The caller must
// close the returned reader.
func (c *Checker) Download(ctx context.Context, locator string) (io.ReadCloser, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, errors.New("filecheck: download: empty locator")
	}
	var rc io.ReadCloser
	err := c.breaker.Execute(func() error {
		var err error
		rc, err = c.provider.Download(ctx, locator)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("filecheck: download %q: %w: %w", locator, spellcheck.ErrTransientNetwork, err)
	}
	return rc, nil
}

// Ready reports an error while the provider's circuit breaker is open.
func (c *Checker) Ready(context.Context) error {
	if c.breaker.State() == resilience.StateOpen {
		return resilience.ErrCircuitOpen
	}
	return nil
}

// State returns the provider's circuit breaker state.
func (c *Checker) State() string { return c.breaker.State().String() }

// Extension returns filename's extension, lower-cased and without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func normalize(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" && !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}
