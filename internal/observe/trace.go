package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/livespell"

// Attribute keys set on livespell spans.
const (
	AttrSession    = attribute.Key("livespell.session")
	AttrSeq        = attribute.Key("livespell.seq")
	AttrProvider   = attribute.Key("livespell.provider")
	AttrKind       = attribute.Key("livespell.provider.kind")
	AttrTextLength = attribute.Key("text.length")
	AttrFileType   = attribute.Key("file.type")
	AttrFileSize   = attribute.Key("file.size")
	AttrFileCount  = attribute.Key("file.count")
)

type sessionKey struct{}

// WithSession tags ctx with a live session ID. Spans started through this
// package and loggers from [Logger] pick it up.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session ID set by [WithSession], or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Tracer returns the livespell tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span named name. The span carries the session ID of ctx
// when there is one. The caller must end it, usually through [EndSpan].
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if id := SessionID(ctx); id != "" {
		opts = append(opts, trace.WithAttributes(AttrSession.String(id)))
	}
	return Tracer().Start(ctx, name, opts...)
}

// StartAnalysisSpan starts the span for live analysis request seq.
func StartAnalysisSpan(ctx context.Context, seq uint64, textLen int) (context.Context, trace.Span) {
	return StartSpan(ctx, "spellcheck.analyze", trace.WithAttributes(
		AttrSeq.Int64(int64(seq)),
		AttrTextLength.Int(textLen),
	))
}

// StartProviderSpan starts a client span around one call to the backend
// registered as name for kind ("analysis", "language", ...).
func StartProviderSpan(ctx context.Context, kind, name string) (context.Context, trace.Span) {
	return StartSpan(ctx, "provider."+kind,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(AttrKind.String(kind), AttrProvider.String(name)),
	)
}

// StartFileSpan starts the span for checking one uploaded file.
func StartFileSpan(ctx context.Context, fileType string, size int) (context.Context, trace.Span) {
	return StartSpan(ctx, "filecheck.check", trace.WithAttributes(
		AttrFileType.String(fileType),
		AttrFileSize.Int(size),
	))
}

// EndSpan marks span as failed when err is non-nil and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Logger returns the default logger enriched with the session ID and the
// trace and span IDs found in ctx.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := SessionID(ctx); id != "" {
		l = l.With(slog.String("session", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
