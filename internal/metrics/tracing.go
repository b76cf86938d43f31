package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "daylog"

// Span attribute keys
const (
	AttrUserID    = "user_id"
	AttrDay       = "day"
	AttrInput     = "input"
	AttrMentions  = "mentions"
	AttrSegments  = "segments"
	AttrAttempt   = "attempt"
	AttrWarnings  = "warnings"
	AttrErrorType = "error_type"
)

// Span names
const (
	SpanLog        = "daylog.log"
	SpanTranscribe = "daylog.transcribe"
	SpanExtract    = "daylog.extract"
	SpanRecord     = "daylog.record"
	SpanMerge      = "daylog.merge"
	SpanStats      = "daylog.stats"
)

type Tracer struct {
	tracer trace.Tracer
}

// NewTracer uses the global provider, which is a no-op until one is installed.
func NewTracer() *Tracer {
	return NewTracerWithProvider(otel.GetTracerProvider())
}

func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// Start opens a span tagged with the user it works for.
func (t *Tracer) Start(ctx context.Context, name string, userID int64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.Int64(AttrUserID, userID))
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End closes span, recording err if there was one.
func End(span trace.Span, err error, errorType string) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorType, errorType))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// TraceID returns the trace ID carried by ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
