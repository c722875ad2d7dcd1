package logger

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dispatch-engine"

// SpanContext pairs a started span with the context it lives in, so callers
// end the span without juggling both values.
type SpanContext struct {
	ctx  context.Context
	span trace.Span
}

// StartSpan opens a child span of whatever trace is active on ctx.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) *SpanContext {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, opts...)
	return &SpanContext{ctx: ctx, span: span}
}

// StartSpanFromTraceID opens a span continuing a trace whose ID crossed a
// process boundary as a plain string, which is how the ingest API hands trace
// identity to the worker through the Redis queue. An empty or malformed ID
// falls back to a fresh root span.
func StartSpanFromTraceID(ctx context.Context, rawTraceID string, name string, opts ...trace.SpanStartOption) *SpanContext {
	if rawTraceID != "" {
		if traceID, err := trace.TraceIDFromHex(rawTraceID); err == nil {
			remote := trace.NewSpanContext(trace.SpanContextConfig{
				TraceID:    traceID,
				TraceFlags: trace.FlagsSampled,
				Remote:     true,
			})
			opts = append(opts, trace.WithLinks(trace.Link{SpanContext: remote}))
			ctx = trace.ContextWithRemoteSpanContext(ctx, remote)
		}
	}
	return StartSpan(ctx, name, opts...)
}

// Context returns the span-carrying context.
func (sc *SpanContext) Context() context.Context {
	return sc.ctx
}

// End finishes the span.
func (sc *SpanContext) End() {
	if sc.span != nil {
		sc.span.End()
	}
}

// RecordError attaches err to the span. Nil errors are ignored.
func (sc *SpanContext) RecordError(err error) {
	if sc.span != nil && err != nil {
		sc.span.RecordError(err)
	}
}

// Span exposes the raw span for attribute setting.
func (sc *SpanContext) Span() trace.Span {
	return sc.span
}
