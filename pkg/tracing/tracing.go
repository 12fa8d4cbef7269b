// Package tracing holds the process-wide OpenTelemetry tracer for the
// document pipeline. Spans follow the pkg.Type.Method naming convention and
// the traceparent helper carries the context onto Kafka messages and OCR
// sidecar requests.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

// SetTracer installs the tracer at startup. Until it is set, StartSpan is a
// passthrough and every lookup helper reports no active span, so code paths
// stay identical whether OTLP export is configured or not.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan opens a child span named pkg.Type.Method, or hands the context
// back untouched when tracing is disabled.
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName)
}

// GetActiveSpan returns the in-flight span, or nil when tracing is disabled
// or the context carries no valid span.
func GetActiveSpan(ctx context.Context) trace.Span {
	if tracer == nil {
		return nil
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span
	}
	return nil
}

// GetTraceParent renders the active span as a W3C traceparent header value
// for propagation across process boundaries.
func GetTraceParent(ctx context.Context) string {
	if GetActiveSpan(ctx) == nil {
		return ""
	}

	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier.Get("traceparent")
}

// GetTraceID returns the active trace ID, or empty when none is in flight.
func GetTraceID(ctx context.Context) string {
	span := GetActiveSpan(ctx)
	if span == nil {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// GetSpanID returns the active span ID, or empty when none is in flight.
func GetSpanID(ctx context.Context) string {
	span := GetActiveSpan(ctx)
	if span == nil {
		return ""
	}
	return span.SpanContext().SpanID().String()
}
