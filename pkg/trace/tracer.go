// Package trace provides the pluggable span tracer. The default is a
// no-op; the OpenTelemetry-backed tracer is opt-in via configuration and
// degrades to no-op on any setup failure.
package trace

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer opens a named span with tags; the returned func ends it and must
// run on all exit paths.
type Tracer interface {
	Span(ctx context.Context, name string, tags map[string]string) (context.Context, func())
}

// Noop is the default tracer.
type Noop struct{}

// Span implements Tracer by doing nothing.
func (Noop) Span(ctx context.Context, _ string, _ map[string]string) (context.Context, func()) {
	return ctx, func() {}
}

// otelTracer bridges Tracer to the process-global OpenTelemetry provider.
type otelTracer struct {
	tracer oteltrace.Tracer
}

func (t *otelTracer) Span(ctx context.Context, name string, tags map[string]string) (context.Context, func()) {
	attrs := make([]attribute.KeyValue, 0, len(tags))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	ctx, span := t.tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
	return ctx, func() { span.End() }
}

// New returns the configured tracer. When disabled, or when the otel
// provider cannot be obtained, it returns Noop.
func New(enabled bool) Tracer {
	if !enabled {
		return Noop{}
	}
	tracer := otel.GetTracerProvider().Tracer("ai-travel-assistant")
	if tracer == nil {
		slog.Warn("Tracer provider unavailable, tracing disabled")
		return Noop{}
	}
	return &otelTracer{tracer: tracer}
}
