package observability

import (
	"context"

	"siteworks/internal/config"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitStandardTracing builds a batching tracer provider that exports over
// OTLP. Root spans are sampled at cfg.SamplingRate; children follow their parent.
func InitStandardTracing(cfg *config.OpenTelemetryConfig) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	), nil
}
