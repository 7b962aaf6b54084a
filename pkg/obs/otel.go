package obs

import (
	"context"
	"fmt"
	"staybook/pkg/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const ServiceVersion = "0.1.0"

// InitTracer installs an OTLP/gRPC tracer provider and the W3C propagators as
// the process globals. Without OTEL_EXPORTER_OTLP_ENDPOINT it leaves the no-op
// provider in place. The returned func flushes and stops the exporter.
func InitTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.OTelEndpoint == "" {
		cfg.Log.Info("Tracing disabled, no OTLP endpoint configured")
		return func(context.Context) error { return nil }, nil
	}

	// Plaintext gRPC, the collector is expected to run next to the service.
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	tp := NewTracerProvider(exp, newResource(ctx, cfg), cfg.TracingSampleRatio)
	otel.SetTracerProvider(tp)

	cfg.Log.Info("Tracing enabled",
		"endpoint", cfg.OTelEndpoint,
		"sample_ratio", cfg.TracingSampleRatio,
	)
	return tp.Shutdown, nil
}

// NewTracerProvider batches spans to exp. Root spans are sampled at ratio and
// child spans follow their parent's decision.
func NewTracerProvider(exp sdktrace.SpanExporter, res *resource.Resource, ratio float64) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
}

func newResource(ctx context.Context, cfg *config.Config) *resource.Resource {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		cfg.Log.Warn("Failed to build trace resource", "error", err)
	}
	return res
}
