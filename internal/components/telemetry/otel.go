package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type OtlpConfig struct {
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

// Tracing owns the tracer provider installed by SetupTracing.
type Tracing struct {
	provider *trace.TracerProvider
}

func (t Tracing) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

// SetupTracing installs a global tracer provider exporting to an OTLP http endpoint.
// An empty endpoint leaves the default no-op provider in place.
func SetupTracing(ctx context.Context, serviceName string, config OtlpConfig) (Tracing, error) {
	if config.HttpEndpoint == "" {
		return Tracing{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return Tracing{}, err
	}

	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(config.HttpEndpoint),
		otlptracehttp.WithHeaders(config.Headers),
	)
	if err != nil {
		return Tracing{}, err
	}
	slog.Info(
		"tracer export initialized",
		"type", "http",
		"endpoint", config.HttpEndpoint,
		"headers", len(config.Headers) > 0,
	)

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	)
	otel.SetTracerProvider(provider)

	return Tracing{provider: provider}, nil
}
