package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/prodapt-cloud/Pioneer-Training/internal/config"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

const tracerName = "github.com/prodapt-cloud/Pioneer-Training"

// NoopTracer returns a tracer that records nothing. Used when tracing
// is disabled or exporter setup failed.
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(tracerName)
}

// InitTracing sets up an OTLP/HTTP trace exporter against the
// configured collector endpoint and installs it as the global tracer
// provider. The returned shutdown func flushes pending spans.
func InitTracing(ctx context.Context, cfg *config.TelemetryConfig, logger *utils.Logger) (trace.Tracer, func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return NoopTracer(), nil, err
	}

	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.Project),
		),
	)
	if err != nil {
		return NoopTracer(), nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Info("OpenTelemetry tracing enabled", "endpoint", cfg.Endpoint, "service", cfg.Project)
	return provider.Tracer(tracerName), provider.Shutdown, nil
}

// TraceID returns the hex trace id of the span in ctx, or "" when no
// recording span is present.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
