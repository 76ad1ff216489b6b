package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/matzehuels/formulascope/pkg/buildinfo"
)

// DefaultMetricInterval is how often metrics are pushed to the collector.
const DefaultMetricInterval = 30 * time.Second

// ExportOptions configures [Install].
type ExportOptions struct {
	// Endpoint is the OTLP/HTTP collector as host:port. Traces and metrics
	// go to the same collector.
	Endpoint    string
	ServiceName string
	// Insecure disables TLS to the collector.
	Insecure bool
	// MetricInterval overrides DefaultMetricInterval.
	MetricInterval time.Duration
}

// Install creates global tracer and meter providers exporting spans and
// metrics to the collector over OTLP/HTTP, and registers [OTelHooks] for
// the engine, cache and store. The returned function flushes both
// exporters and restores the no-op hooks.
func Install(ctx context.Context, opts ExportOptions) (shutdown func(context.Context) error, err error) {
	if opts.Endpoint == "" {
		return nil, errors.New("observability: OTLP endpoint is required")
	}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}
	spans, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, err
	}
	metrics, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, errors.Join(err, spans.Shutdown(ctx))
	}

	interval := opts.MetricInterval
	if interval <= 0 {
		interval = DefaultMetricInterval
	}
	reader := sdkmetric.NewPeriodicReader(metrics, sdkmetric.WithInterval(interval))
	return install(opts.ServiceName, sdktrace.WithBatcher(spans), reader)
}

// install wires the providers around the given span processor and metric
// reader, sets them as the otel globals and registers the hooks.
func install(name string, spans sdktrace.TracerProviderOption, reader sdkmetric.Reader) (func(context.Context) error, error) {
	if name == "" {
		name = "formulascope"
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", buildinfo.Version),
	)
	tp := sdktrace.NewTracerProvider(spans, sdktrace.WithResource(res))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))

	hooks, err := NewOTelHooks(tp.Tracer(name), mp.Meter(name))
	if err != nil {
		ctx := context.Background()
		return nil, errors.Join(err, tp.Shutdown(ctx), mp.Shutdown(ctx))
	}
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	SetEngineHooks(hooks)
	SetCacheHooks(hooks)
	SetStoreHooks(hooks)

	return func(ctx context.Context) error {
		Reset()
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
