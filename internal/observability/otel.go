// Package observability installs the OpenTelemetry tracer provider used by
// the store gateway spans, the service spans, the GORM tracing plugin and
// the ops server's otelgin middleware.
package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-messenger-store/internal/config"
)

// Shutdown flushes and stops tracing.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Test seams.
var (
	newExporter = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}
	newResource = func(ctx context.Context, attrs ...attribute.KeyValue) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(attrs...))
	}
)

// Setup installs a batching OTLP/gRPC tracer provider and the W3C
// propagators when cfg.OTEL.Enabled. Globals are untouched on error or when
// tracing is disabled.
func Setup(ctx context.Context, cfg config.Config, version string) (Shutdown, error) {
	if !cfg.OTEL.Enabled {
		return noopShutdown, nil
	}

	exp, err := newExporter(ctx, otlptracegrpc.NewClient(clientOptions(cfg.OTEL)...))
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx,
		semconv.ServiceName(cfg.OTEL.ServiceName),
		semconv.ServiceVersion(version),
		attribute.String("messenger.store.driver", cfg.Driver),
	)
	if err != nil {
		return nil, errors.Join(err, exp.Shutdown(ctx))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sampler(cfg.OTEL.SampleRatio)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}, nil
}

func clientOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		return append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
}

// sampler honours the parent's decision and samples root spans by ratio.
func sampler(ratio float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case ratio >= 1:
		root = sdktrace.AlwaysSample()
	case ratio <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(root)
}
