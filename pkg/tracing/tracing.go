// Package tracing builds the OpenTelemetry tracer provider used by the service.
//
// Spans are batched and exported over OTLP/gRPC to the tracing agent host
// (Jaeger accepts OTLP natively on port 4317). When tracing is disabled the
// provider still produces valid spans, they are just never exported.
package tracing

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

// InstrumentationName identifies spans created by this service's own code.
const InstrumentationName = "traced-user-service"

// Config holds tracer provider configuration.
type Config struct {
	Enabled        bool
	AgentHost      string
	AgentPort      string
	ServiceName    string
	ServiceVersion string
	Environment    string
	BatchTimeout   time.Duration
}

// Endpoint returns the host:port the exporter sends to.
func (c Config) Endpoint() string {
	return net.JoinHostPort(c.AgentHost, c.AgentPort)
}

// NewProvider creates a tracer provider with a batch span processor.
func NewProvider(ctx context.Context, cfg Config, log *zap.Logger) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if !cfg.Enabled {
		log.Info("tracing export disabled")
		return sdktrace.NewTracerProvider(sdktrace.WithResource(res)), nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(cfg.Endpoint()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 5 * time.Second
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
		sdktrace.WithResource(res),
	)

	log.Info("tracing export enabled",
		zap.String("endpoint", cfg.Endpoint()),
		zap.Duration("batch_timeout", batchTimeout),
	)

	return tp, nil
}

// Propagator returns the W3C trace-context and baggage propagator.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}
