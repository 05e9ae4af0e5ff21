package infrastructure

import (
	"context"

	"traced-user-service/internal/config"
	"traced-user-service/pkg/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// NewTracerProvider builds the tracer provider exporting to the configured agent host.
func NewTracerProvider(ctx context.Context, cfg *config.Config, l *zap.Logger) (*sdktrace.TracerProvider, error) {
	return tracing.NewProvider(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		AgentHost:      cfg.Tracing.AgentHost,
		AgentPort:      cfg.Tracing.AgentPort,
		ServiceName:    cfg.Logger.ServiceName,
		ServiceVersion: cfg.Logger.ServiceVersion,
		Environment:    cfg.App.Environment,
	}, l)
}
