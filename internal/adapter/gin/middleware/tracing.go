package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"traced-user-service/pkg/logger"
	"traced-user-service/pkg/tracing"
)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator
	// SkipPaths are request paths that get no span, e.g. /health.
	SkipPaths []string
}

// Tracing starts a server span for every request, continuing any trace
// context sent by the caller. Spans are named "HTTP {method} {route}" and
// marked as errors on 5xx responses.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if cfg.Propagator == nil {
		cfg.Propagator = tracing.Propagator()
	}
	tracer := cfg.TracerProvider.Tracer(tracing.InstrumentationName + "/http")

	skipped := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		r := c.Request
		if _, ok := skipped[r.URL.Path]; ok {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx := cfg.Propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRoute(route),
				semconv.URLPath(r.URL.Path),
				semconv.ServerAddress(r.Host),
				semconv.UserAgentOriginal(r.UserAgent()),
				semconv.ClientAddress(c.ClientIP()),
			),
		)
		defer span.End()

		if id := logger.GetRequestID(ctx); id != "" {
			span.SetAttributes(attribute.String("request.id", id))
		}

		c.Request = r.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
