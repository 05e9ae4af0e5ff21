package tracing

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap/zaptest"
)

func TestConfig_Endpoint(t *testing.T) {
	assert.Equal(t, "jaeger:4317", Config{AgentHost: "jaeger", AgentPort: "4317"}.Endpoint())
	assert.Equal(t, "[::1]:4317", Config{AgentHost: "::1", AgentPort: "4317"}.Endpoint())
}

func TestNewProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := NewProvider(ctx, Config{
		Enabled:        false,
		ServiceName:    "traced-user-service",
		ServiceVersion: "test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	_, span := tp.Tracer(InstrumentationName).Start(ctx, "get_users")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
}

func TestPropagator_RoundTrip(t *testing.T) {
	ctx := context.Background()

	tp, err := NewProvider(ctx, Config{ServiceName: "traced-user-service"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	ctx, span := tp.Tracer(InstrumentationName).Start(ctx, "outbound")
	defer span.End()

	header := http.Header{}
	Propagator().Inject(ctx, propagation.HeaderCarrier(header))
	require.NotEmpty(t, header.Get("traceparent"))

	extracted := Propagator().Extract(context.Background(), propagation.HeaderCarrier(header))
	_, child := tp.Tracer(InstrumentationName).Start(extracted, "inbound")
	defer child.End()

	assert.Equal(t, span.SpanContext().TraceID(), child.SpanContext().TraceID())
}
