package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()

	shutdown, err := Init(context.Background(), Options{
		ServiceName: "distromart-be",
		Environment: "test",
		Processors:  []sdktrace.SpanProcessor{recorder},
	})
	require.NoError(t, err)
	defer shutdown(context.Background())

	_, span := otel.Tracer("test").Start(context.Background(), "order.PlaceOrder")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "order.PlaceOrder", ended[0].Name())
}

func TestInit_WithEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{
		ServiceName: "distromart-be",
		Endpoint:    "http://127.0.0.1:4318",
	})
	require.NoError(t, err)
	assert.NotNil(t, shutdown)
}
