package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/authgate/internal/infra/config"
)

func TestNewTracerProviderWithoutExporter(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetrySettings{
		ServiceName:  "authgate-test",
		SamplingRate: 1,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTracerProvider returned error: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	if !span.SpanContext().IsValid() {
		t.Fatal("expected sampled span with valid context")
	}
	span.End()

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
