package telemetry

import (
	"context"
	"testing"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	provider, err := Setup(context.Background(), Options{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if provider.Enabled() {
		t.Fatalf("expected tracing to be disabled")
	}
	if provider.Tracer() == nil {
		t.Fatalf("expected a no-op tracer")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupWithEndpoint(t *testing.T) {
	provider, err := Setup(context.Background(), Options{Endpoint: "127.0.0.1:4318", Insecure: true, ServiceName: "pagegen-test"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if !provider.Enabled() {
		t.Fatalf("expected tracing to be enabled")
	}
	_, span := provider.Tracer().Start(context.Background(), "probe")
	if !span.SpanContext().IsValid() {
		t.Fatalf("expected a recording span")
	}
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Nothing listens on the endpoint; a cancelled flush must not hang.
	_ = provider.Shutdown(ctx)
}
