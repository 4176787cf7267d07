package otelx

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{Enabled: false, Sample: 99.9})
	if err != nil {
		t.Fatalf("Init disabled: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("TracerProvider type = %T, want *sdktrace.TracerProvider", otel.GetTracerProvider())
	}

	fields := map[string]bool{}
	for _, f := range otel.GetTextMapPropagator().Fields() {
		fields[f] = true
	}
	if !fields["traceparent"] || !fields["baggage"] {
		t.Fatalf("propagator fields = %v", fields)
	}

	// ids are generated even without an exporter
	_, span := otel.Tracer("test").Start(context.Background(), "span")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Fatal("disabled tracing should still produce valid span contexts")
	}
}

func TestServiceName(t *testing.T) {
	tests := []struct {
		service, component, want string
	}{
		{"devopsplatform", "server", "devopsplatform.server"},
		{"devopsplatform", "", "devopsplatform"},
		{"", "server", "server"},
	}
	for _, tt := range tests {
		o := Options{Service: tt.service, Component: tt.component}
		if got := o.serviceName(); got != tt.want {
			t.Errorf("serviceName(%q, %q) = %q, want %q", tt.service, tt.component, got, tt.want)
		}
	}
}

func TestResourceAttributes(t *testing.T) {
	attrs := Options{Service: "devopsplatform", Component: "server", Version: "2.1.3", Environment: "staging"}.resourceAttributes()
	got := map[attribute.Key]string{}
	for _, kv := range attrs {
		got[kv.Key] = kv.Value.AsString()
	}
	if got["service.name"] != "devopsplatform.server" || got["service.version"] != "2.1.3" {
		t.Fatalf("attrs = %v", got)
	}
	if got["deployment.environment"] != "staging" {
		t.Fatalf("deployment.environment = %q", got["deployment.environment"])
	}

	if n := len(Options{Service: "x"}.resourceAttributes()); n != 2 {
		t.Fatalf("empty environment should be omitted, got %d attrs", n)
	}
}

func TestInit_Enabled_ReturnsPromptly(t *testing.T) {
	// gRPC defers connection establishment, so an unreachable collector
	// must not block startup past the dial timeout.
	start := time.Now()
	shutdown, err := Init(context.Background(), Options{
		Enabled:   true,
		Endpoint:  "localhost:1",
		Insecure:  true,
		Sample:    1.0,
		Service:   "test",
		Component: "test",
		Version:   "v0.0.0-test",
	})
	elapsed := time.Since(start)
	if elapsed > 15*time.Second {
		t.Fatalf("Init took %v", elapsed)
	}
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Logf("shutdown error (expected with no collector): %v", err)
	}
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
}
