package telemetry

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "parley-test", Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetupWithEndpoint(t *testing.T) {
	// Non-routable address; nothing is exported because no spans are recorded.
	shutdown, err := Setup(context.Background(), "parley-test", Config{
		Endpoint: "http://192.0.2.1:4318",
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSampler(t *testing.T) {
	always := sdktrace.AlwaysSample().Description()
	tests := []struct {
		ratio float64
		want  bool
	}{
		{0, true},
		{1, true},
		{-2, true},
		{0.25, false},
	}
	for _, tt := range tests {
		got := sampler(tt.ratio).Description() == always
		if got != tt.want {
			t.Errorf("sampler(%v) always-on = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}
