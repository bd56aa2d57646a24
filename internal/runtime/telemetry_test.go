package runtime

import (
	"context"
	"testing"

	"github.com/hushkey/hushkey/internal/config"
)

func TestSpanExporterOffByDefault(t *testing.T) {
	exporter, name, err := newSpanExporter(context.Background(), config.Default().Telemetry)
	if err != nil {
		t.Fatalf("new span exporter: %v", err)
	}
	if exporter != nil {
		t.Fatalf("tracing should be disabled by default, got exporter %q", name)
	}
}

func TestSpanExporterStdoutOptIn(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.TraceStdout = true
	exporter, name, err := newSpanExporter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new span exporter: %v", err)
	}
	if exporter == nil || name != "stdout" {
		t.Fatalf("expected stdout exporter, got %v %q", exporter, name)
	}
	if err := exporter.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
