package exporters

import (
	"context"
	"testing"
)

func TestNewTracingExporter(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{"stdout", false},
		{"none", false},
		{"", false},
		{"jaeger", true},
		{"bogus", true},
	}
	for _, tt := range tests {
		exp, err := NewTracingExporter(ctx, tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewTracingExporter(%q) error = nil, want error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewTracingExporter(%q) error = %v", tt.name, err)
			continue
		}
		if exp == nil {
			t.Errorf("NewTracingExporter(%q) = nil exporter", tt.name)
		}
	}
}

func TestNewTracingExporter_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	if _, err := NewTracingExporter(context.Background(), "otlp"); err == nil {
		t.Error("NewTracingExporter(otlp) error = nil, want error without endpoint")
	}
}

func TestNewMetricsReader(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{"stdout", false},
		{"none", false},
		{"", false},
		{"prometheus", false},
		{"statsd", true},
	}
	for _, tt := range tests {
		reader, err := NewMetricsReader(ctx, tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewMetricsReader(%q) error = nil, want error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewMetricsReader(%q) error = %v", tt.name, err)
			continue
		}
		if reader == nil {
			t.Errorf("NewMetricsReader(%q) = nil reader", tt.name)
		}
	}
}

func TestNewMetricsReader_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewMetricsReader(context.Background(), "otlp"); err == nil {
		t.Error("NewMetricsReader(otlp) error = nil, want error without endpoint")
	}
}
