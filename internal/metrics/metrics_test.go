package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistry(t *testing.T) {
	// NewRegistry should create a new registry with all metrics
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}

	// Gather metrics to verify they're registered
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	// Should have Go runtime metrics plus our custom metrics
	if len(mfs) == 0 {
		t.Error("expected metrics to be registered, got none")
	}
}

func TestRegisterWith(t *testing.T) {
	// Create a new registry
	reg := prometheus.NewRegistry()

	// RegisterWith should not panic on first call
	RegisterWith(reg)

	// Verify we can gather from the registry
	_, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	expectedCount := 6 // Total number of metrics defined
	if len(allMetrics) != expectedCount {
		t.Errorf("expected %d metrics in allMetrics, got %d", expectedCount, len(allMetrics))
	}
}

func TestMetricLabels(t *testing.T) {
	// Test that metrics can be used with expected labels without panicking
	tests := []struct {
		name string
		fn   func()
	}{
		{
			name: "APIRequestsTotal",
			fn: func() {
				APIRequestsTotal.WithLabelValues("/v1/config", "GET", "200").Inc()
			},
		},
		{
			name: "APIRequestDuration",
			fn: func() {
				APIRequestDuration.WithLabelValues("/v1/config", "GET").Observe(0.01)
			},
		},
		{
			name: "CatalogCommitsTotal",
			fn: func() {
				CatalogCommitsTotal.WithLabelValues("success").Inc()
			},
		},
		{
			name: "CatalogTableLoadsTotal",
			fn: func() {
				CatalogTableLoadsTotal.WithLabelValues("cached").Inc()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("metric %s panicked: %v", tt.name, r)
				}
			}()
			tt.fn()
		})
	}
}
