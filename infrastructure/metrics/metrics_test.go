package metrics

import (
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)

	if m == nil {
		t.Fatal("Expected metrics instance, got nil")
	}

	if m.RequestsTotal == nil {
		t.Error("RequestsTotal should not be nil")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration should not be nil")
	}
	if m.ErrorsTotal == nil {
		t.Error("ErrorsTotal should not be nil")
	}
	if m.CyclesDiscoveredTotal == nil {
		t.Error("CyclesDiscoveredTotal should not be nil")
	}
	if m.CyclesEvictedTotal == nil {
		t.Error("CyclesEvictedTotal should not be nil")
	}
	if m.RescanDuration == nil {
		t.Error("RescanDuration should not be nil")
	}
	if m.PersistenceOpsTotal == nil {
		t.Error("PersistenceOpsTotal should not be nil")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)

	m.RecordHTTPRequest("test-service", "GET", "/api/test", "200", 100*time.Millisecond)
	m.RecordHTTPRequest("test-service", "POST", "/api/test", "201", 200*time.Millisecond)
	m.RecordHTTPRequest("test-service", "GET", "/api/test", "404", 50*time.Millisecond)
}

func TestRecordError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)

	m.RecordError("test-service", "validation", "submit_inventory")
	m.RecordError("test-service", "persistence", "append_event")
}

func TestRecordRescan(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)

	m.RecordRescan("tenant-1", 3, 1, false, 5*time.Millisecond)
	m.RecordRescan("tenant-1", 0, 0, true, 20*time.Millisecond)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	var sawBudgetHit bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "enumeration_budget_exhausted_total" {
			for _, metric := range mf.GetMetric() {
				if metric.GetCounter().GetValue() == 1 {
					sawBudgetHit = true
				}
			}
		}
	}
	if !sawBudgetHit {
		t.Fatal("expected exactly one budget-exhausted rescan recorded")
	}
}

func TestRecordEviction(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)

	m.RecordEviction("tenant-1", "ttl", 4)
	m.RecordEviction("tenant-1", "rejection", 0)
}

func TestSetActiveCyclesStored(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)

	m.SetActiveCyclesStored("tenant-1", 42)
	m.SetCoordinatorQueueDepth("tenant-1", 3)
}

func TestRecordPersistenceOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)

	m.RecordPersistenceOp("test-service", "append_event", "success", 2*time.Millisecond)
	m.RecordPersistenceOp("test-service", "save_snapshot", "failed", 1*time.Millisecond)
}

func TestUpdateUptime(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)
	startTime := time.Now().Add(-1 * time.Hour)

	m.UpdateUptime(startTime)
}

func TestInFlightCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)

	m.IncrementInFlight()
	m.IncrementInFlight()
	m.DecrementInFlight()
	m.DecrementInFlight()
}

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", reg)

	if m == nil {
		t.Fatal("Expected metrics instance, got nil")
	}

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Error("Expected metrics to be registered")
	}
}

func TestEnabled(t *testing.T) {
	savedMetrics := os.Getenv("METRICS_ENABLED")
	savedMarble := os.Getenv("MARBLE_ENV")
	defer func() {
		if savedMetrics != "" {
			os.Setenv("METRICS_ENABLED", savedMetrics)
		} else {
			os.Unsetenv("METRICS_ENABLED")
		}
		if savedMarble != "" {
			os.Setenv("MARBLE_ENV", savedMarble)
		} else {
			os.Unsetenv("MARBLE_ENV")
		}
	}()

	t.Run("explicitly enabled", func(t *testing.T) {
		os.Setenv("METRICS_ENABLED", "true")
		if !Enabled() {
			t.Error("Enabled() should return true when METRICS_ENABLED=true")
		}
	})

	t.Run("explicitly disabled", func(t *testing.T) {
		os.Setenv("METRICS_ENABLED", "false")
		if Enabled() {
			t.Error("Enabled() should return false when METRICS_ENABLED=false")
		}
	})

	t.Run("default in development", func(t *testing.T) {
		os.Unsetenv("METRICS_ENABLED")
		os.Setenv("MARBLE_ENV", "development")
		if !Enabled() {
			t.Error("Enabled() should return true by default in development")
		}
	})

	t.Run("default in production", func(t *testing.T) {
		os.Unsetenv("METRICS_ENABLED")
		os.Setenv("MARBLE_ENV", "production")
		if Enabled() {
			t.Error("Enabled() should return false by default in production")
		}
	})

	t.Run("case insensitive and trimmed", func(t *testing.T) {
		os.Setenv("METRICS_ENABLED", "  TRUE  ")
		if !Enabled() {
			t.Error("Enabled() should be case insensitive and trim whitespace")
		}
	})
}

func TestInitAndGlobal(t *testing.T) {
	t.Run("Init is idempotent", func(t *testing.T) {
		m1 := Init("service-1")
		m2 := Init("service-2")
		if m1 != m2 {
			t.Error("Init() should return the same instance on subsequent calls")
		}
	})

	t.Run("Global returns the Init instance", func(t *testing.T) {
		m1 := Init("test-service")
		m2 := Global()
		if m1 != m2 {
			t.Error("Global() should return the same instance as Init()")
		}
	})
}
