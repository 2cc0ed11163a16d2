// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// environment is the logical deployment environment, derived from
// MARBLE_ENV (preferred) or ENVIRONMENT (legacy fallback). Unknown values
// default to "development".
type environment string

const (
	envDevelopment environment = "development"
	envTesting     environment = "testing"
	envProduction  environment = "production"
)

func currentEnvironment() environment {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("MARBLE_ENV")))
	if raw == "" {
		raw = strings.ToLower(strings.TrimSpace(os.Getenv("ENVIRONMENT")))
	}
	switch environment(raw) {
	case envDevelopment, envTesting, envProduction:
		return environment(raw)
	default:
		return envDevelopment
	}
}

func isProduction() bool {
	return currentEnvironment() == envProduction
}

// Metrics holds every Prometheus collector exposed by the engine.
type Metrics struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Matching-engine metrics
	CyclesDiscoveredTotal  *prometheus.CounterVec
	CyclesEvictedTotal     *prometheus.CounterVec
	RescanDuration         *prometheus.HistogramVec
	EnumerationBudgetHits  *prometheus.CounterVec
	ActiveCyclesStored     *prometheus.GaugeVec
	CoordinatorQueueDepth  *prometheus.GaugeVec

	// Persistence metrics
	PersistenceOpsTotal  *prometheus.CounterVec
	PersistenceOpLatency *prometheus.HistogramVec

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance registered against the default registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"service", "type", "operation"},
		),

		CyclesDiscoveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cycles_discovered_total",
				Help: "Total number of elementary trade cycles discovered by rescans",
			},
			[]string{"tenant"},
		),
		CyclesEvictedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cycles_evicted_total",
				Help: "Total number of stored cycles evicted",
			},
			[]string{"tenant", "reason"},
		),
		RescanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rescan_duration_seconds",
				Help:    "Duration of a seed-driven cycle rescan",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"tenant"},
		),
		EnumerationBudgetHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enumeration_budget_exhausted_total",
				Help: "Total number of rescans that stopped early due to the enumeration budget",
			},
			[]string{"tenant"},
		),
		ActiveCyclesStored: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "active_cycles_stored",
				Help: "Current number of cycles held in a tenant's CycleStore",
			},
			[]string{"tenant"},
		),
		CoordinatorQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coordinator_queue_depth",
				Help: "Current number of commands queued for a tenant's coordinator",
			},
			[]string{"tenant"},
		),

		PersistenceOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "persistence_operations_total",
				Help: "Total number of persistence operations",
			},
			[]string{"service", "operation", "status"},
		),
		PersistenceOpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "persistence_operation_duration_seconds",
				Help:    "Persistence operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"service", "operation"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service information",
			},
			[]string{"service", "version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ErrorsTotal,
			m.CyclesDiscoveredTotal,
			m.CyclesEvictedTotal,
			m.RescanDuration,
			m.EnumerationBudgetHits,
			m.ActiveCyclesStored,
			m.CoordinatorQueueDepth,
			m.PersistenceOpsTotal,
			m.PersistenceOpLatency,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", getEnvironment()).Set(1)

	return m
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordError records an error.
func (m *Metrics) RecordError(service, errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(service, errorType, operation).Inc()
}

// RecordRescan records one coordinator rescan: cycles discovered/evicted, its
// duration, and whether the enumeration budget was exhausted.
func (m *Metrics) RecordRescan(tenant string, discovered, evicted int, budgetExhausted bool, duration time.Duration) {
	if discovered > 0 {
		m.CyclesDiscoveredTotal.WithLabelValues(tenant).Add(float64(discovered))
	}
	if evicted > 0 {
		m.CyclesEvictedTotal.WithLabelValues(tenant, "rescan").Add(float64(evicted))
	}
	m.RescanDuration.WithLabelValues(tenant).Observe(duration.Seconds())
	if budgetExhausted {
		m.EnumerationBudgetHits.WithLabelValues(tenant).Inc()
	}
}

// RecordEviction records cycles evicted outside of a rescan (e.g. TTL sweep,
// rejection, item removal).
func (m *Metrics) RecordEviction(tenant, reason string, count int) {
	if count > 0 {
		m.CyclesEvictedTotal.WithLabelValues(tenant, reason).Add(float64(count))
	}
}

// SetActiveCyclesStored sets the current cycle count for a tenant's CycleStore.
func (m *Metrics) SetActiveCyclesStored(tenant string, count int) {
	m.ActiveCyclesStored.WithLabelValues(tenant).Set(float64(count))
}

// SetCoordinatorQueueDepth sets the current command queue depth for a tenant.
func (m *Metrics) SetCoordinatorQueueDepth(tenant string, depth int) {
	m.CoordinatorQueueDepth.WithLabelValues(tenant).Set(float64(depth))
}

// RecordPersistenceOp records a persistence adapter call.
func (m *Metrics) RecordPersistenceOp(service, operation, status string, duration time.Duration) {
	m.PersistenceOpsTotal.WithLabelValues(service, operation, status).Inc()
	m.PersistenceOpLatency.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// UpdateUptime updates the service uptime.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight requests counter.
func (m *Metrics) IncrementInFlight() {
	m.RequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests counter.
func (m *Metrics) DecrementInFlight() {
	m.RequestsInFlight.Dec()
}

func getEnvironment() string {
	return string(currentEnvironment())
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
// - production: disabled unless explicitly enabled via METRICS_ENABLED
// - non-production: enabled unless explicitly disabled via METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return !isProduction()
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Global metrics instance
var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
