package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Circuit Metrics
	CircuitComponents        *prometheus.GaugeVec
	CircuitConnections       prometheus.Gauge
	CircuitPowered           prometheus.Gauge
	CircuitLoops             prometheus.Gauge
	CircuitMutationsTotal    *prometheus.CounterVec
	CircuitRecomputeDuration prometheus.Histogram
	CircuitRecomputesTotal   prometheus.Counter
	CircuitStateChangesTotal prometheus.Counter
	CircuitTimerTicksTotal   prometheus.Counter

	// Streaming Metrics
	StreamClients          *prometheus.GaugeVec
	StreamEventsTotal      *prometheus.CounterVec
	StreamEventsDropped    prometheus.Counter
	BroadcastMessagesTotal *prometheus.CounterVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
	mu        sync.Mutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	r.initHTTPMetrics()
	r.initCircuitMetrics()
	r.initStreamMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
