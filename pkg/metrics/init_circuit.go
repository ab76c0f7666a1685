package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCircuitMetrics() {
	r.CircuitComponents = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_components",
			Help: "Number of components on the canvas by type",
		},
		[]string{"type"},
	)

	r.CircuitConnections = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "circuit_connections",
			Help: "Number of connections in the circuit",
		},
	)

	r.CircuitPowered = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "circuit_powered_components",
			Help: "Number of components currently on",
		},
	)

	r.CircuitLoops = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "circuit_loops",
			Help: "Number of loops found by the last health check",
		},
	)

	r.CircuitMutationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_mutations_total",
			Help: "Total number of circuit operations by outcome",
		},
		[]string{"operation", "status"},
	)

	r.CircuitRecomputeDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "circuit_recompute_duration_seconds",
			Help:    "Time spent in recomputation passes",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
	)

	r.CircuitRecomputesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "circuit_recomputes_total",
			Help: "Total number of recomputation passes",
		},
	)

	r.CircuitStateChangesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "circuit_state_changes_total",
			Help: "Total number of component state changes reported to views",
		},
	)

	r.CircuitTimerTicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "circuit_timer_ticks_total",
			Help: "Total number of timer advance steps applied",
		},
	)
}

func (r *Registry) initStreamMetrics() {
	r.StreamClients = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_stream_clients",
			Help: "Connected event stream clients by transport",
		},
		[]string{"transport"},
	)

	r.StreamEventsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_stream_events_total",
			Help: "Total number of events written to stream clients",
		},
		[]string{"transport", "topic"},
	)

	r.StreamEventsDropped = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "circuit_stream_events_dropped_total",
			Help: "Events skipped because a subscriber was too slow",
		},
	)

	r.BroadcastMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_broadcast_messages_total",
			Help: "Total number of messages sent on the broadcast socket",
		},
		[]string{"topic", "status"},
	)
}
