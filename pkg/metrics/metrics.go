package metrics

import (
	"errors"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// MutationStatus classifies an operation's outcome for the status label.
func MutationStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case circuit.IsNotFound(err):
		return "not_found"
	case circuit.IsConflict(err):
		return "conflict"
	case errors.Is(err, circuit.ErrGestureCancelled):
		return "cancelled"
	default:
		return "rejected"
	}
}

// ObserveMutation implements circuit.Observer.
func (r *Registry) ObserveMutation(op string, err error) {
	r.CircuitMutationsTotal.WithLabelValues(op, MutationStatus(err)).Inc()
}

// ObserveRecompute implements circuit.Observer.
func (r *Registry) ObserveRecompute(duration time.Duration, changes int) {
	r.CircuitRecomputesTotal.Inc()
	r.CircuitRecomputeDuration.Observe(duration.Seconds())
	r.CircuitStateChangesTotal.Add(float64(changes))
}

// ObserveGraph implements circuit.Observer. Types with no components are
// reported as zero rather than left at their previous value.
func (r *Registry) ObserveGraph(stats circuit.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range circuit.AllTypes {
		r.CircuitComponents.WithLabelValues(string(t)).Set(float64(stats.ByType[t]))
	}
	r.CircuitConnections.Set(float64(stats.Connections))
	r.CircuitPowered.Set(float64(stats.Powered))
}

// RecordTimerTicks counts timer advance steps applied by the scheduler.
func (r *Registry) RecordTimerTicks(steps int) {
	r.CircuitTimerTicksTotal.Add(float64(steps))
}

// SetLoops records how many loops the circuit currently contains.
func (r *Registry) SetLoops(n int) {
	r.CircuitLoops.Set(float64(n))
}

// StreamClientConnected adjusts the connected-client gauge for a transport.
func (r *Registry) StreamClientConnected(transport string, delta int) {
	r.StreamClients.WithLabelValues(transport).Add(float64(delta))
}

// RecordStreamEvent counts an event written to a stream client.
func (r *Registry) RecordStreamEvent(transport, topic string) {
	r.StreamEventsTotal.WithLabelValues(transport, topic).Inc()
}

// RecordStreamDropped counts events a slow subscriber missed.
func (r *Registry) RecordStreamDropped(n uint64) {
	r.StreamEventsDropped.Add(float64(n))
}

// RecordBroadcast counts a message sent (or failed) on the broadcast socket.
func (r *Registry) RecordBroadcast(topic string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.BroadcastMessagesTotal.WithLabelValues(topic, status).Inc()
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges.
func (r *Registry) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
