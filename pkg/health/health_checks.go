package health

import (
	"fmt"
	"runtime"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
)

// CircuitInspector is the read-only view of a circuit the checks need.
type CircuitInspector interface {
	DanglingConnections() int
	Loops() []circuit.Loop
	Stats() circuit.Stats
}

// AliveCheck always reports healthy; it backs the liveness probe.
func AliveCheck() CheckFunc {
	return func() Check {
		return Check{Name: "process", Status: StatusHealthy, Message: "Running"}
	}
}

// ConnectionIntegrityCheck fails if any connection references a component that
// no longer exists. Cascade deletion should make that impossible.
func ConnectionIntegrityCheck(c CircuitInspector) CheckFunc {
	return func() Check {
		dangling := c.DanglingConnections()
		check := Check{
			Name:    "connections",
			Details: map[string]any{"dangling": dangling},
		}
		if dangling > 0 {
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("%d connection(s) reference missing components", dangling)
		} else {
			check.Status = StatusHealthy
			check.Message = "All connections resolve"
		}
		return check
	}
}

// LoopCheck reports the circuit as degraded while it contains loops. Loops are
// legal, so this never reports unhealthy. report, if set, receives the count.
func LoopCheck(c CircuitInspector, report func(n int)) CheckFunc {
	return func() Check {
		loops := c.Loops()
		if report != nil {
			report(len(loops))
		}
		check := Check{
			Name:    "loops",
			Details: map[string]any{"count": len(loops)},
		}
		if len(loops) > 0 {
			check.Status = StatusDegraded
			check.Message = "Circuit contains loops"
			check.Details["loops"] = loops
		} else {
			check.Status = StatusHealthy
			check.Message = "No loops"
		}
		return check
	}
}

// GraphCheck summarises the circuit's size.
func GraphCheck(c CircuitInspector) CheckFunc {
	return func() Check {
		stats := c.Stats()
		return Check{
			Name:    "graph",
			Status:  StatusHealthy,
			Message: fmt.Sprintf("%d components, %d connections", stats.Components, stats.Connections),
			Details: map[string]any{
				"components":  stats.Components,
				"connections": stats.Connections,
				"powered":     stats.Powered,
			},
		}
	}
}

// DependencyCheck wraps an optional dependency (such as the broadcast socket).
// A failing ping degrades rather than fails the service.
func DependencyCheck(name string, ping func() error) CheckFunc {
	return func() Check {
		check := Check{Name: name}
		if err := ping(); err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Available"
		}
		return check
	}
}

// MemoryCheck reports heap usage relative to memory obtained from the OS.
func MemoryCheck() CheckFunc {
	return func() Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		check := Check{
			Name: "memory",
			Details: map[string]any{
				"alloc_bytes": m.Alloc,
				"sys_bytes":   m.Sys,
				"goroutines":  runtime.NumGoroutine(),
			},
		}

		if m.Sys > 0 && float64(m.Alloc)/float64(m.Sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}
