package circuit

import (
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/logging"
)

// Notifier receives the outbound side of every mutation. Implementations must
// not block and must not call back into the Circuit.
type Notifier interface {
	StateChanged(changes []StateChange)
	ActivityLogged(entry ActivityEntry)
}

// Observer receives operational measurements (metrics).
type Observer interface {
	ObserveMutation(op string, err error)
	ObserveRecompute(duration time.Duration, changes int)
	ObserveGraph(stats Stats)
}

// Option configures a Circuit.
type Option func(*Circuit)

// WithLogger sets the structured logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Circuit) {
		c.logger = logger
	}
}

// WithNotifier adds a notifier. Notifiers are called in registration order.
func WithNotifier(n Notifier) Option {
	return func(c *Circuit) {
		c.notifiers = append(c.notifiers, n)
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Circuit) {
		c.observer = o
	}
}

// WithIDClock overrides the component id source.
func WithIDClock(clock *IDClock) Option {
	return func(c *Circuit) {
		c.ids = clock
	}
}

// WithActivityCapacity overrides the activity log capacity.
func WithActivityCapacity(n int) Option {
	return func(c *Circuit) {
		c.activity = NewActivityLog(n)
	}
}

// Circuit is the explicit context every mutation and recomputation runs
// against. All exported methods are safe for concurrent use; they are applied
// one at a time.
type Circuit struct {
	mu          sync.Mutex
	registry    *Registry
	connections *ConnectionSet
	reported    map[string]reported
	activity    *ActivityLog
	gesture     *pendingGesture
	ids         *IDClock
	passes      uint64

	deliverMu sync.Mutex
	notifiers []Notifier
	observer  Observer
	logger    logging.Logger
}

// New creates an empty circuit.
func New(opts ...Option) *Circuit {
	c := &Circuit{
		registry:    NewRegistry(),
		connections: NewConnectionSet(),
		reported:    make(map[string]reported),
		activity:    NewActivityLog(DefaultActivityCapacity),
		ids:         NewIDClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.DefaultLogger()
	}
	c.logger = c.logger.With(logging.Component("circuit"))
	return c
}

// batch collects the outbound effects of one operation so they can be
// delivered after the state lock is released.
type batch struct {
	op         string
	changes    []StateChange
	activity   []ActivityEntry
	recomputed bool
	elapsed    time.Duration
	stats      Stats
}

// apply runs fn as one fully-applied mutation and then delivers its effects.
func (c *Circuit) apply(op string, fn func(b *batch) error) ([]StateChange, error) {
	c.mu.Lock()
	b := &batch{op: op}
	err := fn(b)
	b.stats = c.statsLocked()

	c.deliverMu.Lock()
	c.mu.Unlock()
	defer c.deliverMu.Unlock()

	c.deliver(b, err)
	return b.changes, err
}

func (c *Circuit) deliver(b *batch, err error) {
	if err != nil {
		c.logger.Warn("mutation rejected", logging.Operation(b.op), logging.Error(err))
	}
	if c.observer != nil {
		c.observer.ObserveMutation(b.op, err)
		if b.recomputed {
			c.observer.ObserveRecompute(b.elapsed, len(b.changes))
		}
		c.observer.ObserveGraph(b.stats)
	}
	for _, n := range c.notifiers {
		if len(b.changes) > 0 {
			n.StateChanged(b.changes)
		}
		for _, entry := range b.activity {
			n.ActivityLogged(entry)
		}
	}
}

// recompute runs one recomputation pass inside a mutation. Callers hold c.mu.
func (c *Circuit) recompute(b *batch) {
	start := time.Now()
	changes := c.recomputeAll()
	b.elapsed += time.Since(start)
	b.recomputed = true
	b.changes = append(b.changes, changes...)

	for _, ch := range changes {
		if ch.Type != TypeLight {
			continue
		}
		comp, _ := c.registry.Get(ch.ComponentID)
		c.logActivity(b, "Light %q is now %s", comp.Name, onOff(ch.IsOn))
	}
	c.logger.Debug("recomputed circuit",
		logging.Operation(b.op),
		logging.Changes(len(changes)),
		logging.Latency(b.elapsed),
	)
}

func (c *Circuit) logActivity(b *batch, format string, args ...any) {
	entry := c.activity.Append(fmt.Sprintf(format, args...))
	b.activity = append(b.activity, entry)
	c.logger.Info(entry.Message, logging.Operation(b.op))
}

// RecomputeAll runs one recomputation pass and returns the changes it reported.
// Calling it twice with no mutation in between reports nothing the second time.
func (c *Circuit) RecomputeAll() []StateChange {
	changes, _ := c.apply("recompute", func(b *batch) error {
		c.recompute(b)
		return nil
	})
	return changes
}

// Passes returns how many recomputation passes have run.
func (c *Circuit) Passes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passes
}

// Component returns a copy of the component with the given id.
func (c *Circuit) Component(id string) (Component, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.registry.Get(id)
	if !ok {
		return Component{}, false
	}
	return *comp, true
}

// Components returns copies of every component in placement order.
func (c *Circuit) Components() []Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.componentsLocked()
}

func (c *Circuit) componentsLocked() []Component {
	out := make([]Component, 0, c.registry.Len())
	c.registry.Each(func(comp *Component) {
		out = append(out, *comp)
	})
	return out
}

// Connection returns the connection with the given id.
func (c *Circuit) Connection(id string) (Connection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connections.Get(id)
}

// Connections returns every connection in creation order.
func (c *Circuit) Connections() []Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connections.All()
}

// Activity returns the retained activity log, oldest first.
func (c *Circuit) Activity() []ActivityEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activity.Entries()
}

// Stats summarises the graph.
func (c *Circuit) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked()
}

func (c *Circuit) statsLocked() Stats {
	stats := Stats{
		Components:  c.registry.Len(),
		Connections: c.connections.Len(),
		ByType:      make(map[ComponentType]int),
	}
	c.registry.Each(func(comp *Component) {
		stats.ByType[comp.Type]++
		if comp.IsOn {
			stats.Powered++
		}
	})
	return stats
}

// Snapshot returns a consistent copy of the whole circuit.
func (c *Circuit) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Components:  c.componentsLocked(),
		Connections: c.connections.All(),
		Activity:    c.activity.Entries(),
		Stats:       c.statsLocked(),
	}
}

// DanglingConnections counts edges whose endpoints are missing. Cascade deletion
// keeps this at zero; health checks watch it.
func (c *Circuit) DanglingConnections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, conn := range c.connections.All() {
		_, srcOK := c.registry.Get(conn.Source)
		_, dstOK := c.registry.Get(conn.Target)
		if !srcOK || !dstOK {
			n++
		}
	}
	return n
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
