// Package circuit holds the toy smart-home circuit model: the component registry,
// the directed connection set, the propagation engine that derives power state,
// and the mutation operations that keep both consistent.
//
// Every exported operation on Circuit runs to completion under a single lock and
// ends with at most one recomputation pass, so view bindings always observe a
// graph whose derived states agree with its sources.
package circuit

import "time"

// ComponentType identifies the kind of circuit element. It is fixed at creation.
type ComponentType string

const (
	TypeLight    ComponentType = "light"
	TypeSwitch   ComponentType = "switch"
	TypeButton   ComponentType = "button"
	TypeSensor   ComponentType = "sensor"
	TypeTimer    ComponentType = "timer"
	TypeWire     ComponentType = "wire"
	TypeJunction ComponentType = "junction"
)

// AllTypes lists every component type in palette order.
var AllTypes = []ComponentType{
	TypeLight, TypeSwitch, TypeButton, TypeSensor, TypeTimer, TypeWire, TypeJunction,
}

// ParseComponentType converts a string to a ComponentType.
func ParseComponentType(s string) (ComponentType, bool) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsSource reports whether the type's power state is set directly rather than derived.
func (t ComponentType) IsSource() bool {
	switch t {
	case TypeSwitch, TypeButton, TypeSensor, TypeTimer:
		return true
	}
	return false
}

// IsPassThrough reports whether the type conducts its input to its outputs.
func (t ComponentType) IsPassThrough() bool {
	return t == TypeWire || t == TypeJunction
}

// IsConsumer reports whether the type gates its state on its direct inputs.
func (t ComponentType) IsConsumer() bool {
	return t == TypeLight
}

// Port is one side of a component a connection can attach to.
type Port string

const (
	PortInput  Port = "input"
	PortOutput Port = "output"
)

// ParsePort converts a string to a Port.
func ParsePort(s string) (Port, bool) {
	switch Port(s) {
	case PortInput, PortOutput:
		return Port(s), true
	}
	return "", false
}

// Opposite returns the port kind a connection from p must end at.
func (p Port) Opposite() Port {
	if p == PortInput {
		return PortOutput
	}
	return PortInput
}

// Ports declares which sides of a component accept connections.
type Ports struct {
	Input  bool `json:"input"`
	Output bool `json:"output"`
}

// Has reports whether the port is exposed.
func (p Ports) Has(port Port) bool {
	switch port {
	case PortInput:
		return p.Input
	case PortOutput:
		return p.Output
	}
	return false
}

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Properties carries type-specific configuration. Only Interval affects behaviour.
type Properties struct {
	Color        string  `json:"color,omitempty"`
	Brightness   int     `json:"brightness,omitempty"`
	Interval     int     `json:"interval,omitempty"`
	TimeLeft     int     `json:"time_left,omitempty"`
	DefaultValue float64 `json:"default_value,omitempty"`
	Value        float64 `json:"value,omitempty"`
}

// Component is one circuit element.
type Component struct {
	ID         string        `json:"id"`
	Type       ComponentType `json:"type"`
	Name       string        `json:"name"`
	IsOn       bool          `json:"is_on"`
	IsPressed  bool          `json:"is_pressed,omitempty"`
	Armed      bool          `json:"armed,omitempty"`
	Position   Position      `json:"position"`
	Properties Properties    `json:"properties"`
	Ports      Ports         `json:"connections"`
}

// Connection is a directed edge: Source's output feeds Target's input.
type Connection struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Touches reports whether the connection has id as an endpoint.
func (c Connection) Touches(id string) bool {
	return c.Source == id || c.Target == id
}

// Joins reports whether the connection links a and b in either direction.
func (c Connection) Joins(a, b string) bool {
	return (c.Source == a && c.Target == b) || (c.Source == b && c.Target == a)
}

// StateChange is emitted once per recomputation pass for each component whose
// power or pressed state differs from what views were last told.
type StateChange struct {
	ComponentID string        `json:"component_id"`
	Type        ComponentType `json:"type"`
	IsOn        bool          `json:"is_on"`
	IsPressed   bool          `json:"is_pressed,omitempty"`
}

// ActivityEntry is one line of the human-readable activity log.
type ActivityEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Stats summarises the graph for views and health checks.
type Stats struct {
	Components  int                   `json:"components"`
	Connections int                   `json:"connections"`
	Powered     int                   `json:"powered"`
	ByType      map[ComponentType]int `json:"by_type"`
}

// Snapshot is a consistent copy of the whole circuit.
type Snapshot struct {
	Components  []Component     `json:"components"`
	Connections []Connection    `json:"connections"`
	Activity    []ActivityEntry `json:"activity"`
	Stats       Stats           `json:"stats"`
}
