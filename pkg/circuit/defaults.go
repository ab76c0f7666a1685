package circuit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLightColor      = "#f1c40f"
	DefaultLightBrightness = 100
	DefaultConductorColor  = "#7f8c8d"
	DefaultTimerInterval   = 5
)

var defaultNames = map[ComponentType]string{
	TypeLight:    "Smart Light",
	TypeSwitch:   "Switch",
	TypeButton:   "Button",
	TypeSensor:   "Sensor",
	TypeTimer:    "Timer",
	TypeWire:     "Wire",
	TypeJunction: "Junction",
}

// DefaultName returns the label a freshly placed component of type t carries.
func DefaultName(t ComponentType) string {
	return defaultNames[t]
}

// PortsFor returns the ports a component type exposes.
func PortsFor(t ComponentType) Ports {
	switch {
	case t.IsSource():
		return Ports{Output: true}
	case t.IsConsumer():
		return Ports{Input: true}
	case t.IsPassThrough():
		return Ports{Input: true, Output: true}
	}
	return Ports{}
}

// DefaultProperties returns the initial configuration for a component type.
func DefaultProperties(t ComponentType) Properties {
	switch t {
	case TypeLight:
		return Properties{Color: DefaultLightColor, Brightness: DefaultLightBrightness}
	case TypeTimer:
		return Properties{Interval: DefaultTimerInterval, TimeLeft: DefaultTimerInterval}
	case TypeWire, TypeJunction:
		return Properties{Color: DefaultConductorColor}
	}
	return Properties{}
}

func newComponent(id string, t ComponentType, pos Position) *Component {
	return &Component{
		ID:         id,
		Type:       t,
		Name:       DefaultName(t),
		Position:   pos,
		Properties: DefaultProperties(t),
		Ports:      PortsFor(t),
	}
}

// IDClock hands out component ids of the form <type>-<millis>. The millisecond
// stamp never repeats within a process, so ids survive deletion unreused.
type IDClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDClock creates an id clock backed by the wall clock.
func NewIDClock() *IDClock {
	return &IDClock{now: time.Now}
}

// Next returns a fresh id for a component of type t.
func (c *IDClock) Next(t ComponentType) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	stamp := c.now().UnixMilli()
	if stamp <= c.last {
		stamp = c.last + 1
	}
	c.last = stamp
	return fmt.Sprintf("%s-%d", t, stamp)
}

func newConnectionID() string {
	return "conn-" + uuid.New().String()
}
