package circuit

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

// AddComponent places a new component of type t at pos with the type's default
// name, properties and ports. Its state starts off, so nothing is recomputed.
func (c *Circuit) AddComponent(t ComponentType, pos Position) (Component, error) {
	var added Component
	_, err := c.apply("add_component", func(b *batch) error {
		if _, ok := ParseComponentType(string(t)); !ok {
			return NewError("add_component").Cause(fmt.Errorf("%w: %q", ErrUnknownComponentType, t)).Err()
		}
		comp := newComponent(c.ids.Next(t), t, pos)
		c.registry.Add(comp)
		c.reported[comp.ID] = reported{isOn: comp.IsOn, isPressed: comp.IsPressed}
		added = *comp
		c.logActivity(b, "Added %s %q", t, comp.Name)
		return nil
	})
	return added, err
}

// DeleteComponent removes a component and every connection touching it, then
// recomputes.
func (c *Circuit) DeleteComponent(id string) error {
	_, err := c.apply("delete_component", func(b *batch) error {
		comp, ok := c.registry.Get(id)
		if !ok {
			return componentNotFound("delete_component", id)
		}
		removed := c.connections.RemoveTouching(id)
		c.registry.Remove(id)
		delete(c.reported, id)
		if c.gesture != nil && c.gesture.componentID == id {
			c.gesture = nil
		}
		c.logActivity(b, "Deleted %s %q and %d connection(s)", comp.Type, comp.Name, len(removed))
		c.recompute(b)
		return nil
	})
	return err
}

// RenameComponent changes a component's display label. Blank names are rejected.
func (c *Circuit) RenameComponent(id, name string) error {
	_, err := c.apply("rename_component", func(b *batch) error {
		comp, ok := c.registry.Get(id)
		if !ok {
			return componentNotFound("rename_component", id)
		}
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return NewError("rename_component").Component(id).Cause(ErrInvalidName).Err()
		}
		old := comp.Name
		comp.Name = trimmed
		c.logActivity(b, "Renamed %q to %q", old, trimmed)
		return nil
	})
	return err
}

// MoveComponent updates a component's canvas position.
func (c *Circuit) MoveComponent(id string, pos Position) error {
	_, err := c.apply("move_component", func(b *batch) error {
		comp, ok := c.registry.Get(id)
		if !ok {
			return componentNotFound("move_component", id)
		}
		comp.Position = pos
		c.recompute(b)
		return nil
	})
	return err
}

// ToggleSwitch flips a switch and recomputes.
func (c *Circuit) ToggleSwitch(id string) error {
	_, err := c.apply("toggle_switch", func(b *batch) error {
		comp, err := c.componentOfType("toggle_switch", id, TypeSwitch)
		if err != nil {
			return err
		}
		comp.IsOn = !comp.IsOn
		c.logActivity(b, "Switch %q turned %s", comp.Name, onOff(comp.IsOn))
		c.recompute(b)
		return nil
	})
	return err
}

// ToggleLight switches a light from the light's side: every switch wired
// directly into it is set to the opposite of the light's current state.
// Buttons and other sources feeding the light are left alone. The switches
// change together and the circuit is recomputed once.
func (c *Circuit) ToggleLight(id string) error {
	_, err := c.apply("toggle_light", func(b *batch) error {
		light, err := c.componentOfType("toggle_light", id, TypeLight)
		if err != nil {
			return err
		}
		var switches []*Component
		for _, conn := range c.connections.Incoming(id) {
			if src, ok := c.registry.Get(conn.Source); ok && src.Type == TypeSwitch {
				switches = append(switches, src)
			}
		}
		if len(switches) == 0 {
			return NewError("toggle_light").Component(id).Cause(ErrNoSwitchInputs).Err()
		}
		want := !light.IsOn
		for _, sw := range switches {
			sw.IsOn = want
		}
		c.logActivity(b, "Light %q turned %s through %d switch(es)", light.Name, onOff(want), len(switches))
		c.recompute(b)
		return nil
	})
	return err
}

// PushButtonDown holds a momentary button and recomputes.
func (c *Circuit) PushButtonDown(id string) error {
	return c.setButton("push_button_down", id, true)
}

// PushButtonUp releases a momentary button and recomputes.
func (c *Circuit) PushButtonUp(id string) error {
	return c.setButton("push_button_up", id, false)
}

func (c *Circuit) setButton(op, id string, pressed bool) error {
	_, err := c.apply(op, func(b *batch) error {
		comp, err := c.componentOfType(op, id, TypeButton)
		if err != nil {
			return err
		}
		comp.IsPressed = pressed
		comp.IsOn = pressed
		if pressed {
			c.logActivity(b, "Button %q pressed", comp.Name)
		} else {
			c.logActivity(b, "Button %q released", comp.Name)
		}
		c.recompute(b)
		return nil
	})
	return err
}

// SetSensor sets whether a sensor is currently detecting and recomputes.
func (c *Circuit) SetSensor(id string, active bool) error {
	_, err := c.apply("set_sensor", func(b *batch) error {
		comp, err := c.componentOfType("set_sensor", id, TypeSensor)
		if err != nil {
			return err
		}
		comp.IsOn = active
		c.logActivity(b, "Sensor %q is %s", comp.Name, onOff(active))
		c.recompute(b)
		return nil
	})
	return err
}

func (c *Circuit) componentOfType(op, id string, want ComponentType) (*Component, error) {
	comp, ok := c.registry.Get(id)
	if !ok {
		return nil, componentNotFound(op, id)
	}
	if comp.Type != want {
		return nil, wrongType(op, id, want)
	}
	return comp, nil
}

// Connect wires two components. Either end may be named first: the edge always
// runs from the component offering its output to the one offering its input.
func (c *Circuit) Connect(sourceID string, sourcePort Port, targetID string, targetPort Port) (Connection, error) {
	var created Connection
	_, err := c.apply("connect", func(b *batch) error {
		conn, err := c.connectLocked(b, sourceID, sourcePort, targetID, targetPort)
		if err != nil {
			return err
		}
		created = conn
		return nil
	})
	return created, err
}

func (c *Circuit) connectLocked(b *batch, aID string, aPort Port, bID string, bPort Port) (Connection, error) {
	const op = "connect"
	if aID == bID {
		return Connection{}, NewError(op).Component(aID).Cause(ErrSelfConnection).Err()
	}
	if aPort.Opposite() != bPort || (aPort != PortInput && aPort != PortOutput) {
		return Connection{}, NewError(op).Component(aID).Cause(ErrPortMismatch).Err()
	}

	src, srcPort, dst, dstPort := aID, aPort, bID, bPort
	if aPort == PortInput {
		src, srcPort, dst, dstPort = bID, bPort, aID, aPort
	}

	srcComp, ok := c.registry.Get(src)
	if !ok {
		return Connection{}, componentNotFound(op, src)
	}
	dstComp, ok := c.registry.Get(dst)
	if !ok {
		return Connection{}, componentNotFound(op, dst)
	}
	if !srcComp.Ports.Has(srcPort) {
		return Connection{}, NewError(op).Component(src).Field(string(srcPort)).Cause(ErrPortUnavailable).Err()
	}
	if !dstComp.Ports.Has(dstPort) {
		return Connection{}, NewError(op).Component(dst).Field(string(dstPort)).Cause(ErrPortUnavailable).Err()
	}
	if c.connections.Between(src, dst) {
		c.logActivity(b, "Connection between %q and %q already exists, not created", srcComp.Name, dstComp.Name)
		return Connection{}, NewError(op).Component(src).Cause(ErrDuplicateConnection).Err()
	}

	conn := Connection{ID: newConnectionID(), Source: src, Target: dst}
	c.connections.Add(conn)
	c.logActivity(b, "Connected %q to %q", srcComp.Name, dstComp.Name)
	c.recompute(b)
	return conn, nil
}

// Disconnect removes a connection and recomputes.
func (c *Circuit) Disconnect(connectionID string) error {
	_, err := c.apply("disconnect", func(b *batch) error {
		if !c.connections.Remove(connectionID) {
			return NewError("disconnect").Connection(connectionID).Cause(ErrConnectionNotFound).Err()
		}
		c.logActivity(b, "Removed connection %s", connectionID)
		c.recompute(b)
		return nil
	})
	return err
}

// Configure merges a validated property patch into a component. Fields that do
// not apply to the component's type are rejected. Editing a timer's interval
// while it is not armed also resets its countdown.
func (c *Circuit) Configure(id string, patch validation.ComponentPatch) error {
	_, err := c.apply("configure", func(b *batch) error {
		comp, ok := c.registry.Get(id)
		if !ok {
			return componentNotFound("configure", id)
		}
		if err := validation.ValidateComponentPatch(string(comp.Type), &patch); err != nil {
			return NewError("configure").Component(id).Cause(fmt.Errorf("%w: %v", ErrInvalidPatch, err)).Err()
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return NewError("configure").Component(id).Field("name").Cause(ErrInvalidName).Err()
			}
			comp.Name = name
		}
		if patch.Color != nil {
			comp.Properties.Color = *patch.Color
		}
		if patch.Brightness != nil {
			comp.Properties.Brightness = *patch.Brightness
		}
		if patch.Interval != nil {
			comp.Properties.Interval = *patch.Interval
			if !comp.Armed {
				comp.Properties.TimeLeft = *patch.Interval
			}
		}
		if patch.Value != nil {
			comp.Properties.Value = *patch.Value
			comp.Properties.DefaultValue = *patch.Value
		}
		c.logActivity(b, "Component %q configuration updated", comp.Name)
		return nil
	})
	return err
}
