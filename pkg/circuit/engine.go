package circuit

// Propagate computes the power state of every derived component (light, wire,
// junction) from the current source states. It only reads reg and conns.
//
// Pass-through components start each pass off and are switched on by a
// breadth-first walk from every active source. A pass-through that has already
// been reached in this pass is not walked again, which makes wire loops safe.
// A light is on iff it has at least one live incoming edge and every direct
// predecessor is on. Edges whose endpoints are missing are skipped.
func Propagate(reg *Registry, conns *ConnectionSet) map[string]bool {
	states := make(map[string]bool, reg.Len())

	isOn := func(id string) (bool, bool) {
		c, ok := reg.Get(id)
		if !ok {
			return false, false
		}
		if c.Type.IsSource() {
			return c.IsOn, true
		}
		return states[id], true
	}

	reg.Each(func(c *Component) {
		if c.Type.IsPassThrough() {
			states[c.ID] = false
		}
	})

	visited := make(map[string]bool)
	var queue []string
	reg.Each(func(c *Component) {
		if c.Type.IsSource() && c.IsOn {
			queue = append(queue, c.ID)
		}
	})

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, conn := range conns.Outgoing(current) {
			target, ok := reg.Get(conn.Target)
			if !ok || !target.Type.IsPassThrough() || visited[target.ID] {
				continue
			}
			visited[target.ID] = true
			states[target.ID] = true
			queue = append(queue, target.ID)
		}
	}

	for _, light := range reg.OfType(TypeLight) {
		live := 0
		allOn := true
		for _, conn := range conns.Incoming(light.ID) {
			on, exists := isOn(conn.Source)
			if !exists {
				continue
			}
			live++
			if !on {
				allOn = false
			}
		}
		states[light.ID] = live > 0 && allOn
	}

	return states
}

type reported struct {
	isOn      bool
	isPressed bool
}

// recomputeAll applies Propagate and returns the net changes against what views
// were last told. Callers must hold c.mu.
func (c *Circuit) recomputeAll() []StateChange {
	states := Propagate(c.registry, c.connections)

	var changes []StateChange
	c.registry.Each(func(comp *Component) {
		if on, derived := states[comp.ID]; derived {
			comp.IsOn = on
		}
		now := reported{isOn: comp.IsOn, isPressed: comp.IsPressed}
		if prev, seen := c.reported[comp.ID]; seen && prev == now {
			return
		}
		c.reported[comp.ID] = now
		changes = append(changes, StateChange{
			ComponentID: comp.ID,
			Type:        comp.Type,
			IsOn:        comp.IsOn,
			IsPressed:   comp.IsPressed,
		})
	})
	c.passes++
	return changes
}
