package circuit

// pendingGesture is a drag-to-connect gesture that has left a port but not yet
// been released.
type pendingGesture struct {
	componentID string
	port        Port
}

// PendingGesture describes the gesture in progress, if any.
type PendingGesture struct {
	ComponentID string `json:"component_id"`
	Port        Port   `json:"port"`
}

// BeginConnection starts a connection gesture from a component's port.
func (c *Circuit) BeginConnection(componentID string, port Port) error {
	_, err := c.apply("begin_connection", func(b *batch) error {
		if c.gesture != nil {
			return NewError("begin_connection").Gesture().Cause(ErrGestureInProgress).Err()
		}
		comp, ok := c.registry.Get(componentID)
		if !ok {
			return componentNotFound("begin_connection", componentID)
		}
		if !comp.Ports.Has(port) {
			return NewError("begin_connection").Component(componentID).Field(string(port)).Cause(ErrPortUnavailable).Err()
		}
		c.gesture = &pendingGesture{componentID: componentID, port: port}
		c.logActivity(b, "Started connection from %q", comp.Name)
		return nil
	})
	return err
}

// CompleteConnection releases the pending gesture over a port. An empty
// componentID means the gesture was released over no port at all. A release on
// the same component, on a port of the same kind, or on nothing cancels the
// gesture without creating an edge. Whatever happens, the gesture ends.
func (c *Circuit) CompleteConnection(componentID string, port Port) (Connection, error) {
	var created Connection
	_, err := c.apply("complete_connection", func(b *batch) error {
		g := c.gesture
		if g == nil {
			return NewError("complete_connection").Gesture().Cause(ErrNoPendingGesture).Err()
		}
		c.gesture = nil

		target, ok := c.registry.Get(componentID)
		if componentID == "" || !ok || componentID == g.componentID || port != g.port.Opposite() || !target.Ports.Has(port) {
			c.logActivity(b, "Invalid connection point, connection cancelled")
			return NewError("complete_connection").Gesture().Cause(ErrGestureCancelled).Err()
		}

		conn, err := c.connectLocked(b, g.componentID, g.port, componentID, port)
		if err != nil {
			return err
		}
		created = conn
		return nil
	})
	return created, err
}

// CancelConnection abandons the pending gesture, leaving the graph unchanged.
func (c *Circuit) CancelConnection() error {
	_, err := c.apply("cancel_connection", func(b *batch) error {
		if c.gesture == nil {
			return NewError("cancel_connection").Gesture().Cause(ErrNoPendingGesture).Err()
		}
		c.gesture = nil
		c.logActivity(b, "Connection cancelled")
		return nil
	})
	return err
}

// Gesture returns the pending connection gesture, if any.
func (c *Circuit) Gesture() (PendingGesture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gesture == nil {
		return PendingGesture{}, false
	}
	return PendingGesture{ComponentID: c.gesture.componentID, Port: c.gesture.port}, true
}
