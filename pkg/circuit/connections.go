package circuit

// ConnectionSet owns connection lifecycle. It indexes edges by id and keeps
// per-component outgoing and incoming lists for the engine.
type ConnectionSet struct {
	order    []string
	byID     map[string]Connection
	outgoing map[string][]string
	incoming map[string][]string
}

// NewConnectionSet creates an empty connection set.
func NewConnectionSet() *ConnectionSet {
	return &ConnectionSet{
		byID:     make(map[string]Connection),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// Add stores conn. It reports false if the id is taken or the pair is already
// wired in either direction.
func (s *ConnectionSet) Add(conn Connection) bool {
	if _, exists := s.byID[conn.ID]; exists {
		return false
	}
	if s.Between(conn.Source, conn.Target) {
		return false
	}
	s.byID[conn.ID] = conn
	s.order = append(s.order, conn.ID)
	s.outgoing[conn.Source] = append(s.outgoing[conn.Source], conn.ID)
	s.incoming[conn.Target] = append(s.incoming[conn.Target], conn.ID)
	return true
}

// Get returns the connection with the given id.
func (s *ConnectionSet) Get(id string) (Connection, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Remove deletes the connection and reports whether it existed.
func (s *ConnectionSet) Remove(id string) bool {
	conn, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	s.order = removeString(s.order, id)
	s.outgoing[conn.Source] = removeString(s.outgoing[conn.Source], id)
	if len(s.outgoing[conn.Source]) == 0 {
		delete(s.outgoing, conn.Source)
	}
	s.incoming[conn.Target] = removeString(s.incoming[conn.Target], id)
	if len(s.incoming[conn.Target]) == 0 {
		delete(s.incoming, conn.Target)
	}
	return true
}

// RemoveTouching deletes every connection with componentID as an endpoint and
// returns what was removed.
func (s *ConnectionSet) RemoveTouching(componentID string) []Connection {
	var removed []Connection
	for _, id := range append([]string(nil), s.order...) {
		conn := s.byID[id]
		if conn.Touches(componentID) {
			s.Remove(id)
			removed = append(removed, conn)
		}
	}
	return removed
}

// Between reports whether a and b are wired in either direction.
func (s *ConnectionSet) Between(a, b string) bool {
	for _, id := range s.outgoing[a] {
		if s.byID[id].Target == b {
			return true
		}
	}
	for _, id := range s.outgoing[b] {
		if s.byID[id].Target == a {
			return true
		}
	}
	return false
}

// Outgoing returns the connections leaving componentID.
func (s *ConnectionSet) Outgoing(componentID string) []Connection {
	return s.collect(s.outgoing[componentID])
}

// Incoming returns the connections entering componentID.
func (s *ConnectionSet) Incoming(componentID string) []Connection {
	return s.collect(s.incoming[componentID])
}

// Len returns the number of connections.
func (s *ConnectionSet) Len() int {
	return len(s.order)
}

// All returns every connection in insertion order.
func (s *ConnectionSet) All() []Connection {
	return s.collect(s.order)
}

func (s *ConnectionSet) collect(ids []string) []Connection {
	out := make([]Connection, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out
}

func removeString(list []string, target string) []string {
	for i, v := range list {
		if v == target {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
