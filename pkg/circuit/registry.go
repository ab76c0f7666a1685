package circuit

// Registry owns component lifecycle. Listing order is insertion order.
type Registry struct {
	order []string
	byID  map[string]*Component
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Component)}
}

// Add stores c. It reports false if the id is already taken.
func (r *Registry) Add(c *Component) bool {
	if _, exists := r.byID[c.ID]; exists {
		return false
	}
	r.byID[c.ID] = c
	r.order = append(r.order, c.ID)
	return true
}

// Get returns the live component record for id.
func (r *Registry) Get(id string) (*Component, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Remove deletes id and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of components.
func (r *Registry) Len() int {
	return len(r.order)
}

// Each calls fn for every component in insertion order.
func (r *Registry) Each(fn func(*Component)) {
	for _, id := range r.order {
		fn(r.byID[id])
	}
}

// OfType returns the components of type t in insertion order.
func (r *Registry) OfType(t ComponentType) []*Component {
	var out []*Component
	r.Each(func(c *Component) {
		if c.Type == t {
			out = append(out, c)
		}
	})
	return out
}
