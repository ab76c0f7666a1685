package circuit

// Loop is a closed path of component ids.
type Loop []string

// Loops finds the cycles in the connection graph using depth-first search with
// three-colour marking. Loops are legal: the engine visits each pass-through at
// most once per pass. They are reported so views can warn about them.
func (c *Circuit) Loops() []Loop {
	c.mu.Lock()
	defer c.mu.Unlock()
	return detectLoops(c.registry, c.connections)
}

const (
	white = iota // unvisited
	grey         // on the current DFS path
	black        // finished
)

func detectLoops(reg *Registry, conns *ConnectionSet) []Loop {
	color := make(map[string]int)
	parent := make(map[string]string)
	loops := make([]Loop, 0)

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		for _, conn := range conns.Outgoing(id) {
			next := conn.Target
			if _, ok := reg.Get(next); !ok {
				continue
			}
			switch color[next] {
			case white:
				parent[next] = id
				visit(next)
			case grey:
				loops = append(loops, extractLoop(next, id, parent))
			}
		}
		color[id] = black
	}

	reg.Each(func(comp *Component) {
		if color[comp.ID] == white {
			visit(comp.ID)
		}
	})
	return loops
}

// extractLoop walks parent pointers back from end to start for a back edge
// end -> start.
func extractLoop(start, end string, parent map[string]string) Loop {
	loop := Loop{start}
	for current := end; current != start; {
		loop = append(loop, current)
		p, ok := parent[current]
		if !ok {
			break
		}
		current = p
	}
	return loop
}
