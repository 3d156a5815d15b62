package graph

import (
	"fmt"

	"github.com/specialistvlad/modbisect/internal/mod"
)

// DefaultReserved are the platform IDs that are always present and never
// induce edges.
var DefaultReserved = []string{"minecraft", "forge"}

// Registry owns every Graph and Node of one build.
type Registry struct {
	graphs []*Graph
	nodes  []*Node

	nodeOf  map[string]*Node
	graphOf map[string]*Graph

	reserved map[string]struct{}
	nextID   int
}

// NewRegistry returns an empty registry. IDs in reserved are never seeded and
// never followed as edges.
func NewRegistry(reserved ...string) *Registry {
	r := &Registry{
		nodeOf:   make(map[string]*Node),
		graphOf:  make(map[string]*Graph),
		reserved: make(map[string]struct{}, len(reserved)),
	}
	for _, id := range reserved {
		r.reserved[id] = struct{}{}
	}
	return r
}

// IsReserved reports whether id is a reserved platform ID.
func (r *Registry) IsReserved(id string) bool {
	_, ok := r.reserved[id]
	return ok
}

// Seed creates a singleton Graph holding a singleton Node for m.
func (r *Registry) Seed(m *mod.Mod) (*Graph, error) {
	if _, ok := r.nodeOf[m.ID]; ok {
		return nil, &StructuralError{ID: m.ID, Err: ErrDuplicateComponent}
	}
	g := &Graph{id: r.next(), reg: r}
	n := &Node{id: r.next(), graph: g, Mods: []*mod.Mod{m}}
	g.nodes = []*Node{n}
	r.graphs = append(r.graphs, g)
	r.nodes = append(r.nodes, n)
	r.nodeOf[m.ID] = n
	r.graphOf[m.ID] = g
	return g, nil
}

func (r *Registry) next() int {
	id := r.nextID
	r.nextID++
	return id
}

// NodeOf returns the Node currently holding the mod ID.
func (r *Registry) NodeOf(id string) (*Node, bool) {
	n, ok := r.nodeOf[id]
	return n, ok
}

// GraphOf returns the Graph currently holding the mod ID.
func (r *Registry) GraphOf(id string) (*Graph, bool) {
	g, ok := r.graphOf[id]
	return g, ok
}

// Graphs returns the live Graphs in creation order.
func (r *Registry) Graphs() []*Graph {
	out := make([]*Graph, 0, len(r.graphs))
	for _, g := range r.graphs {
		if !g.dead {
			out = append(out, g)
		}
	}
	return out
}

// Len returns the number of seeded mods.
func (r *Registry) Len() int { return len(r.nodeOf) }

// Compact drops tombstoned Graphs and Nodes from the arena.
func (r *Registry) Compact() {
	r.graphs = r.Graphs()
	live := r.nodes[:0]
	for _, n := range r.nodes {
		if !n.dead {
			live = append(live, n)
		}
	}
	clear(r.nodes[len(live):])
	r.nodes = live
	for _, g := range r.graphs {
		g.compact()
	}
}

// CheckPartition verifies that every seeded mod sits in exactly one live Node
// of exactly one live Graph and that both indexes agree with the arena.
func (r *Registry) CheckPartition() error {
	seen := make(map[string]struct{}, len(r.nodeOf))
	for _, g := range r.Graphs() {
		for _, n := range g.Nodes() {
			if n.graph != g {
				return fmt.Errorf("node %d lists graph %d but is held by graph %d", n.id, n.graph.id, g.id)
			}
			for _, m := range n.Mods {
				if _, dup := seen[m.ID]; dup {
					return &StructuralError{ID: m.ID, Err: ErrDuplicateComponent}
				}
				seen[m.ID] = struct{}{}
				if r.nodeOf[m.ID] != n {
					return fmt.Errorf("mod %q: node index out of date", m.ID)
				}
				if r.graphOf[m.ID] != g {
					return fmt.Errorf("mod %q: graph index out of date", m.ID)
				}
			}
		}
	}
	if len(seen) != len(r.nodeOf) {
		return fmt.Errorf("partition covers %d mods, registry holds %d", len(seen), len(r.nodeOf))
	}
	return nil
}
