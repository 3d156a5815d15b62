package graph

import (
	"slices"

	"github.com/specialistvlad/modbisect/internal/mod"
)

// Node is an indivisible set of mods inside a Graph.
type Node struct {
	id    int
	graph *Graph
	dead  bool

	Mods  []*mod.Mod
	Score int
}

// ID is unique within the Registry.
func (n *Node) ID() int { return n.id }

// Graph returns the Graph that owns n.
func (n *Node) Graph() *Graph { return n.graph }

// Len returns the number of mods in n.
func (n *Node) Len() int { return len(n.Mods) }

// Merge moves every mod of other into n and tombstones other. Both mod ID
// indexes are repointed to n and n's Graph.
func (n *Node) Merge(other *Node) {
	if other == n || other.dead {
		return
	}
	reg := n.graph.reg
	for _, m := range other.Mods {
		reg.nodeOf[m.ID] = n
		reg.graphOf[m.ID] = n.graph
	}
	n.Mods = append(n.Mods, other.Mods...)
	other.Mods = nil
	other.dead = true
}

// Graph is one cluster of mods connected by required requirements.
type Graph struct {
	id    int
	reg   *Registry
	dead  bool
	nodes []*Node
}

// ID is unique within the Registry.
func (g *Graph) ID() int { return g.id }

// Nodes returns the live Nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if !n.dead {
			out = append(out, n)
		}
	}
	return out
}

// Mods returns every member mod, Node by Node.
func (g *Graph) Mods() []*mod.Mod {
	var out []*mod.Mod
	for _, n := range g.Nodes() {
		out = append(out, n.Mods...)
	}
	return out
}

// Size returns the number of member mods.
func (g *Graph) Size() int {
	size := 0
	for _, n := range g.nodes {
		if !n.dead {
			size += len(n.Mods)
		}
	}
	return size
}

// Merge absorbs every Node of other, tombstones other, and recomputes scores.
func (g *Graph) Merge(other *Graph) {
	if g.absorb(other) {
		g.RecalculateScores()
	}
}

func (g *Graph) absorb(other *Graph) bool {
	if other == g || other.dead {
		return false
	}
	for _, n := range other.nodes {
		if n.dead {
			continue
		}
		n.graph = g
		for _, m := range n.Mods {
			g.reg.graphOf[m.ID] = g
		}
		g.nodes = append(g.nodes, n)
	}
	other.nodes = nil
	other.dead = true
	return true
}

func (g *Graph) compact() {
	g.nodes = slices.DeleteFunc(g.nodes, func(n *Node) bool { return n.dead })
}

// Process pulls into g every Graph reachable through a required requirement,
// in either direction, until g is closed. Edges to reserved or uninstalled IDs
// are ignored. Nodes absorbed along the way are processed too.
func (g *Graph) Process() {
	if g.dead {
		return
	}
	merged := false
	for i := 0; i < len(g.nodes); i++ {
		n := g.nodes[i]
		if n.dead {
			continue
		}
		for _, m := range n.Mods {
			for _, id := range g.reg.requiredNeighbours(m) {
				if other := g.reg.graphOf[id]; other != g && g.absorb(other) {
					merged = true
				}
			}
		}
	}
	if merged || len(g.nodes) > 1 {
		g.RecalculateScores()
	}
}

// requiredNeighbours lists the seeded IDs linked to m by a required
// requirement in either direction.
func (r *Registry) requiredNeighbours(m *mod.Mod) []string {
	var ids []string
	for _, reqs := range [][]*mod.Requirement{m.Dependencies, m.Dependents} {
		for _, req := range reqs {
			if !req.Required || r.IsReserved(req.ModID) {
				continue
			}
			if _, installed := r.nodeOf[req.ModID]; !installed {
				continue
			}
			ids = append(ids, req.ModID)
		}
	}
	return ids
}

// dependencyEdges returns, for each live Node, the distinct other Nodes it
// requires. Only forward Dependencies are followed.
func (g *Graph) dependencyEdges(nodes []*Node) map[*Node][]*Node {
	adj := make(map[*Node][]*Node, len(nodes))
	for _, n := range nodes {
		seen := make(map[*Node]struct{})
		for _, m := range n.Mods {
			for _, req := range m.Dependencies {
				if !req.Required || g.reg.IsReserved(req.ModID) {
					continue
				}
				target, ok := g.reg.nodeOf[req.ModID]
				if !ok || target == n || target.graph != g {
					continue
				}
				if _, dup := seen[target]; dup {
					continue
				}
				seen[target] = struct{}{}
				adj[n] = append(adj[n], target)
			}
		}
	}
	return adj
}

// RecalculateScores collapses dependency cycles into single Nodes and then
// assigns every Node its longest required-dependent chain length.
func (g *Graph) RecalculateScores() {
	g.CollapseCycles()
	nodes := g.Nodes()
	adj := g.dependencyEdges(nodes)

	indegree := make(map[*Node]int, len(nodes))
	for _, n := range nodes {
		n.Score = 0
		for _, dep := range adj[n] {
			indegree[dep]++
		}
	}
	queue := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]
		for _, y := range adj[x] {
			y.Score = max(y.Score, x.Score+1)
			indegree[y]--
			if indegree[y] == 0 {
				queue = append(queue, y)
			}
		}
	}
}

// CollapseCycles merges every strongly connected set of Nodes, under required
// dependency edges, into the member that appears first in g.
func (g *Graph) CollapseCycles() {
	nodes := g.Nodes()
	if len(nodes) < 2 {
		return
	}
	adj := g.dependencyEdges(nodes)
	position := make(map[*Node]int, len(nodes))
	for i, n := range nodes {
		position[n] = i
	}

	// First pass: post-order over forward edges.
	type frame struct {
		n    *Node
		next int
	}
	visited := make(map[*Node]bool, len(nodes))
	order := make([]*Node, 0, len(nodes))
	for _, root := range nodes {
		if visited[root] {
			continue
		}
		visited[root] = true
		stack := []frame{{n: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(adj[top.n]) {
				next := adj[top.n][top.next]
				top.next++
				if !visited[next] {
					visited[next] = true
					stack = append(stack, frame{n: next})
				}
				continue
			}
			order = append(order, top.n)
			stack = stack[:len(stack)-1]
		}
	}

	// Second pass: reverse edges in reverse post-order yields one component per tree.
	reverse := make(map[*Node][]*Node, len(nodes))
	for _, x := range nodes {
		for _, y := range adj[x] {
			reverse[y] = append(reverse[y], x)
		}
	}
	assigned := make(map[*Node]bool, len(nodes))
	collapsed := false
	for i := len(order) - 1; i >= 0; i-- {
		root := order[i]
		if assigned[root] {
			continue
		}
		assigned[root] = true
		component := []*Node{root}
		stack := []*Node{root}
		for len(stack) > 0 {
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, y := range reverse[x] {
				if !assigned[y] {
					assigned[y] = true
					component = append(component, y)
					stack = append(stack, y)
				}
			}
		}
		if len(component) < 2 {
			continue
		}
		slices.SortFunc(component, func(a, b *Node) int { return position[a] - position[b] })
		for _, other := range component[1:] {
			component[0].Merge(other)
		}
		collapsed = true
	}
	if collapsed {
		g.compact()
	}
}
