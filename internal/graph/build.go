package graph

import (
	"cmp"
	"context"
	"slices"

	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/mod"
)

// Build seeds one Graph per mod, skipping reserved IDs, and merges them along
// required requirements until every Graph is closed. The returned Registry is
// compacted. A mod ID seen twice aborts the build with a *StructuralError.
func Build(ctx context.Context, mods []*mod.Mod, reserved ...string) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)
	reg := NewRegistry(reserved...)
	for _, m := range mods {
		if reg.IsReserved(m.ID) {
			continue
		}
		if _, err := reg.Seed(m); err != nil {
			return nil, err
		}
	}
	for _, g := range reg.graphs {
		g.Process()
	}
	reg.Compact()
	if err := reg.CheckPartition(); err != nil {
		return nil, err
	}
	logger.Debug("Dependency graphs built.", "mods", reg.Len(), "graphs", len(reg.graphs))
	return reg, nil
}

// SortBySize orders graphs by member count, smallest first. Equal sizes keep
// their relative order.
func SortBySize(graphs []*Graph) {
	slices.SortStableFunc(graphs, func(a, b *Graph) int { return cmp.Compare(a.Size(), b.Size()) })
}

// NodesByScore returns g's Nodes ordered by score, lowest first. Equal scores
// keep insertion order.
func (g *Graph) NodesByScore() []*Node {
	nodes := g.Nodes()
	slices.SortStableFunc(nodes, func(a, b *Node) int { return cmp.Compare(a.Score, b.Score) })
	return nodes
}
