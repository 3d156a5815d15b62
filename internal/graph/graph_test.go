package graph

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/specialistvlad/modbisect/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edge is "from depends on to".
type edge struct {
	from, to string
	required bool
}

// newMods builds linked mods for ids with the given requirement edges.
func newMods(t *testing.T, ids []string, edges ...edge) []*mod.Mod {
	t.Helper()
	set := mod.NewSet()
	for _, id := range ids {
		require.NoError(t, set.Add(mod.New(id, id, version.MustParse("1.0"))))
	}
	for _, e := range edges {
		m, ok := set.Get(e.from)
		require.True(t, ok, "unknown mod %s", e.from)
		r, err := mod.NewRequirement(e.to, e.required, "*")
		require.NoError(t, err)
		m.Dependencies = append(m.Dependencies, r)
	}
	set.LinkDependents()
	return set.All()
}

func build(t *testing.T, mods []*mod.Mod, reserved ...string) *Registry {
	t.Helper()
	reg, err := Build(context.Background(), mods, reserved...)
	require.NoError(t, err)
	require.NoError(t, reg.CheckPartition())
	return reg
}

// membership renders each graph as a sorted list of its mod IDs, graphs sorted
// by their first member.
func membership(reg *Registry) [][]string {
	var out [][]string
	for _, g := range reg.Graphs() {
		var ids []string
		for _, m := range g.Mods() {
			ids = append(ids, m.ID)
		}
		sort.Strings(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func scoreOf(t *testing.T, reg *Registry, id string) int {
	t.Helper()
	n, ok := reg.NodeOf(id)
	require.True(t, ok, "mod %s has no node", id)
	return n.Score
}

// assertScoreInvariant checks score(dep) >= score(dependent)+1 for every
// required edge between distinct nodes.
func assertScoreInvariant(t *testing.T, reg *Registry, mods []*mod.Mod) {
	t.Helper()
	for _, m := range mods {
		from, ok := reg.NodeOf(m.ID)
		if !ok {
			continue
		}
		for _, r := range m.Dependencies {
			to, ok := reg.NodeOf(r.ModID)
			if !ok || !r.Required || to == from {
				continue
			}
			assert.GreaterOrEqual(t, to.Score, from.Score+1, "%s -> %s", m.ID, r.ModID)
		}
	}
}

func TestBuild_DependentAndDependency(t *testing.T) {
	mods := newMods(t, []string{"A", "B"}, edge{"B", "A", true})
	reg := build(t, mods)

	require.Len(t, reg.Graphs(), 1)
	assert.Equal(t, 2, reg.Graphs()[0].Size())
	assert.Equal(t, 1, scoreOf(t, reg, "A"))
	assert.Equal(t, 0, scoreOf(t, reg, "B"))
}

func TestBuild_Partition(t *testing.T) {
	mods := newMods(t,
		[]string{"a", "b", "c", "d", "e", "f", "g"},
		edge{"a", "b", true},
		edge{"c", "b", true},
		edge{"d", "e", true},
		edge{"f", "a", false}, // optional edges never merge
		edge{"g", "minecraft", true},
		edge{"e", "missing", true},
	)
	reg := build(t, mods, DefaultReserved...)

	want := [][]string{{"a", "b", "c"}, {"d", "e"}, {"f"}, {"g"}}
	if diff := cmp.Diff(want, membership(reg)); diff != "" {
		t.Errorf("graph membership mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 7, reg.Len())
}

func TestBuild_ReservedIDsAreNotSeeded(t *testing.T) {
	mods := newMods(t, []string{"minecraft", "forge", "a", "b"},
		edge{"a", "forge", true},
		edge{"b", "forge", true},
	)
	reg := build(t, mods, DefaultReserved...)

	assert.Equal(t, 2, reg.Len())
	assert.Len(t, reg.Graphs(), 2, "a shared platform dependency must not join clusters")
	_, ok := reg.NodeOf("forge")
	assert.False(t, ok)
}

func TestBuild_DuplicateComponent(t *testing.T) {
	a := mod.New("a", "A", version.Any)
	dup := mod.New("a", "A again", version.Any)

	_, err := Build(context.Background(), []*mod.Mod{a, dup})

	require.ErrorIs(t, err, ErrDuplicateComponent)
	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "a", se.ID)
}

func TestBuild_ChainScores(t *testing.T) {
	// top -> mid -> base, and top -> base directly.
	mods := newMods(t, []string{"base", "mid", "top", "side"},
		edge{"top", "mid", true},
		edge{"mid", "base", true},
		edge{"top", "base", true},
		edge{"side", "base", true},
	)
	reg := build(t, mods)

	assert.Equal(t, 0, scoreOf(t, reg, "top"))
	assert.Equal(t, 0, scoreOf(t, reg, "side"))
	assert.Equal(t, 1, scoreOf(t, reg, "mid"))
	assert.Equal(t, 2, scoreOf(t, reg, "base"))
	assertScoreInvariant(t, reg, mods)

	g, _ := reg.GraphOf("top")
	var order []string
	for _, n := range g.NodesByScore() {
		order = append(order, n.Mods[0].ID)
	}
	assert.Equal(t, []string{"top", "side", "mid", "base"}, order)
}

func TestBuild_CycleCollapsesIntoOneNode(t *testing.T) {
	mods := newMods(t, []string{"x", "y", "z", "user"},
		edge{"x", "y", true},
		edge{"y", "z", true},
		edge{"z", "x", true},
		edge{"user", "x", true},
	)
	reg := build(t, mods)

	nx, _ := reg.NodeOf("x")
	ny, _ := reg.NodeOf("y")
	nz, _ := reg.NodeOf("z")
	assert.Same(t, nx, ny)
	assert.Same(t, nx, nz)
	assert.Equal(t, 3, nx.Len())
	assert.Equal(t, 0, scoreOf(t, reg, "user"))
	assert.Equal(t, 1, nx.Score)

	g, _ := reg.GraphOf("user")
	assert.Len(t, g.Nodes(), 2)
	assertScoreInvariant(t, reg, mods)
}

func TestGraph_MergeRepointsRegistry(t *testing.T) {
	reg := NewRegistry()
	a := mod.New("a", "A", version.Any)
	b := mod.New("b", "B", version.Any)
	ga, err := reg.Seed(a)
	require.NoError(t, err)
	gb, err := reg.Seed(b)
	require.NoError(t, err)

	ga.Merge(gb)

	got, _ := reg.GraphOf("b")
	assert.Same(t, ga, got)
	assert.Len(t, reg.Graphs(), 1)
	assert.Equal(t, 2, ga.Size())
	assert.Equal(t, 0, gb.Size())
	require.NoError(t, reg.CheckPartition())

	na, _ := reg.NodeOf("a")
	nb, _ := reg.NodeOf("b")
	na.Merge(nb)
	reg.Compact()
	assert.Len(t, ga.Nodes(), 1)
	assert.Equal(t, 2, ga.Size())
	require.NoError(t, reg.CheckPartition())
}

func TestSortBySize(t *testing.T) {
	mods := newMods(t, []string{"a1", "a2", "a3", "b1", "b2", "c1"},
		edge{"a1", "a2", true},
		edge{"a2", "a3", true},
		edge{"b1", "b2", true},
	)
	reg := build(t, mods)
	graphs := reg.Graphs()

	SortBySize(graphs)

	var sizes []int
	for _, g := range graphs {
		sizes = append(sizes, g.Size())
	}
	assert.Equal(t, []int{1, 2, 3}, sizes)
}

func TestBuild_RandomGraphsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := range 20 {
		t.Run(fmt.Sprintf("round-%d", round), func(t *testing.T) {
			n := 5 + rng.IntN(30)
			ids := make([]string, n)
			for i := range ids {
				ids[i] = fmt.Sprintf("m%02d", i)
			}
			var edges []edge
			for range rng.IntN(2 * n) {
				from, to := ids[rng.IntN(n)], ids[rng.IntN(n)]
				if from != to {
					edges = append(edges, edge{from, to, rng.IntN(4) != 0})
				}
			}
			mods := newMods(t, ids, edges...)
			reg := build(t, mods)

			assert.Equal(t, n, reg.Len())
			total := 0
			for _, g := range reg.Graphs() {
				total += g.Size()
			}
			assert.Equal(t, n, total, "merging must conserve the component count")
			assertScoreInvariant(t, reg, mods)

			for _, e := range edges {
				if !e.required {
					continue
				}
				gf, _ := reg.GraphOf(e.from)
				gt, _ := reg.GraphOf(e.to)
				assert.Same(t, gf, gt, "%s and %s must share a cluster", e.from, e.to)
			}
		})
	}
}
