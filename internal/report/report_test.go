package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/modbisect/internal/bisect"
	"github.com/specialistvlad/modbisect/internal/graph"
	"github.com/specialistvlad/modbisect/internal/harness"
	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/specialistvlad/modbisect/internal/modpack"
	"github.com/specialistvlad/modbisect/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPack returns solo, plus addon which requires core.
func newPack(t *testing.T) *modpack.Pack {
	t.Helper()
	set := mod.NewSet()
	add := func(id, name, v, file string, deps ...*mod.Requirement) {
		m := mod.New(id, name, version.MustParse(v))
		m.Artifact = mod.NewArtifact("/pack/mods", file)
		m.Dependencies = deps
		require.NoError(t, set.Add(m))
	}
	req := func(id string, required bool, ranges string) *mod.Requirement {
		r, err := mod.NewRequirement(id, required, ranges)
		require.NoError(t, err)
		return r
	}
	add("core", "Core Lib", "2.0", "core.jar")
	add("addon", "Addon", "1.0", "addon.jar", req("core", true, "[1.0,)"), req("jei", false, "*"))
	add("solo", "Solo", "0.1", "solo.jar")
	return &modpack.Pack{ModsDir: "/pack/mods", Set: set}
}

func clusters(t *testing.T, p *modpack.Pack) []*graph.Graph {
	t.Helper()
	p.Set.LinkDependents()
	reg, err := graph.Build(context.Background(), p.Set.All())
	require.NoError(t, err)
	graphs := reg.Graphs()
	graph.SortBySize(graphs)
	return graphs
}

func diffText(t *testing.T, want, got string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestClusters(t *testing.T) {
	t.Parallel()
	graphs := clusters(t, newPack(t))
	var buf bytes.Buffer

	Clusters(&buf, graphs)

	diffText(t, `==================================
Cluster 0 (1 mods):
 -> [score 0] solo
==================================
Cluster 1 (2 mods):
 -> [score 0] addon
 -> [score 1] core

total clustered mods: 3
total separate clusters: 2
`, buf.String())
}

func TestOutcome(t *testing.T) {
	t.Parallel()
	graphs := clusters(t, newPack(t))
	nodes := graphs[1].NodesByScore()
	var buf bytes.Buffer

	Outcome(&buf, &bisect.Outcome{
		Symptom: "Mixin apply failed",
		Graphs:  graphs,
		Graph:   graphs[1],
		Nodes:   nodes,
		Node:    nodes[1],
		Mods:    nodes[1].Mods,
		Probes:  3,
	})

	diffText(t, `==================================
Symptom: "Mixin apply failed"
Probes:  3
Found mod(s) in cluster 1:

Core Lib (core) 2.0
 ->  file: core.jar
 ->  required by: addon [1.0,) (required)
`, buf.String())
}

func TestMod_BundledShowsOwnerJar(t *testing.T) {
	t.Parallel()
	owner := mod.New("bigmod", "Big Mod", version.MustParse("3.0"))
	owner.Artifact = mod.NewArtifact("/pack/mods", "bigmod.jar.tempdisabled")
	bundled := mod.New("inner", "Inner", version.MustParse("1.1"))
	bundled.Parent = owner
	var buf bytes.Buffer

	Mod(&buf, bundled)

	diffText(t, `Inner (inner) 1.1
 ->  file: bigmod.jar.tempdisabled
 ->  bundled in: bigmod
`, buf.String())
}

func TestOutcome_NothingFound(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		out  *bisect.Outcome
		want string
	}{
		{name: "cancelled", out: &bisect.Outcome{Cancelled: true}, want: "Search cancelled"},
		{name: "not reproducible", out: &bisect.Outcome{Err: bisect.ErrNotReproducible}, want: "did not reproduce"},
		{name: "empty", out: &bisect.Outcome{}, want: "No mod was implicated."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			Outcome(&buf, tc.out)
			assert.Contains(t, buf.String(), tc.want)
			assert.NotContains(t, buf.String(), "Found mod(s)")
		})
	}
}

func TestProblems(t *testing.T) {
	t.Parallel()
	p := newPack(t)
	core, _ := p.Set.Get("core")
	core.Version = version.MustParse("0.9")
	p.Errors = []string{`failed to locate a mod in jar "textures.jar"`}
	var buf bytes.Buffer

	n := Problems(&buf, p, p.Validate())

	assert.Equal(t, 2, n)
	diffText(t, `Core Lib (core) 0.9:
 ->  [file]: core.jar
 --> addon requires version [1.0,), but 0.9 is installed

 -> failed to locate a mod in jar "textures.jar"
2 problem(s) found
`, buf.String())
}

func TestProblems_Pass(t *testing.T) {
	t.Parallel()
	p := newPack(t)
	var buf bytes.Buffer

	assert.Zero(t, Problems(&buf, p, p.Validate()))
	assert.Equal(t, " -> [PASS]\n", buf.String())
}

func TestWhy(t *testing.T) {
	t.Parallel()
	p := newPack(t)
	p.Validate()
	why, err := p.WhyDepends("addon", false)
	require.NoError(t, err)
	var buf bytes.Buffer

	Why(&buf, why)

	diffText(t, `Addon (addon) [1.0]:
 -> File: "addon.jar"

 -> Dependencies
   -> name:      Core Lib
   -> modid:     core
   -> required:  yes
   -> installed: yes
   -> versions:  [1.0,)

   -> name:      jei
   -> modid:     jei
   -> required:  no
   -> installed: no
   -> versions:  *
   -> satisfied: no

 -> Dependents
`, buf.String())
}

func TestSurvey(t *testing.T) {
	t.Parallel()
	graphs := clusters(t, newPack(t))
	var buf bytes.Buffer

	Survey(&buf, &bisect.SurveyResult{
		Graphs: graphs,
		Results: []bisect.ClusterStats{
			{Graph: graphs[0], Stats: harness.Stats{TimedOut: true, ReturnCode: -1, BootTime: 41*time.Second + 300*time.Millisecond, Memory: 3 << 30}},
			{Graph: graphs[1], Stats: harness.Stats{ReturnCode: 1, CrashReport: "crash-2024.txt"}},
		},
	})

	diffText(t, `[CLUSTER 000]:
 ->  Healthy:    true
 ->  Mod Count:  001
 ->  Boot Time:  41s
 ->  Memory Use: 3.00 GiB
 --> Solo (solo)

==================================
[CLUSTER 001]:
 ->  Healthy:    false
 ->  Exit Code:  1
 ->  Crash report: "crash-2024.txt"
 --> Core Lib (core)
 --> Addon (addon)

==================================
002 CLUSTERS
`, buf.String())
}

func TestStats(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	Stats(&buf, harness.Stats{ModIDs: []string{"a", "b"}, ReturnCode: 0, BootTime: 1500 * time.Millisecond, Memory: 512})
	assert.Equal(t, "mods=2 healthy=true timed_out=false rc=0 boot=1.5s memory=512 B\n", buf.String())
}

func TestBoots(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	Boots(&buf, []harness.Stats{
		{ModIDs: []string{"a"}, ReturnCode: 0, BootTime: 2 * time.Second},
		{ModIDs: []string{"a", "b"}, ReturnCode: 1, CrashReport: "crash.txt", BootTime: time.Second},
	})
	want := `==================================
Boots (2):
  1. mods=1 healthy=true timed_out=false rc=0 boot=2s memory=0 B
  2. mods=2 healthy=false timed_out=false rc=1 boot=1s memory=0 B crash_report="crash.txt"
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Boots() mismatch (-want +got):\n%s", diff)
	}
}

func TestBytes(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KiB"},
		{1536, "1.50 KiB"},
		{5 << 20, "5.00 MiB"},
		{6 << 30, "6.00 GiB"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Bytes(tc.in), "Bytes(%d)", tc.in)
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := History{
		RunID:   "run-1",
		Command: "find-error",
		Symptom: "boom",
		Result:  []string{"core"},
		Runs: []harness.Stats{
			{ModIDs: []string{"core", "addon"}, Succeeded: false, ReturnCode: 1, CrashReport: "crash.txt", BootTime: 12 * time.Second, StartedAt: started},
		},
	}
	var buf bytes.Buffer

	require.NoError(t, WriteHistory(&buf, h))

	text := buf.String()
	assert.Contains(t, text, "run_id: run-1\n")
	assert.Contains(t, text, "boot_time: 12s\n")
	assert.Contains(t, text, "crash_report: crash.txt\n")
	assert.NotContains(t, text, "crash_log", "empty evidence is omitted")

	got, err := ReadHistory(strings.NewReader(text))
	require.NoError(t, err)
	if diff := cmp.Diff(h, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestDOT(t *testing.T) {
	t.Parallel()
	graphs := clusters(t, newPack(t))
	var buf bytes.Buffer

	require.NoError(t, DOT(&buf, "cluster_001", graphs[1]))

	text := buf.String()
	assert.True(t, strings.HasPrefix(text, "digraph \"cluster_001\" {\n"))
	assert.Contains(t, text, `"addon" -> "core" [style=solid];`)
	assert.NotContains(t, text, `"jei"`, "edges leaving the cluster are omitted")
	assert.True(t, strings.HasSuffix(text, "}\n"))
}
