package report

import (
	"fmt"
	"io"

	"github.com/specialistvlad/modbisect/internal/graph"
)

// DOT writes g in Graphviz format. Mods sharing a node are boxed together.
// Required edges are solid and optional ones dashed. Edges leaving the
// cluster are omitted.
func DOT(w io.Writer, name string, g *graph.Graph) error {
	in := make(map[string]bool)
	for _, m := range g.Mods() {
		in[m.ID] = true
	}

	bw := &errWriter{w: w}
	bw.printf("digraph %q {\n", name)
	bw.printf("  node [shape=box];\n")
	for _, n := range g.NodesByScore() {
		if n.Len() > 1 {
			bw.printf("  subgraph \"cluster_node_%d\" {\n    label=\"score %d\";\n", n.ID(), n.Score)
			for _, m := range n.Mods {
				bw.printf("    %q [label=%q];\n", m.ID, m.Name+"\n"+m.ID)
			}
			bw.printf("  }\n")
			continue
		}
		for _, m := range n.Mods {
			bw.printf("  %q [label=%q];\n", m.ID, fmt.Sprintf("%s\n%s\nscore %d", m.Name, m.ID, n.Score))
		}
	}
	for _, m := range g.Mods() {
		for _, dep := range m.Dependencies {
			if !in[dep.ModID] {
				continue
			}
			style := "solid"
			if !dep.Required {
				style = "dashed"
			}
			bw.printf("  %q -> %q [style=%s];\n", m.ID, dep.ModID, style)
		}
	}
	bw.printf("}\n")
	return bw.err
}

// errWriter keeps the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
