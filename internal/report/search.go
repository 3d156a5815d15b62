package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/modbisect/internal/bisect"
	"github.com/specialistvlad/modbisect/internal/graph"
	"github.com/specialistvlad/modbisect/internal/harness"
	"github.com/specialistvlad/modbisect/internal/mod"
)

const rule = "=================================="

// Clusters writes every cluster with its members, one node per line in
// search order.
func Clusters(w io.Writer, graphs []*graph.Graph) {
	total := 0
	for i, g := range graphs {
		total += g.Size()
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Cluster %d (%d mods):\n", i, g.Size())
		for _, n := range g.NodesByScore() {
			fmt.Fprintf(w, " -> [score %d] %s\n", n.Score, modIDs(n.Mods))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "total clustered mods: %d\n", total)
	fmt.Fprintf(w, "total separate clusters: %d\n", len(graphs))
}

// Outcome writes the result of a search.
func Outcome(w io.Writer, out *bisect.Outcome) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Symptom: %q\n", out.Symptom)
	fmt.Fprintf(w, "Probes:  %d\n", out.Probes)
	switch {
	case out.Cancelled:
		fmt.Fprintln(w, "Search cancelled; mods were restored.")
		return
	case errors.Is(out.Err, bisect.ErrNotReproducible):
		fmt.Fprintln(w, "The failure did not reproduce with every cluster enabled.")
		return
	case !out.Found():
		fmt.Fprintln(w, "No mod was implicated.")
		return
	}

	idx := indexOf(out.Graphs, out.Graph)
	if out.Node == nil {
		fmt.Fprintf(w, "Cluster %d reproduces the failure, but none of its parts does on its own.\n", idx)
	}
	fmt.Fprintf(w, "Found mod(s) in cluster %d:\n", idx)
	for _, m := range out.Mods {
		fmt.Fprintln(w)
		Mod(w, m)
	}
}

// Survey writes how each cluster booted on its own.
func Survey(w io.Writer, res *bisect.SurveyResult) {
	for i, r := range res.Results {
		mods := r.Graph.Mods()
		fmt.Fprintf(w, "[CLUSTER %03d]:\n", i)
		fmt.Fprintf(w, " ->  Healthy:    %t\n", r.Stats.Healthy())
		if r.Stats.Healthy() {
			fmt.Fprintf(w, " ->  Mod Count:  %03d\n", len(mods))
			fmt.Fprintf(w, " ->  Boot Time:  %s\n", r.Stats.BootTime.Round(time.Second))
			fmt.Fprintf(w, " ->  Memory Use: %s\n", Bytes(r.Stats.Memory))
		} else {
			fmt.Fprintf(w, " ->  Exit Code:  %d\n", r.Stats.ReturnCode)
			if r.Stats.CrashReport != "" {
				fmt.Fprintf(w, " ->  Crash report: %q\n", r.Stats.CrashReport)
			}
		}
		for _, m := range mods {
			fmt.Fprintf(w, " --> %s (%s)\n", m.Name, m.ID)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, rule)
	}
	fmt.Fprintf(w, "%03d CLUSTERS\n", len(res.Graphs))
	if res.Cancelled {
		fmt.Fprintf(w, "Survey cancelled after %d of %d clusters.\n", len(res.Results), len(res.Graphs))
	}
}

// Boots writes one line per boot, in the order they ran.
func Boots(w io.Writer, runs []harness.Stats) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Boots (%d):\n", len(runs))
	for i, s := range runs {
		fmt.Fprintf(w, "%3d. ", i+1)
		Stats(w, s)
	}
}

// Stats writes a single boot result.
func Stats(w io.Writer, s harness.Stats) {
	fmt.Fprintf(w, "mods=%d healthy=%t timed_out=%t rc=%d boot=%s memory=%s",
		len(s.ModIDs), s.Healthy(), s.TimedOut, s.ReturnCode, s.BootTime.Round(time.Millisecond), Bytes(s.Memory))
	if s.CrashReport != "" {
		fmt.Fprintf(w, " crash_report=%q", s.CrashReport)
	}
	fmt.Fprintln(w)
}

// Bytes formats n with a binary unit.
func Bytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func modIDs(mods []*mod.Mod) string {
	ids := make([]string, len(mods))
	for i, m := range mods {
		ids[i] = m.ID
	}
	return strings.Join(ids, ", ")
}

func indexOf(graphs []*graph.Graph, g *graph.Graph) int {
	for i, x := range graphs {
		if x == g {
			return i
		}
	}
	return -1
}
