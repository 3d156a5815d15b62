package bisect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/graph"
	"github.com/specialistvlad/modbisect/internal/harness"
	"github.com/specialistvlad/modbisect/internal/mod"
)

// ErrNotReproducible means no prefix of the clusters reproduced the failure.
var ErrNotReproducible = errors.New("failure not reproducible")

// Oracle boots the application once per call. Only one call may be in flight.
type Oracle interface {
	Test(ctx context.Context, timeout time.Duration, mods []*mod.Mod) (harness.Stats, error)
	TestForError(ctx context.Context, symptom string, timeout time.Duration, mods []*mod.Mod) (bool, error)
	Kill(ctx context.Context) error
}

// Options tunes the engine.
type Options struct {
	// PerModTimeout and MinTimeout give each probe max(PerModTimeout*n, MinTimeout)
	// where n is the number of mods enabled for it.
	PerModTimeout time.Duration
	MinTimeout    time.Duration
	Reserved      []string
}

// DefaultOptions returns the standard timeouts and reserved IDs.
func DefaultOptions() Options {
	return Options{
		PerModTimeout: 8 * time.Second,
		MinTimeout:    600 * time.Second,
		Reserved:      graph.DefaultReserved,
	}
}

// Timeout returns the probe budget for n enabled mods.
func (o Options) Timeout(n int) time.Duration {
	return max(o.PerModTimeout*time.Duration(n), o.MinTimeout)
}

// Engine runs searches over one mod set.
type Engine struct {
	set      *mod.Set
	oracle   Oracle
	opts     Options
	progress *Progress
}

// New returns an engine that toggles mods in set and boots through oracle.
func New(set *mod.Set, oracle Oracle, opts Options) *Engine {
	return &Engine{set: set, oracle: oracle, opts: opts, progress: NewProgress()}
}

// Progress exposes the live search state.
func (e *Engine) Progress() *Progress { return e.progress }

// Outcome is the result of FindError.
type Outcome struct {
	RunID   string
	Symptom string

	// Graphs are the level one candidates in the order searched.
	Graphs []*graph.Graph
	// Graph is the implicated cluster, nil when nothing was found.
	Graph *graph.Graph
	// Nodes are Graph's nodes in the order searched.
	Nodes []*graph.Node
	// Node is the implicated unit. It is nil when the cluster as a whole
	// reproduced the failure but no node prefix did.
	Node *graph.Node
	// Mods are the implicated mods: Node's, or Graph's when Node is nil.
	Mods []*mod.Mod

	Probes    int
	Err       error
	Cancelled bool
}

// Found reports whether a unit was implicated.
func (o *Outcome) Found() bool { return o.Graph != nil && !o.Cancelled }

// FindError disables every mod, builds the clusters, and bisects for the
// first unit whose presence makes symptom appear in the crash evidence.
// Every mod is returned to its pre-search state before FindError returns.
//
// Cancelling ctx kills the oracle and yields an Outcome with Cancelled set and
// a nil error. ErrNotReproducible is reported in Outcome.Err. Errors returned
// directly mean the mod set or the registry could not be trusted.
func (e *Engine) FindError(ctx context.Context, symptom string) (out *Outcome, err error) {
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID)
	logger := ctxlog.FromContext(ctx)
	out = &Outcome{RunID: runID, Symptom: symptom}

	e.progress.update(func(s *Snapshot) {
		*s = Snapshot{RunID: runID, Phase: PhasePreparing, Symptom: symptom, StartedAt: time.Now()}
	})
	defer e.progress.update(func(s *Snapshot) { s.Phase = PhaseDone })

	base, err := e.baseline(ctx)
	defer func() {
		if rerr := e.restore(ctx, base); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	if err != nil {
		return out, err
	}

	reg, err := graph.Build(ctx, e.set.All(), e.opts.Reserved...)
	if err != nil {
		return out, fmt.Errorf("building dependency graphs: %w", err)
	}
	graphs := reg.Graphs()
	graph.SortBySize(graphs)
	out.Graphs = graphs
	logger.Info("🔎 Searching clusters.", "clusters", len(graphs), "mods", reg.Len(), "max_probes", MaxProbes(len(graphs)))

	e.progress.update(func(s *Snapshot) { s.Phase, s.Candidates = PhaseClusters, len(graphs) })
	idx, err := Eliminate(ctx, len(graphs), func(ctx context.Context, step Step) (bool, error) {
		var mods []*mod.Mod
		for _, g := range graphs[:step.Mid+1] {
			mods = append(mods, g.Mods()...)
		}
		out.Probes++
		return e.probe(ctx, symptom, step, mods)
	})
	if cancelled(ctx, err) {
		return e.cancel(ctx, out), nil
	}
	if err != nil {
		return out, err
	}
	if idx == len(graphs) {
		logger.Warn("Failure did not reproduce with every cluster enabled.", "symptom", symptom, "probes", out.Probes)
		out.Err = ErrNotReproducible
		return out, nil
	}
	out.Graph = graphs[idx]
	logger.Info("🎯 Cluster implicated.", "index", idx, "size", out.Graph.Size())

	nodes := out.Graph.NodesByScore()
	out.Nodes = nodes
	e.progress.update(func(s *Snapshot) { s.Phase, s.Candidates = PhaseNodes, len(nodes) })
	nidx, err := Eliminate(ctx, len(nodes), func(ctx context.Context, step Step) (bool, error) {
		var mods []*mod.Mod
		for _, n := range nodes[:step.Mid+1] {
			mods = append(mods, n.Mods...)
		}
		out.Probes++
		return e.probe(ctx, symptom, step, mods)
	})
	if cancelled(ctx, err) {
		return e.cancel(ctx, out), nil
	}
	if err != nil {
		return out, err
	}
	if nidx == len(nodes) {
		logger.Warn("No node prefix reproduced the failure; reporting the whole cluster.", "cluster_size", out.Graph.Size())
		out.Mods = out.Graph.Mods()
		return out, nil
	}
	out.Node = nodes[nidx]
	out.Mods = out.Node.Mods
	logger.Info("🏁 Search finished.", "mods", len(out.Mods), "probes", out.Probes)
	return out, nil
}

// probe enables mods, boots once, and reverts exactly what it enabled.
func (e *Engine) probe(ctx context.Context, symptom string, step Step, mods []*mod.Mod) (reproduced bool, err error) {
	logger := ctxlog.FromContext(ctx)
	e.progress.update(func(s *Snapshot) {
		s.Iteration, s.Low, s.High = step.Iteration, step.Low, step.High
		s.Probes++
	})

	changes, err := e.set.Enable(mods...)
	defer func() {
		if rerr := changes.Revert(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("reverting probe: %w", rerr))
		}
	}()
	if err != nil {
		return false, err
	}

	timeout := e.opts.Timeout(len(mods))
	logger.Debug("Probing prefix.", "low", step.Low, "high", step.High, "mid", step.Mid, "mods", len(mods), "timeout", timeout)
	reproduced, err = e.oracle.TestForError(ctx, symptom, timeout, mods)
	if err != nil {
		return false, err
	}
	logger.Info("Probe finished.", "iteration", step.Iteration, "mid", step.Mid, "mods", len(mods), "reproduced", reproduced)
	return reproduced, nil
}

// baseline clears leftovers from an interrupted run and then disables every mod.
func (e *Engine) baseline(ctx context.Context) (mod.Changes, error) {
	logger := ctxlog.FromContext(ctx)
	n, err := e.set.RestoreAll()
	if err != nil {
		return nil, fmt.Errorf("restoring leftover markers: %w", err)
	}
	if n > 0 {
		logger.Warn("Restored mods left disabled by an earlier run.", "count", n)
	}
	changes, err := e.set.DisableAll()
	if err != nil {
		return changes, fmt.Errorf("disabling mods: %w", err)
	}
	logger.Debug("Baseline established.", "disabled", len(changes))
	return changes, nil
}

func (e *Engine) restore(ctx context.Context, baseline mod.Changes) error {
	e.progress.update(func(s *Snapshot) { s.Phase = PhaseRestoring })
	err := baseline.Revert()
	if _, rerr := e.set.RestoreAll(); rerr != nil {
		err = errors.Join(err, rerr)
	}
	if err != nil {
		return fmt.Errorf("restoring mods: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Mods restored to their pre-search state.")
	return nil
}

func (e *Engine) cancel(ctx context.Context, out *Outcome) *Outcome {
	e.stop(ctx)
	out.Cancelled = true
	return out
}

// stop kills the application after ctx was cancelled.
func (e *Engine) stop(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	logger.Warn("Search cancelled; stopping the application.")
	if err := e.oracle.Kill(context.WithoutCancel(ctx)); err != nil {
		logger.Error("Failed to stop the application.", "error", err)
	}
}

// cancelled reports whether err ended a search because ctx was cancelled.
func cancelled(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}
