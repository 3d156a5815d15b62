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

// ClusterStats pairs a cluster with the result of booting it alone.
type ClusterStats struct {
	Graph *graph.Graph
	Stats harness.Stats
}

// SurveyResult is the result of Survey.
type SurveyResult struct {
	RunID     string
	Graphs    []*graph.Graph
	Results   []ClusterStats
	Cancelled bool
}

// Survey boots each cluster on its own, smallest first, and records how it
// went. No search is performed. Mods are restored as in FindError.
func (e *Engine) Survey(ctx context.Context) (out *SurveyResult, err error) {
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID)
	logger := ctxlog.FromContext(ctx)
	out = &SurveyResult{RunID: runID}

	e.progress.update(func(s *Snapshot) {
		*s = Snapshot{RunID: runID, Phase: PhasePreparing, StartedAt: time.Now()}
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
	e.progress.update(func(s *Snapshot) { s.Phase, s.Candidates = PhaseSurvey, len(graphs) })
	logger.Info("🩺 Surveying clusters.", "clusters", len(graphs))

	for i, g := range graphs {
		if ctx.Err() != nil {
			out.Cancelled = true
			e.stop(ctx)
			return out, nil
		}
		e.progress.update(func(s *Snapshot) { s.Iteration, s.Probes = i, s.Probes+1 })
		stats, err := e.bootAlone(ctx, g.Mods())
		if err != nil {
			if ctx.Err() != nil {
				out.Cancelled = true
				e.stop(ctx)
				return out, nil
			}
			return out, fmt.Errorf("cluster %d: %w", i, err)
		}
		logger.Info("Cluster booted.", "index", i, "size", g.Size(), "healthy", stats.Healthy(), "boot_time", stats.BootTime)
		out.Results = append(out.Results, ClusterStats{Graph: g, Stats: stats})
	}
	return out, nil
}

func (e *Engine) bootAlone(ctx context.Context, mods []*mod.Mod) (stats harness.Stats, err error) {
	changes, err := e.set.Enable(mods...)
	defer func() {
		if rerr := changes.Revert(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("reverting cluster: %w", rerr))
		}
	}()
	if err != nil {
		return stats, err
	}
	stats, err = e.oracle.Test(ctx, e.opts.Timeout(len(mods)), mods)
	if kerr := e.oracle.Kill(context.WithoutCancel(ctx)); kerr != nil {
		ctxlog.FromContext(ctx).Debug("Stopping the application after a survey boot failed.", "error", kerr)
	}
	return stats, err
}
