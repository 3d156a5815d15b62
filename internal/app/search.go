package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/modbisect/internal/bisect"
	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/harness"
	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/specialistvlad/modbisect/internal/report"
)

// session is everything a boot-driven command needs.
type session struct {
	engine  *bisect.Engine
	harness *harness.Harness
	release func()
}

// prepare discovers the instance, locks it, loads the pack, and starts the
// status server.
func (a *App) prepare(ctx context.Context) (*session, error) {
	if err := a.ensureInstance(ctx, true); err != nil {
		return nil, err
	}
	release, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}
	p, _, err := a.loadPack(ctx)
	if err != nil {
		release()
		return nil, err
	}
	procs, err := a.newProcs()
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Process table unavailable; memory and child processes will not be tracked.", "error", err)
		procs = nil
	}
	h := harness.New(a.config.HarnessConfig(), procs)
	eng := bisect.New(p.Set, h, a.engineOptions())
	stop, err := a.startStatusServer(ctx, eng.Progress(), h)
	if err != nil {
		release()
		return nil, err
	}
	return &session{
		engine:  eng,
		harness: h,
		release: func() {
			stop()
			release()
		},
	}, nil
}

// FindError bisects the pack for the mods that make symptom appear.
func (a *App) FindError(ctx context.Context, symptom string) error {
	ctx = a.context(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.FindError started.", "symptom", symptom)

	s, err := a.prepare(ctx)
	if err != nil {
		return err
	}
	defer s.release()

	out, err := s.engine.FindError(ctx, symptom)
	if out != nil {
		report.Clusters(a.outW, out.Graphs)
		report.Boots(a.outW, s.harness.History())
		report.Outcome(a.outW, out)
		var result []string
		for _, m := range out.Mods {
			result = append(result, m.ID)
		}
		if herr := a.saveHistory(ctx, report.History{
			RunID:   out.RunID,
			Command: "find-error",
			Symptom: symptom,
			Result:  result,
			Runs:    s.harness.History(),
		}); herr != nil && err == nil {
			err = herr
		}
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if out.Cancelled {
		logger.Warn("Received cancellation request.")
	}
	return nil
}

// ModInfo boots every cluster on its own and reports how each went. With
// dotDir set, each cluster is also written there as a Graphviz file.
func (a *App) ModInfo(ctx context.Context, dotDir string) error {
	ctx = a.context(ctx)
	ctxlog.FromContext(ctx).Debug("App.ModInfo started.", "dot_dir", dotDir)

	s, err := a.prepare(ctx)
	if err != nil {
		return err
	}
	defer s.release()

	res, err := s.engine.Survey(ctx)
	if res != nil {
		report.Survey(a.outW, res)
		if herr := a.saveHistory(ctx, report.History{
			RunID:   res.RunID,
			Command: "mod-info",
			Runs:    s.harness.History(),
		}); herr != nil && err == nil {
			err = herr
		}
		if dotDir != "" && err == nil {
			err = writeDOTFiles(dotDir, res)
		}
	}
	if err != nil {
		return fmt.Errorf("survey failed: %w", err)
	}
	return nil
}

func writeDOTFiles(dir string, res *bisect.SurveyResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, g := range res.Graphs {
		name := fmt.Sprintf("cluster_%03d", i)
		f, err := os.Create(filepath.Join(dir, name+".dot"))
		if err != nil {
			return err
		}
		werr := report.DOT(f, name, g)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("writing %s: %w", f.Name(), werr)
		}
	}
	return nil
}

func (a *App) saveHistory(ctx context.Context, h report.History) error {
	if a.opts.HistoryFile == "" {
		return nil
	}
	if err := report.SaveHistory(a.opts.HistoryFile, h); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("History written.", "path", a.opts.HistoryFile, "runs", len(h.Runs))
	return nil
}

// describeChanges prints every marker a command flipped.
func (a *App) describeChanges(changes mod.Changes) {
	for _, c := range changes {
		fmt.Fprintf(a.outW, " -> %s: %s -> %s\n", c.Mod.ID, c.From, c.To)
	}
}
