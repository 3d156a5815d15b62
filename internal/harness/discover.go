package harness

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/modbisect/internal/ctxlog"
)

// Instance is a launch command captured from a running game.
type Instance struct {
	Command []string
	GameDir string
}

// Discover waits for a new process matching m to appear, captures its command
// line and --gameDir, and stops it, killing it if it is still running after
// grace. Processes already running when Discover starts are ignored. Newer
// processes are preferred.
func Discover(ctx context.Context, procs ProcessTable, m Match, poll, grace time.Duration) (Instance, error) {
	logger := ctxlog.FromContext(ctx)
	before, err := procs.List()
	if err != nil {
		return Instance{}, err
	}
	known := make(map[int]bool, len(before))
	for _, p := range before {
		if m.NameMatches(p) {
			known[p.PID] = true
		}
	}
	logger.Info("👀 Waiting for the game to be launched.", "name", m.Name, "arg", m.Arg)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Instance{}, ctx.Err()
		case <-ticker.C:
		}
		current, err := procs.List()
		if err != nil {
			return Instance{}, err
		}
		// Highest PIDs first: the most recently started process wins.
		slices.SortFunc(current, func(a, b ProcInfo) int { return b.PID - a.PID })
		for _, p := range current {
			if known[p.PID] || !m.Matches(p) {
				continue
			}
			inst := Instance{Command: slices.Clone(p.Args), GameDir: gameDirArg(p.Args)}
			if err := stopProcesses(ctx, procs, []int{p.PID}, grace, poll); err != nil {
				return inst, fmt.Errorf("stopping discovered instance: %w", err)
			}
			logger.Info("Game instance captured.", "pid", p.PID, "game_dir", inst.GameDir)
			return inst, nil
		}
	}
}

// gameDirArg returns the value following --gameDir, if any.
func gameDirArg(args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "--gameDir" {
			return args[i+1]
		}
	}
	return ""
}
