package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"golang.org/x/sys/unix"
)

// Kill stops the spawned command's process group and every tracked game
// process, and returns once they are gone or have been killed. Processes that
// already exited are skipped. Kill is a no-op when nothing is running.
func (h *Harness) Kill(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	if h.Running() {
		pid := h.cmd.Process.Pid
		if err := signalGroup(pid, unix.SIGTERM); err != nil {
			errs = append(errs, err)
		}
		if !h.awaitExit(ctx, h.cfg.KillGrace) {
			logger.Warn("Application ignored SIGTERM; killing it.", "pid", pid, "grace", h.cfg.KillGrace)
			if err := signalGroup(pid, unix.SIGKILL); err != nil {
				errs = append(errs, err)
			}
			h.awaitExit(ctx, h.cfg.KillGrace)
		}
	}

	if h.procs != nil && len(h.others) > 0 {
		if err := stopProcesses(ctx, h.procs, h.others, h.cfg.KillGrace, h.cfg.PollInterval); err != nil {
			errs = append(errs, err)
		}
	}
	h.others = nil
	return errors.Join(errs...)
}

// stopProcesses terminates pids and polls procs until none of them is listed.
// Whatever is still running after grace is killed and waited for once more.
func stopProcesses(ctx context.Context, procs ProcessTable, pids []int, grace, poll time.Duration) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, pid := range pids {
		if err := procs.Terminate(pid); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("Terminated game process.", "pid", pid)
	}
	alive := awaitGone(ctx, procs, pids, grace, poll)
	if len(alive) == 0 {
		return errors.Join(errs...)
	}
	logger.Warn("Game processes ignored SIGTERM; killing them.", "pids", alive, "grace", grace)
	for _, pid := range alive {
		if err := procs.Kill(pid); err != nil {
			errs = append(errs, err)
		}
	}
	if alive = awaitGone(ctx, procs, alive, grace, poll); len(alive) > 0 {
		errs = append(errs, fmt.Errorf("game processes still running: %v", alive))
	}
	return errors.Join(errs...)
}

// awaitGone returns the pids still listed once all are gone, d has elapsed, or
// ctx is done. A table that cannot be read counts as empty.
func awaitGone(ctx context.Context, procs ProcessTable, pids []int, d, poll time.Duration) []int {
	poll = max(poll, 10*time.Millisecond)
	deadline := time.Now().Add(d)
	for {
		current, err := procs.List()
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Failed to list processes.", "error", err)
			return nil
		}
		var alive []int
		for _, p := range current {
			if slices.Contains(pids, p.PID) {
				alive = append(alive, p.PID)
			}
		}
		remaining := time.Until(deadline)
		if len(alive) == 0 || remaining <= 0 {
			return alive
		}
		if err := sleep(ctx, min(poll, remaining)); err != nil {
			return alive
		}
	}
}

func (h *Harness) awaitExit(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-h.exited:
		return true
	case <-ctx.Done():
		return false
	case <-t.C:
		return false
	}
}

// signalGroup signals the process group led by pid, treating ESRCH as success.
func signalGroup(pid int, sig unix.Signal) error {
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal %v to group %d: %w", sig, pid, err)
	}
	return nil
}

// knownPIDs lists the processes matching the name filter before a boot so
// they are never mistaken for the game.
func (h *Harness) knownPIDs(ctx context.Context) map[int]bool {
	known := make(map[int]bool)
	if h.procs == nil {
		return known
	}
	procs, err := h.procs.List()
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Failed to list processes.", "error", err)
		return known
	}
	for _, p := range procs {
		if h.cfg.Match.NameMatches(p) {
			known[p.PID] = true
		}
	}
	return known
}

// trackOthers records the spawned command's descendants and any new process
// matching the game heuristic, so Kill can reach a JVM the launcher detached.
func (h *Harness) trackOthers(ctx context.Context, known map[int]bool) {
	if h.procs == nil || h.cmd == nil {
		return
	}
	procs, err := h.procs.List()
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Failed to list processes.", "error", err)
		return
	}
	root := h.cmd.Process.Pid
	seen := make(map[int]bool)
	for _, p := range descendants(procs, root) {
		seen[p.PID] = true
		h.others = append(h.others, p.PID)
	}
	for _, p := range procs {
		if p.PID == root || seen[p.PID] || known[p.PID] {
			continue
		}
		if h.cfg.Match.Matches(p) {
			h.others = append(h.others, p.PID)
		}
	}
	if len(h.others) > 0 {
		ctxlog.FromContext(ctx).Debug("Tracking game processes.", "pids", h.others)
	}
}

// sampleMemory records the peak combined RSS of the command and tracked processes.
func (h *Harness) sampleMemory(stats *Stats) {
	if h.procs == nil || h.cmd == nil {
		return
	}
	var total uint64
	for _, pid := range append([]int{h.cmd.Process.Pid}, h.others...) {
		if rss, err := h.procs.RSS(pid); err == nil {
			total += rss
		}
	}
	stats.Memory = max(stats.Memory, total)
}
