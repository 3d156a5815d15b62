package harness

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/fsutil"
	"github.com/specialistvlad/modbisect/internal/mod"
	"golang.org/x/sync/errgroup"
)

// ErrNoCommand is returned by Test when no command is configured.
var ErrNoCommand = errors.New("no launch command configured")

// ErrBusy is returned when a boot is requested while another is in flight.
var ErrBusy = errors.New("application already running")

// DefaultLogFiles are the log files scanned for a symptom, relative to LogsDir.
var DefaultLogFiles = []string{"latest.log", "debug.log", "latest_stdout.log"}

// Config describes how to boot the application and where it leaves evidence.
type Config struct {
	Command  []string
	WorkDir  string
	CrashDir string
	LogsDir  string
	LogFiles []string

	Match Match

	// PollInterval paces liveness checks and memory sampling.
	PollInterval time.Duration
	// SettleDelay is waited after spawn before looking for the game's JVM,
	// and after a failed boot so crash reports can finish writing.
	SettleDelay time.Duration
	// KillGrace is how long a terminated process gets before it is killed.
	KillGrace time.Duration
	// LogTailBytes limits how much of each log is read.
	LogTailBytes int64
}

// DefaultConfig returns the standard timings for an instance rooted at gameDir.
func DefaultConfig(gameDir string, command []string) Config {
	return Config{
		Command:      command,
		WorkDir:      gameDir,
		CrashDir:     filepath.Join(gameDir, "crash-reports"),
		LogsDir:      filepath.Join(gameDir, "logs"),
		LogFiles:     DefaultLogFiles,
		Match:        DefaultMatch,
		PollInterval: time.Second,
		SettleDelay:  3 * time.Second,
		KillGrace:    10 * time.Second,
		LogTailBytes: 4 << 20,
	}
}

// Harness runs the application. It is not safe for concurrent boots.
type Harness struct {
	cfg     Config
	procs   ProcessTable
	history History

	cmd      *exec.Cmd
	exited   chan struct{}
	exitCode int
	stdout   *tailBuffer
	others   []int
}

// New returns a harness. procs may be nil, in which case memory is not
// sampled and no extra processes are tracked.
func New(cfg Config, procs ProcessTable) *Harness {
	return &Harness{cfg: cfg, procs: procs}
}

// History returns every Stats recorded so far.
func (h *Harness) History() []Stats { return h.history.All() }

// Running reports whether the spawned command has not been reaped yet.
func (h *Harness) Running() bool {
	if h.cmd == nil {
		return false
	}
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// Test boots the application with mods enabled and waits until it exits or
// timeout elapses. A timeout is recorded with ReturnCode -1 and TimedOut set.
// Crash reports that appear in CrashDir during the run are recorded. The
// application is stopped before Test returns. Errors are returned only when
// the command cannot be started or ctx is cancelled.
func (h *Harness) Test(ctx context.Context, timeout time.Duration, mods []*mod.Mod) (Stats, error) {
	logger := ctxlog.FromContext(ctx)
	if len(h.cfg.Command) == 0 {
		return Stats{}, ErrNoCommand
	}
	if h.Running() {
		return Stats{}, ErrBusy
	}

	stats := Stats{ReturnCode: 0, StartedAt: time.Now()}
	for _, m := range mods {
		stats.ModIDs = append(stats.ModIDs, m.ID)
	}

	known := h.knownPIDs(ctx)
	crashes, err := fsutil.TakeSnapshot(h.cfg.CrashDir)
	if err != nil {
		return Stats{}, fmt.Errorf("snapshot crash reports: %w", err)
	}
	if err := h.spawn(); err != nil {
		return Stats{}, err
	}
	logger.Debug("Application started.", "pid", h.cmd.Process.Pid, "mods", len(mods), "timeout", timeout)

	if err := h.wait(ctx, timeout, known, &stats); err != nil {
		return stats, err
	}

	if stats.TimedOut || stats.ReturnCode != 0 {
		if err := sleep(ctx, h.cfg.SettleDelay); err != nil {
			return stats, err
		}
	}
	newCrashes, err := crashes.NewEntries(h.cfg.CrashDir)
	if err != nil {
		logger.Warn("Failed to list crash reports.", "dir", h.cfg.CrashDir, "error", err)
	}
	if len(newCrashes) > 0 {
		stats.CrashReport = newCrashes[0]
		text, err := fsutil.Tail(filepath.Join(h.cfg.CrashDir, stats.CrashReport), h.cfg.LogTailBytes)
		if err != nil {
			logger.Warn("Failed to read crash report.", "file", stats.CrashReport, "error", err)
		}
		stats.CrashLog = string(text)
	}
	stats.Succeeded = !stats.TimedOut && stats.ReturnCode == 0 && stats.CrashReport == ""

	h.history.Append(stats)
	logger.Debug("Application stopped.",
		"succeeded", stats.Succeeded,
		"timed_out", stats.TimedOut,
		"return_code", stats.ReturnCode,
		"crash_report", stats.CrashReport,
		"boot_time", stats.BootTime,
		"memory", stats.Memory,
	)
	return stats, nil
}

// TestForError boots like Test and reports whether symptom appears in the
// crash evidence, the known log files, or the application's own output. A
// successful boot never reproduces a symptom.
func (h *Harness) TestForError(ctx context.Context, symptom string, timeout time.Duration, mods []*mod.Mod) (bool, error) {
	stats, err := h.Test(ctx, timeout, mods)
	if err != nil {
		return false, err
	}
	if stats.Succeeded {
		return false, nil
	}
	return strings.Contains(h.Evidence(ctx, stats), symptom), nil
}

// Evidence concatenates the crash report with the tail of every known log
// file and the captured output of the last run.
func (h *Harness) Evidence(ctx context.Context, stats Stats) string {
	var b strings.Builder
	b.WriteString(stats.CrashLog)
	for _, name := range h.cfg.LogFiles {
		text, err := fsutil.Tail(filepath.Join(h.cfg.LogsDir, name), h.cfg.LogTailBytes)
		if err != nil {
			ctxlog.FromContext(ctx).Debug("Skipping unreadable log.", "file", name, "error", err)
			continue
		}
		b.WriteByte('\n')
		b.Write(text)
	}
	if h.stdout != nil {
		b.WriteByte('\n')
		b.WriteString(h.stdout.String())
	}
	return b.String()
}

func (h *Harness) spawn() error {
	cmd := exec.Command(h.cfg.Command[0], h.cfg.Command[1:]...)
	cmd.Dir = h.cfg.WorkDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	h.stdout = newTailBuffer(int(h.cfg.LogTailBytes))
	cmd.Stdout = h.stdout
	cmd.Stderr = h.stdout
	// A detached JVM may inherit the output pipe; stop copying from it once
	// the command itself is gone.
	cmd.WaitDelay = h.cfg.KillGrace
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", h.cfg.Command[0], err)
	}
	h.cmd = cmd
	h.exited = make(chan struct{})
	h.others = nil
	go h.reap(cmd, h.exited)
	return nil
}

// reap waits for cmd and records its exit code before closing exited.
func (h *Harness) reap(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		h.exitCode = 0
	case errors.As(err, &exitErr):
		h.exitCode = exitErr.ExitCode()
	default:
		h.exitCode = -1
	}
	close(exited)
}

// wait blocks until the command exits, timeout elapses, a crash report shows
// up, or ctx is cancelled, and then stops the application. Only cancellation
// is returned as an error.
func (h *Harness) wait(ctx context.Context, timeout time.Duration, known map[int]bool, stats *Stats) error {
	logger := ctxlog.FromContext(ctx)
	watchCtx, stopWatch := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(watchCtx)
	crashed := make(chan string, 1)
	g.Go(func() error {
		return watchCrashes(gctx, h.cfg.CrashDir, crashed)
	})
	defer func() {
		stopWatch()
		if err := g.Wait(); err != nil {
			logger.Debug("Crash watcher stopped with an error.", "error", err)
		}
	}()
	defer func() {
		stats.BootTime = time.Since(stats.StartedAt)
		if err := h.Kill(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to stop the application.", "error", err)
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(h.cfg.PollInterval)
	defer ticker.Stop()
	discoverAt := time.Now().Add(h.cfg.SettleDelay)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.exited:
			stats.ReturnCode = h.exitCode
			return nil
		case name := <-crashed:
			logger.Info("💥 Crash report detected.", "file", name)
			h.sampleMemory(stats)
			// Give the game a moment to finish writing the report and exit.
			settle := time.NewTimer(h.cfg.SettleDelay)
			defer settle.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-h.exited:
				stats.ReturnCode = h.exitCode
			case <-settle.C:
				stats.ReturnCode = -1
			}
			return nil
		case <-timer.C:
			h.sampleMemory(stats)
			stats.TimedOut = true
			stats.ReturnCode = -1
			return nil
		case <-ticker.C:
			if len(h.others) == 0 && time.Now().After(discoverAt) {
				h.trackOthers(ctx, known)
			}
			h.sampleMemory(stats)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
