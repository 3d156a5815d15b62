package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// ProcInfo describes one running process.
type ProcInfo struct {
	PID  int
	PPID int
	Name string
	Args []string
}

// ProcessTable lists, measures and signals processes.
type ProcessTable interface {
	List() ([]ProcInfo, error)
	// RSS returns the resident set size of pid in bytes.
	RSS(pid int) (uint64, error)
	// Terminate asks pid to exit. A process that is already gone is not an error.
	Terminate(pid int) error
	// Kill stops pid without giving it a chance to clean up. A process that is
	// already gone is not an error.
	Kill(pid int) error
}

// Match selects the game's processes among all running ones.
type Match struct {
	// Name must be contained in the process name.
	Name string
	// Arg must be contained in at least one argument.
	Arg string
}

// DefaultMatch finds a Minecraft JVM.
var DefaultMatch = Match{Name: "java", Arg: "minecraft"}

// NameMatches reports whether p's name passes the name filter.
func (m Match) NameMatches(p ProcInfo) bool {
	return m.Name == "" || strings.Contains(p.Name, m.Name)
}

// Matches reports whether p passes both filters.
func (m Match) Matches(p ProcInfo) bool {
	if !m.NameMatches(p) || len(p.Args) == 0 {
		return false
	}
	if m.Arg == "" {
		return true
	}
	return slices.ContainsFunc(p.Args, func(a string) bool { return strings.Contains(a, m.Arg) })
}

// procTable reads /proc through procfs.
type procTable struct {
	fs procfs.FS
}

// NewProcessTable returns a ProcessTable backed by the default /proc mount.
func NewProcessTable() (ProcessTable, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("opening procfs: %w", err)
	}
	return &procTable{fs: fs}, nil
}

func (t *procTable) List() ([]ProcInfo, error) {
	procs, err := t.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}
	out := make([]ProcInfo, 0, len(procs))
	for _, p := range procs {
		// Processes may exit while we walk the table.
		stat, err := p.Stat()
		if err != nil {
			continue
		}
		args, _ := p.CmdLine()
		out = append(out, ProcInfo{PID: p.PID, PPID: stat.PPID, Name: stat.Comm, Args: args})
	}
	return out, nil
}

func (t *procTable) RSS(pid int) (uint64, error) {
	p, err := t.fs.Proc(pid)
	if err != nil {
		return 0, err
	}
	stat, err := p.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(stat.ResidentMemory()), nil
}

func (t *procTable) Terminate(pid int) error {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("terminating pid %d: %w", pid, err)
	}
	return nil
}

func (t *procTable) Kill(pid int) error {
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("killing pid %d: %w", pid, err)
	}
	return nil
}

// descendants returns every process in procs below root, at any depth.
func descendants(procs []ProcInfo, root int) []ProcInfo {
	children := make(map[int][]ProcInfo)
	for _, p := range procs {
		children[p.PPID] = append(children[p.PPID], p)
	}
	var out []ProcInfo
	queue := []int{root}
	seen := map[int]bool{root: true}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, c := range children[pid] {
			if seen[c.PID] {
				continue
			}
			seen[c.PID] = true
			out = append(out, c)
			queue = append(queue, c.PID)
		}
	}
	return out
}
