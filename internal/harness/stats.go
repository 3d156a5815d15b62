package harness

import (
	"sync"
	"time"
)

// Stats records one boot of the application. ReturnCode is the process exit
// code, or -1 when the run was cut short.
type Stats struct {
	ModIDs      []string      `yaml:"mods"`
	Succeeded   bool          `yaml:"succeeded"`
	TimedOut    bool          `yaml:"timed_out"`
	ReturnCode  int           `yaml:"return_code"`
	CrashReport string        `yaml:"crash_report,omitempty"`
	CrashLog    string        `yaml:"crash_log,omitempty"`
	Memory      uint64        `yaml:"memory_bytes"`
	BootTime    time.Duration `yaml:"boot_time"`
	StartedAt   time.Time     `yaml:"started_at"`
}

// Healthy reports whether the boot produced no crash evidence and either
// exited cleanly or was still running when its time ran out.
func (s Stats) Healthy() bool {
	if s.CrashReport != "" || s.CrashLog != "" {
		return false
	}
	return s.ReturnCode == 0 || s.TimedOut
}

// History is an append-only record of every Stats produced by a Harness.
type History struct {
	mu    sync.RWMutex
	stats []Stats
}

// Append records s.
func (h *History) Append(s Stats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = append(h.stats, s)
}

// All returns a copy of every recorded Stats in order.
func (h *History) All() []Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Stats, len(h.stats))
	copy(out, h.stats)
	return out
}

// Len returns the number of recorded runs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.stats)
}
