package bisect

import (
	"sync"
	"time"
)

// Phase names what the engine is doing.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePreparing Phase = "preparing"
	PhaseClusters  Phase = "clusters"
	PhaseNodes     Phase = "nodes"
	PhaseSurvey    Phase = "survey"
	PhaseRestoring Phase = "restoring"
	PhaseDone      Phase = "done"
)

// Snapshot is a point-in-time view of a running search.
type Snapshot struct {
	RunID      string    `json:"run_id"`
	Phase      Phase     `json:"phase"`
	Symptom    string    `json:"symptom,omitempty"`
	Candidates int       `json:"candidates"`
	Iteration  int       `json:"iteration"`
	Low        int       `json:"low"`
	High       int       `json:"high"`
	Probes     int       `json:"probes"`
	StartedAt  time.Time `json:"started_at"`
}

// Progress is safe for concurrent readers while the engine writes.
type Progress struct {
	mu sync.RWMutex
	s  Snapshot
}

// NewProgress returns an idle tracker.
func NewProgress() *Progress {
	return &Progress{s: Snapshot{Phase: PhaseIdle}}
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.s
}

func (p *Progress) update(fn func(*Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.s)
}
