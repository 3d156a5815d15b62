package mod

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateMod is returned when two mods with the same ID are added to a Set.
var ErrDuplicateMod = errors.New("duplicate mod id")

// DisableCascade selects what Disable does to a mod's dependents.
type DisableCascade string

const (
	// CascadeEnableDependents enables every dependent of the disabled mod.
	// This mirrors how the launcher behaves when a user toggles mods by hand
	// and is the default.
	CascadeEnableDependents DisableCascade = "enable-dependents"
	// CascadeNone leaves dependents untouched.
	CascadeNone DisableCascade = "none"
)

// ParseDisableCascade validates a cascade policy name.
func ParseDisableCascade(s string) (DisableCascade, error) {
	switch DisableCascade(s) {
	case CascadeEnableDependents, CascadeNone:
		return DisableCascade(s), nil
	case "":
		return CascadeEnableDependents, nil
	}
	return "", fmt.Errorf("unknown disable cascade %q (want %q or %q)", s, CascadeEnableDependents, CascadeNone)
}

// Set is the registry of all loaded mods, keyed by ID.
type Set struct {
	mods    map[string]*Mod
	order   []string
	cascade DisableCascade
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithCascade sets the disable cascade policy.
func WithCascade(c DisableCascade) SetOption {
	return func(s *Set) { s.cascade = c }
}

// NewSet returns an empty set.
func NewSet(opts ...SetOption) *Set {
	s := &Set{mods: make(map[string]*Mod), cascade: CascadeEnableDependents}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers m. It fails with ErrDuplicateMod if the ID is taken.
func (s *Set) Add(m *Mod) error {
	if _, ok := s.mods[m.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMod, m.ID)
	}
	m.set = s
	s.mods[m.ID] = m
	s.order = append(s.order, m.ID)
	return nil
}

// Remove drops the mod with the given ID, if present.
func (s *Set) Remove(id string) {
	m, ok := s.mods[id]
	if !ok {
		return
	}
	m.set = nil
	delete(s.mods, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get returns the mod with the given ID.
func (s *Set) Get(id string) (*Mod, bool) {
	m, ok := s.mods[id]
	return m, ok
}

// Has reports whether a mod with the given ID is registered.
func (s *Set) Has(id string) bool {
	_, ok := s.mods[id]
	return ok
}

// Len returns the number of registered mods.
func (s *Set) Len() int { return len(s.mods) }

// Cascade returns the disable cascade policy.
func (s *Set) Cascade() DisableCascade { return s.cascade }

// All returns every mod in registration order.
func (s *Set) All() []*Mod {
	out := make([]*Mod, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.mods[id])
	}
	return out
}

// IDs returns every registered ID sorted lexically.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.mods))
	for id := range s.mods {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LinkDependents rebuilds every mod's Dependents from the Dependencies of the
// others. A dependent edge inherits the required flag of its forward edge.
func (s *Set) LinkDependents() {
	for _, m := range s.mods {
		m.Dependents = nil
	}
	for _, id := range s.order {
		m := s.mods[id]
		for _, dep := range m.Dependencies {
			target, ok := s.mods[dep.ModID]
			if !ok {
				continue
			}
			target.Dependents = append(target.Dependents, &Requirement{
				ModID:    m.ID,
				Required: dep.Required,
				Ranges:   dep.Ranges,
			})
		}
	}
}

// Enable lifts the transient marker on each given mod and on every dependency
// present in the set, required or optional, transitively. A mod without an
// artifact of its own is not renamed but its dependencies are still followed,
// which reaches the owning jar of a nested mod. A mod whose artifact has
// vanished from disk is skipped along with its dependencies.
func (s *Set) Enable(mods ...*Mod) (Changes, error) {
	var changes Changes
	visited := make(map[string]struct{})
	stack := make([]*Mod, 0, len(mods))
	for i := len(mods) - 1; i >= 0; i-- {
		stack = append(stack, mods[i])
	}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[m.ID]; ok {
			continue
		}
		visited[m.ID] = struct{}{}
		if m.Artifact != nil {
			if !m.Artifact.Exists() {
				continue
			}
			if from := m.Artifact.State(); from == StateTempDisabled {
				changed, err := m.Artifact.transition(StateEnabled)
				if err != nil {
					return changes, fmt.Errorf("enable %s: %w", m.ID, err)
				}
				if changed {
					changes = append(changes, Change{Mod: m, From: from, To: StateEnabled})
				}
			}
		}
		for i := len(m.Dependencies) - 1; i >= 0; i-- {
			if d, ok := s.mods[m.Dependencies[i].ModID]; ok {
				stack = append(stack, d)
			}
		}
	}
	return changes, nil
}

// Disable places the transient marker on each given mod, then applies the
// cascade policy to its dependents. A mod that is already disabled still
// cascades.
func (s *Set) Disable(mods ...*Mod) (Changes, error) {
	var changes Changes
	for _, m := range mods {
		if m.Artifact == nil || !m.Artifact.Exists() {
			continue
		}
		if from := m.Artifact.State(); from == StateEnabled {
			changed, err := m.Artifact.transition(StateTempDisabled)
			if err != nil {
				return changes, fmt.Errorf("disable %s: %w", m.ID, err)
			}
			if changed {
				changes = append(changes, Change{Mod: m, From: from, To: StateTempDisabled})
			}
		}
		if s.cascade != CascadeEnableDependents {
			continue
		}
		var dependents []*Mod
		for _, r := range m.Dependents {
			if d, ok := s.mods[r.ModID]; ok {
				dependents = append(dependents, d)
			}
		}
		more, err := s.Enable(dependents...)
		changes = append(changes, more...)
		if err != nil {
			return changes, err
		}
	}
	return changes, nil
}

// DisableAll places the transient marker on every enabled mod without any
// cascade. It is the baseline every search starts from.
func (s *Set) DisableAll() (Changes, error) {
	var changes Changes
	for _, m := range s.All() {
		if m.Artifact == nil || m.Artifact.State() != StateEnabled {
			continue
		}
		changed, err := m.Artifact.transition(StateTempDisabled)
		if err != nil {
			return changes, fmt.Errorf("disable %s: %w", m.ID, err)
		}
		if changed {
			changes = append(changes, Change{Mod: m, From: StateEnabled, To: StateTempDisabled})
		}
	}
	return changes, nil
}

// RestoreAll lifts every transient marker in the set without cascading. It
// returns how many mods were restored.
func (s *Set) RestoreAll() (int, error) {
	var (
		n    int
		errs []error
	)
	for _, m := range s.All() {
		if m.Artifact == nil || m.Artifact.State() != StateTempDisabled {
			continue
		}
		changed, err := m.Artifact.transition(StateEnabled)
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", m.ID, err))
			continue
		}
		if changed {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// SetPermanent moves a mod between enabled and the user-owned disabled marker.
func (s *Set) SetPermanent(m *Mod, enabled bool) (bool, error) {
	if m.Artifact == nil {
		return false, fmt.Errorf("mod %s has no file of its own", m.ID)
	}
	to := StateDisabled
	if enabled {
		to = StateEnabled
	}
	return m.Artifact.transition(to)
}

// Validate links dependents and checks every requirement against the set.
// A version mismatch is recorded on the mod depended upon; a missing required
// dependency is recorded on the mod that needs it unless its ID is reserved.
// Call it once per load: errors accumulate on top of loader errors. It returns
// the mods that carry errors, in registration order.
func (s *Set) Validate(reserved ...string) []*Mod {
	skip := make(map[string]struct{}, len(reserved))
	for _, id := range reserved {
		skip[id] = struct{}{}
	}
	s.LinkDependents()
	for _, m := range s.All() {
		for _, dep := range m.Dependencies {
			target, ok := s.mods[dep.ModID]
			switch {
			case !ok:
				if _, exempt := skip[dep.ModID]; !exempt && dep.Required {
					m.AddError(fmt.Sprintf("requires %s %s, which is not installed", dep.ModID, dep.String()))
				}
			case !dep.Validate(target):
				target.AddError(fmt.Sprintf("%s requires version %s, but %s is installed", m.ID, dep.String(), target.Version.Raw()))
			}
		}
	}
	var bad []*Mod
	for _, m := range s.All() {
		if len(m.Errors) > 0 {
			bad = append(bad, m)
		}
	}
	return bad
}
