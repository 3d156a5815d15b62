package mod

import (
	"github.com/specialistvlad/modbisect/internal/version"
)

// Mod is one independently toggleable component.
type Mod struct {
	ID      string
	Name    string
	Version version.Version

	// Artifact is nil for mods with no jar of their own: synthetic platform
	// components and mods nested inside another mod's jar.
	Artifact *Artifact

	// Parent is the mod whose jar contains this one, if nested.
	Parent *Mod

	// Dependencies are requirements this mod places on others.
	Dependencies []*Requirement
	// Dependents are the reverse edges: requirements others place on this mod.
	Dependents []*Requirement

	// Errors collects validation messages; see Set.Validate.
	Errors []string

	set *Set
}

// New returns a mod with no artifact.
func New(id, name string, v version.Version) *Mod {
	return &Mod{ID: id, Name: name, Version: v}
}

// FileName returns the artifact's current name, or NoFile.
func (m *Mod) FileName() string {
	if m.Artifact == nil {
		return NoFile
	}
	return m.Artifact.Name()
}

// JarName names the jar m ships in, following nested mods to their owner.
func (m *Mod) JarName() string {
	for m.Artifact == nil && m.Parent != nil {
		m = m.Parent
	}
	return m.FileName()
}

// State returns the artifact state. Mods without an artifact are always
// considered enabled: their presence follows their container or the platform.
func (m *Mod) State() State {
	if m.Artifact == nil {
		return StateEnabled
	}
	return m.Artifact.State()
}

// Enabled reports whether the mod would be loaded by the next boot.
func (m *Mod) Enabled() bool { return m.State() == StateEnabled }

// DependsOn returns the dependency requirement naming id, if any.
func (m *Mod) DependsOn(id string) (*Requirement, bool) {
	for _, r := range m.Dependencies {
		if r.ModID == id {
			return r, true
		}
	}
	return nil, false
}

// Enable lifts the transient marker on m and on every dependency present in
// its set, transitively.
func (m *Mod) Enable() (Changes, error) {
	return m.owner().Enable(m)
}

// Disable places the transient marker on m and applies the set's cascade
// policy to m's dependents.
func (m *Mod) Disable() (Changes, error) {
	return m.owner().Disable(m)
}

func (m *Mod) owner() *Set {
	if m.set == nil {
		s := NewSet()
		m.set = s
		s.mods[m.ID] = m
		s.order = append(s.order, m.ID)
	}
	return m.set
}

// AddError records a problem found with m.
func (m *Mod) AddError(msg string) {
	m.Errors = append(m.Errors, msg)
}
