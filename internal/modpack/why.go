package modpack

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/modbisect/internal/mod"
)

// ErrUnknownMod is returned when a requested mod ID is not installed.
var ErrUnknownMod = errors.New("mod not found")

// Edge is one requirement seen from the mod being explained.
type Edge struct {
	ModID     string
	Name      string
	Required  bool
	Installed bool
	Versions  string
	// Satisfied reports whether the version side of the requirement holds.
	Satisfied bool
}

// Why explains a mod's place in the requirement graph.
type Why struct {
	Mod          *mod.Mod
	Dependencies []Edge
	Dependents   []Edge
}

// WhyDepends lists what id requires and what requires it. With onlyErrors,
// only unsatisfied requirements are listed. Validate must have run first so
// dependents are linked.
func (p *Pack) WhyDepends(id string, onlyErrors bool) (*Why, error) {
	m, ok := p.Set.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMod, id)
	}
	w := &Why{Mod: m}
	for _, req := range m.Dependencies {
		e := Edge{ModID: req.ModID, Name: req.ModID, Required: req.Required, Versions: req.String()}
		if target, ok := p.Set.Get(req.ModID); ok {
			e.Name, e.Installed, e.Satisfied = target.Name, true, req.Validate(target)
		}
		if !onlyErrors || !e.Satisfied {
			w.Dependencies = append(w.Dependencies, e)
		}
	}
	for _, req := range m.Dependents {
		e := Edge{ModID: req.ModID, Name: req.ModID, Required: req.Required, Versions: req.String()}
		if dependent, ok := p.Set.Get(req.ModID); ok {
			e.Name, e.Installed = dependent.Name, true
		}
		e.Satisfied = req.Ranges.Contains(m.Version)
		if !onlyErrors || !e.Satisfied {
			w.Dependents = append(w.Dependents, e)
		}
	}
	return w, nil
}
