package mod

import (
	"fmt"

	"github.com/specialistvlad/modbisect/internal/version"
)

// Requirement is a constraint one mod places on another's presence and version.
// On a mod's Dependencies it names the mod depended upon; on Dependents it
// names the mod that depends on this one.
type Requirement struct {
	ModID    string
	Required bool
	Ranges   version.Ranges
}

// NewRequirement parses rangeRaw and builds a requirement on modID.
func NewRequirement(modID string, required bool, rangeRaw string) (*Requirement, error) {
	ranges, err := version.ParseRanges(rangeRaw)
	if err != nil {
		return nil, fmt.Errorf("requirement on %q: %w", modID, err)
	}
	return &Requirement{ModID: modID, Required: required, Ranges: ranges}, nil
}

// Validate reports whether m is the mod this requirement names and its
// version falls in at least one of the acceptable ranges.
func (r *Requirement) Validate(m *Mod) bool {
	if m == nil || m.ID != r.ModID {
		return false
	}
	return r.Ranges.Contains(m.Version)
}

func (r *Requirement) String() string {
	return r.Ranges.String()
}
