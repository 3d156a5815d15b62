package modpack

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/specialistvlad/modbisect/internal/version"
)

// ErrBadOverride is returned for malformed override lists.
var ErrBadOverride = errors.New("invalid override")

// ParseVersionOverrides parses "modid=version[,modid=version...]".
func ParseVersionOverrides(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, ver, ok := strings.Cut(item, "=")
		id, ver = strings.TrimSpace(id), strings.TrimSpace(ver)
		if !ok || id == "" || ver == "" {
			return nil, fmt.Errorf("%w: %q, want modid=version", ErrBadOverride, item)
		}
		out[id] = ver
	}
	return out, nil
}

// ParseIDList parses "modid[,modid...]".
func ParseIDList(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// OverrideVersions replaces the version of each listed mod. IDs that are not
// installed become synthetic mods without a file, which lets requirements on
// platform components be satisfied by hand.
func (p *Pack) OverrideVersions(overrides map[string]string) error {
	ids := make([]string, 0, len(overrides))
	for id := range overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		v, err := version.Parse(overrides[id])
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadOverride, id, err)
		}
		if m, ok := p.Set.Get(id); ok {
			m.Version = v
			continue
		}
		if err := p.Set.Add(mod.New(id, id, v)); err != nil {
			return err
		}
	}
	return nil
}

// LieDepends pins every installed dependency of the listed mods to exactly
// the installed version, so those requirements always validate.
func (p *Pack) LieDepends(ids []string) {
	for _, id := range ids {
		m, ok := p.Set.Get(id)
		if !ok {
			continue
		}
		for _, dep := range m.Dependencies {
			if target, ok := p.Set.Get(dep.ModID); ok {
				dep.Ranges = version.Exact(target.Version)
			}
		}
	}
}

// Validate links dependents and records requirement problems on the mods.
// It returns the mods with errors; pack-level problems stay in p.Errors.
func (p *Pack) Validate(reserved ...string) []*mod.Mod {
	return p.Set.Validate(reserved...)
}

// ProblemCount is the number of mods with errors plus pack-level errors.
func (p *Pack) ProblemCount(bad []*mod.Mod) int {
	return len(bad) + len(p.Errors)
}
