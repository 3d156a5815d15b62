package mod

import (
	"errors"
	"fmt"
)

// Change is a single artifact rename performed on a mod.
type Change struct {
	Mod  *Mod
	From State
	To   State
}

// Changes is an ordered record of renames.
type Changes []Change

// Revert undoes every change in reverse order. It attempts all of them and
// joins the errors.
func (c Changes) Revert() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		ch := c[i]
		if ch.Mod.Artifact == nil {
			continue
		}
		if _, err := ch.Mod.Artifact.transition(ch.From); err != nil {
			errs = append(errs, fmt.Errorf("revert %s: %w", ch.Mod.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Mods returns the distinct mods touched, in first-touched order.
func (c Changes) Mods() []*Mod {
	seen := make(map[*Mod]struct{}, len(c))
	out := make([]*Mod, 0, len(c))
	for _, ch := range c {
		if _, ok := seen[ch.Mod]; ok {
			continue
		}
		seen[ch.Mod] = struct{}{}
		out = append(out, ch.Mod)
	}
	return out
}
