package modpack

import (
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/modbisect/internal/fsutil"
	"github.com/specialistvlad/modbisect/internal/mod"
)

// EnableAll lifts both disabled markers from every jar in modsDir.
func EnableAll(modsDir string) (int, error) {
	return moveAll(modsDir, mod.StateEnabled, mod.StateTempDisabled, mod.StateDisabled)
}

// DisableAll gives every jar in modsDir the user's permanent disabled marker.
func DisableAll(modsDir string) (int, error) {
	return moveAll(modsDir, mod.StateDisabled, mod.StateEnabled, mod.StateTempDisabled)
}

// Clean lifts the transient marker a search leaves on jars, typically after an
// interrupted run. User-disabled jars are left alone.
func Clean(modsDir string) (int, error) {
	return moveAll(modsDir, mod.StateEnabled, mod.StateTempDisabled)
}

// moveAll renames every jar whose state is one of from into to.
func moveAll(modsDir string, to mod.State, from ...mod.State) (int, error) {
	names, err := fsutil.ListFiles(modsDir, mod.JarSuffix, mod.JarSuffix+mod.TempDisabledSuffix, mod.JarSuffix+mod.DisabledSuffix)
	if err != nil {
		return 0, fmt.Errorf("listing mods: %w", err)
	}
	var (
		n    int
		errs []error
	)
	for _, name := range names {
		if !slices.Contains(from, mod.StateOf(name)) {
			continue
		}
		changed, err := mod.NewArtifact(modsDir, name).SetState(to)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			n++
		}
	}
	return n, errors.Join(errs...)
}
