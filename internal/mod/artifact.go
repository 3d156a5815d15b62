package mod

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File name markers.
const (
	JarSuffix          = ".jar"
	TempDisabledSuffix = ".tempdisabled"
	DisabledSuffix     = ".disabled"
)

// NoFile is displayed for mods that have no artifact of their own.
const NoFile = "[no file]"

// State is the toggle state encoded in an artifact's file name.
type State int

const (
	StateUnknown State = iota
	StateEnabled
	StateTempDisabled
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateTempDisabled:
		return "temp-disabled"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// StateOf classifies a file name by its marker suffix.
func StateOf(name string) State {
	switch {
	case strings.HasSuffix(name, JarSuffix+TempDisabledSuffix):
		return StateTempDisabled
	case strings.HasSuffix(name, JarSuffix+DisabledSuffix):
		return StateDisabled
	case strings.HasSuffix(name, JarSuffix):
		return StateEnabled
	default:
		return StateUnknown
	}
}

// BaseName strips any disabled marker from name.
func BaseName(name string) string {
	name = strings.TrimSuffix(name, TempDisabledSuffix)
	return strings.TrimSuffix(name, DisabledSuffix)
}

// Artifact is the on-disk jar backing a mod.
type Artifact struct {
	dir  string
	name string
}

// NewArtifact returns the artifact currently named name inside dir.
func NewArtifact(dir, name string) *Artifact {
	return &Artifact{dir: dir, name: name}
}

// Dir returns the directory holding the artifact.
func (a *Artifact) Dir() string { return a.dir }

// Name returns the current file name, markers included.
func (a *Artifact) Name() string { return a.name }

// Path returns the current full path.
func (a *Artifact) Path() string { return filepath.Join(a.dir, a.name) }

// State returns the state encoded in the current name.
func (a *Artifact) State() State { return StateOf(a.name) }

// Exists reports whether the artifact is present on disk under its current name.
func (a *Artifact) Exists() bool {
	_, err := os.Stat(a.Path())
	return err == nil
}

func (a *Artifact) nameFor(s State) string {
	base := BaseName(a.name)
	switch s {
	case StateTempDisabled:
		return base + TempDisabledSuffix
	case StateDisabled:
		return base + DisabledSuffix
	default:
		return base
	}
}

// transition renames the artifact into state to. It reports whether a rename
// happened; moving into the current state is a no-op.
func (a *Artifact) transition(to State) (bool, error) {
	if to == StateUnknown {
		return false, fmt.Errorf("artifact %s: cannot transition to unknown state", a.name)
	}
	if a.State() == to {
		return false, nil
	}
	newName := a.nameFor(to)
	if err := os.Rename(a.Path(), filepath.Join(a.dir, newName)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("rename %s -> %s: %w", a.name, newName, err)
	}
	a.name = newName
	return true, nil
}

// SetState renames the artifact into s. It reports whether a rename happened.
// Unlike Set.Enable it never follows requirements.
func (a *Artifact) SetState(s State) (bool, error) {
	return a.transition(s)
}
