package harness

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFile is created in the game directory while a run holds it.
const LockFile = ".modbisect.lock"

// ErrLocked means another run is already toggling mods in the same instance.
var ErrLocked = errors.New("instance is locked by another run")

// Lock takes an exclusive, non-blocking lock on gameDir. Call Unlock on the
// result when the run ends.
func Lock(gameDir string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(gameDir, LockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}
	return fl, nil
}
