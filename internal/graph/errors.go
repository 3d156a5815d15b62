package graph

import (
	"errors"
	"fmt"
)

// ErrDuplicateComponent is wrapped by StructuralError when one mod ID is seeded twice.
var ErrDuplicateComponent = errors.New("component registered twice")

// StructuralError reports a violated registry invariant. It aborts Build.
type StructuralError struct {
	ID  string
	Err error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("graph structure: mod %q: %v", e.ID, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }
