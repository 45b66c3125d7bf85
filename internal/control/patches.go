package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/terrasync/internal/heightfield"
	"github.com/Faultbox/terrasync/internal/terrain"
)

// PatchSet is the output of one flush: every patch meshed from the drained
// dirty region, stamped with the generation of the committed edit batch.
type PatchSet struct {
	SessionID  string
	Generation uint64
	Patches    []*terrain.Patch
	Failed     []heightfield.Rect
}

// Stale reports whether a newer batch has been committed since this set
// was produced.
func (ps PatchSet) Stale(current uint64) bool {
	return ps.Generation < current
}

// PartialMeshFailure reports the rects of a flush that could not be
// meshed. Patches for the other rects were still delivered.
type PartialMeshFailure struct {
	Generation uint64
	Failed     []heightfield.Rect
	Causes     []error
}

// Error implements error.
func (e *PartialMeshFailure) Error() string {
	parts := make([]string, len(e.Failed))
	for i, r := range e.Failed {
		parts[i] = r.String()
	}
	return fmt.Sprintf("partial mesh failure at generation %d: %d rect(s) failed: %s",
		e.Generation, len(e.Failed), strings.Join(parts, ", "))
}

// Unwrap exposes the per-rect causes to errors.Is and errors.As.
func (e *PartialMeshFailure) Unwrap() []error {
	return e.Causes
}

// IsPartialMeshFailure reports whether err carries a PartialMeshFailure
// and returns it.
func IsPartialMeshFailure(err error) (*PartialMeshFailure, bool) {
	var pmf *PartialMeshFailure
	if errors.As(err, &pmf) {
		return pmf, true
	}
	return nil, false
}
