package edit

import "github.com/Faultbox/terrasync/internal/heightfield"

// Diff records one edit: the affected rect and the samples before and
// after, both row-major within Rect. A Diff is never modified after it is
// produced; callers must not write to its slices.
type Diff struct {
	Rect   heightfield.Rect
	Before []float64
	After  []float64
}

// Inverse returns the diff that undoes d.
func (d Diff) Inverse() Diff {
	return Diff{Rect: d.Rect, Before: d.After, After: d.Before}
}

// Empty reports whether the diff covers no samples.
func (d Diff) Empty() bool {
	return d.Rect.Empty() || len(d.After) == 0
}

// Changed reports whether any sample actually differs.
func (d Diff) Changed() bool {
	for i := range d.After {
		if d.Before[i] != d.After[i] {
			return true
		}
	}
	return false
}

// At returns the before and after values at (row, col).
func (d Diff) At(row, col int) (before, after float64, ok bool) {
	if !d.Rect.Contains(row, col) {
		return 0, 0, false
	}
	i := (row-d.Rect.MinRow)*d.Rect.Cols() + (col - d.Rect.MinCol)
	return d.Before[i], d.After[i], true
}
