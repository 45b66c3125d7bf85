package heightfield

import "fmt"

// Rect is an inclusive rectangle of sample coordinates.
type Rect struct {
	MinRow int `json:"min_row"`
	MinCol int `json:"min_col"`
	MaxRow int `json:"max_row"`
	MaxCol int `json:"max_col"`
}

// Cell returns the single-sample rect at (row, col).
func Cell(row, col int) Rect {
	return Rect{MinRow: row, MinCol: col, MaxRow: row, MaxCol: col}
}

// String returns the rect as "[r0..r1]x[c0..c1]".
func (r Rect) String() string {
	return fmt.Sprintf("[%d..%d]x[%d..%d]", r.MinRow, r.MaxRow, r.MinCol, r.MaxCol)
}

// Empty reports whether the rect covers no samples.
func (r Rect) Empty() bool {
	return r.MaxRow < r.MinRow || r.MaxCol < r.MinCol
}

// Rows returns the number of sample rows covered.
func (r Rect) Rows() int {
	if r.Empty() {
		return 0
	}
	return r.MaxRow - r.MinRow + 1
}

// Cols returns the number of sample columns covered.
func (r Rect) Cols() int {
	if r.Empty() {
		return 0
	}
	return r.MaxCol - r.MinCol + 1
}

// Area returns the number of samples covered.
func (r Rect) Area() int {
	return r.Rows() * r.Cols()
}

// Contains reports whether (row, col) lies inside the rect.
func (r Rect) Contains(row, col int) bool {
	return row >= r.MinRow && row <= r.MaxRow && col >= r.MinCol && col <= r.MaxCol
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return !o.Empty() && r.Contains(o.MinRow, o.MinCol) && r.Contains(o.MaxRow, o.MaxCol)
}

// Overlaps reports whether the two rects share at least one sample.
func (r Rect) Overlaps(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.MinRow <= o.MaxRow && o.MinRow <= r.MaxRow &&
		r.MinCol <= o.MaxCol && o.MinCol <= r.MaxCol
}

// Adjacent reports whether the rects touch along an edge without overlapping.
// Rects that only meet at a corner are not adjacent.
func (r Rect) Adjacent(o Rect) bool {
	if r.Empty() || o.Empty() || r.Overlaps(o) {
		return false
	}
	rowsMeet := r.MinRow <= o.MaxRow && o.MinRow <= r.MaxRow
	colsMeet := r.MinCol <= o.MaxCol && o.MinCol <= r.MaxCol
	if rowsMeet && (r.MaxCol+1 == o.MinCol || o.MaxCol+1 == r.MinCol) {
		return true
	}
	if colsMeet && (r.MaxRow+1 == o.MinRow || o.MaxRow+1 == r.MinRow) {
		return true
	}
	return false
}

// Union returns the bounding rect of both rects.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		MinRow: min(r.MinRow, o.MinRow),
		MinCol: min(r.MinCol, o.MinCol),
		MaxRow: max(r.MaxRow, o.MaxRow),
		MaxCol: max(r.MaxCol, o.MaxCol),
	}
}

// Intersect returns the samples shared by both rects (possibly empty).
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		MinRow: max(r.MinRow, o.MinRow),
		MinCol: max(r.MinCol, o.MinCol),
		MaxRow: min(r.MaxRow, o.MaxRow),
		MaxCol: min(r.MaxCol, o.MaxCol),
	}
}

// Expand grows the rect by n samples on every side.
func (r Rect) Expand(n int) Rect {
	return Rect{
		MinRow: r.MinRow - n,
		MinCol: r.MinCol - n,
		MaxRow: r.MaxRow + n,
		MaxCol: r.MaxCol + n,
	}
}

// Clamp is Intersect with the given bounds.
func (r Rect) Clamp(bounds Rect) Rect {
	return r.Intersect(bounds)
}
