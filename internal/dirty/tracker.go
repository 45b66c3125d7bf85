// Package dirty tracks which rectangles of a height field need remeshing.
package dirty

import (
	"sort"
	"sync"

	"github.com/Faultbox/terrasync/internal/heightfield"
)

// Region is a set of rects with no two members overlapping or sharing an edge.
type Region []heightfield.Rect

// Area returns the number of samples covered by the region.
func (r Region) Area() int {
	total := 0
	for _, rect := range r {
		total += rect.Area()
	}
	return total
}

// Bounds returns the bounding rect of every member.
func (r Region) Bounds() heightfield.Rect {
	var b heightfield.Rect
	for i, rect := range r {
		if i == 0 {
			b = rect
			continue
		}
		b = b.Union(rect)
	}
	return b
}

// Tracker accumulates dirty rects and coalesces them eagerly.
// All methods are safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	rects []heightfield.Rect
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// MarkDirty inserts r and merges it with every rect it overlaps or touches
// along an edge, repeating until no further merge applies. Empty rects are
// ignored.
func (t *Tracker) MarkDirty(r heightfield.Rect) {
	if r.Empty() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Each merge can grow r enough to reach rects that were skipped
	// earlier in the pass, so rescan until a pass absorbs nothing.
	for {
		merged := false
		kept := t.rects[:0]
		for _, existing := range t.rects {
			if existing.Overlaps(r) || existing.Adjacent(r) {
				r = r.Union(existing)
				merged = true
				continue
			}
			kept = append(kept, existing)
		}
		t.rects = kept
		if !merged {
			break
		}
	}
	t.rects = append(t.rects, r)
}

// Drain returns the current set and clears it in one critical section,
// so a MarkDirty racing with Drain lands either in the returned set or in
// the tracker, never in neither.
func (t *Tracker) Drain() Region {
	t.mu.Lock()
	out := t.rects
	t.rects = nil
	t.mu.Unlock()

	sortRects(out)
	return Region(out)
}

// Peek returns a sorted copy of the current set without clearing it.
func (t *Tracker) Peek() Region {
	t.mu.Lock()
	out := make([]heightfield.Rect, len(t.rects))
	copy(out, t.rects)
	t.mu.Unlock()

	sortRects(out)
	return Region(out)
}

// Len returns the number of rects pending.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rects)
}

// Empty reports whether nothing is pending.
func (t *Tracker) Empty() bool {
	return t.Len() == 0
}

// Area returns the number of samples pending.
func (t *Tracker) Area() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Region(t.rects).Area()
}

// sortRects orders rects row-major by their top-left corner so drained
// regions are meshed in a stable order.
func sortRects(rects []heightfield.Rect) {
	sort.Slice(rects, func(i, j int) bool {
		if rects[i].MinRow != rects[j].MinRow {
			return rects[i].MinRow < rects[j].MinRow
		}
		return rects[i].MinCol < rects[j].MinCol
	})
}
