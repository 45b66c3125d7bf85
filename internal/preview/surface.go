// Package preview maintains a full-field vertex buffer that patch sets are
// spliced into, the way a renderer keeps its terrain buffer in sync.
package preview

import (
	"context"
	"fmt"
	"sync"

	"github.com/Faultbox/terrasync/internal/control"
	"github.com/Faultbox/terrasync/internal/heightfield"
	"github.com/Faultbox/terrasync/internal/terrain"
)

// Surface is a rows x cols vertex grid. Each vertex remembers the
// generation it was last written at, so a late patch never overwrites
// newer data.
type Surface struct {
	mu         sync.RWMutex
	rows, cols int
	vertices   []terrain.Vertex
	gens       []uint64
	generation uint64
}

// NewSurface creates an empty surface.
func NewSurface(rows, cols int) (*Surface, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", heightfield.ErrInvalidSize, rows, cols)
	}
	return &Surface{
		rows:     rows,
		cols:     cols,
		vertices: make([]terrain.Vertex, rows*cols),
		gens:     make([]uint64, rows*cols),
	}, nil
}

// Load writes a full-field patch, typically meshed at session start.
func (s *Surface) Load(p *terrain.Patch) error {
	if p.Domain != s.bounds() {
		return fmt.Errorf("%w: patch domain %s does not cover %dx%d surface",
			heightfield.ErrOutOfBounds, p.Domain, s.rows, s.cols)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.splice(p)
	return nil
}

// Stats reports what Apply did with a patch set.
type Stats struct {
	Patches  int // patches spliced in
	Skipped  int // patches older than every vertex they cover
	Vertices int // vertices written
}

// Apply splices every patch of the set into the surface. Vertices already
// written by a newer generation are kept.
func (s *Surface) Apply(set control.PatchSet) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	for _, p := range set.Patches {
		if !s.bounds().ContainsRect(p.Domain) {
			return st, fmt.Errorf("%w: patch domain %s outside %dx%d surface",
				heightfield.ErrOutOfBounds, p.Domain, s.rows, s.cols)
		}
		n := s.splice(p)
		if n == 0 {
			st.Skipped++
			continue
		}
		st.Patches++
		st.Vertices += n
	}
	if set.Generation > s.generation {
		s.generation = set.Generation
	}
	return st, nil
}

func (s *Surface) splice(p *terrain.Patch) int {
	written := 0
	i := 0
	for row := p.Domain.MinRow; row <= p.Domain.MaxRow; row++ {
		for col := p.Domain.MinCol; col <= p.Domain.MaxCol; col++ {
			idx := row*s.cols + col
			if s.gens[idx] <= p.Generation {
				s.vertices[idx] = p.Vertices[i]
				s.gens[idx] = p.Generation
				written++
			}
			i++
		}
	}
	return written
}

func (s *Surface) bounds() heightfield.Rect {
	return heightfield.Rect{MaxRow: s.rows - 1, MaxCol: s.cols - 1}
}

// Generation returns the newest generation applied.
func (s *Surface) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Vertex returns the vertex at (row, col) and the generation it came from.
func (s *Surface) Vertex(row, col int) (terrain.Vertex, uint64, bool) {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return terrain.Vertex{}, 0, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := row*s.cols + col
	return s.vertices[idx], s.gens[idx], true
}

// Vertices returns a copy of the whole vertex grid in row-major order.
func (s *Surface) Vertices() []terrain.Vertex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]terrain.Vertex, len(s.vertices))
	copy(out, s.vertices)
	return out
}

// Follow applies every patch set from ch until it is closed or ctx is
// done. Errors are passed to onErr when it is non-nil.
func (s *Surface) Follow(ctx context.Context, ch <-chan control.PatchSet, onErr func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case set, ok := <-ch:
			if !ok {
				return
			}
			if _, err := s.Apply(set); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
