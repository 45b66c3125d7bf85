package terrain

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/terrasync/internal/heightfield"
	"github.com/Faultbox/terrasync/pkg/math"
)

// ErrRegionOutOfBounds means a caller asked for a rect the field does not
// contain. The scheduler only meshes rects produced from diffs, so this
// signals a bug rather than bad user input.
var ErrRegionOutOfBounds = errors.New("mesh region out of bounds")

// Mesher converts height field regions into patches.
type Mesher struct {
	Spacing     float32 // world units between adjacent samples
	HeightScale float32 // world units per sample unit

	// Strict makes out-of-bounds rects fail with ErrRegionOutOfBounds.
	// Otherwise they are clamped to the field and a warning is logged.
	Strict bool

	Log *zap.Logger
}

// NewMesher creates a mesher with the given spacing and height scale.
func NewMesher(spacing, heightScale float32, strict bool, log *zap.Logger) *Mesher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mesher{
		Spacing:     spacing,
		HeightScale: heightScale,
		Strict:      strict,
		Log:         log,
	}
}

// Mesh builds the patch for rect r. The output is a pure function of the
// field contents around r and the mesher settings.
//
// The field is read once into a local snapshot covering the vertex domain
// plus one trailing row and column for the normals, so the field lock is
// never held while triangles are built.
func (m *Mesher) Mesh(f *heightfield.Field, r heightfield.Rect) (*Patch, error) {
	bounds := f.Bounds()
	if !bounds.ContainsRect(r) {
		clamped := r.Clamp(bounds)
		if m.Strict || clamped.Empty() {
			return nil, fmt.Errorf("%w: %s in %dx%d", ErrRegionOutOfBounds, r, f.Rows(), f.Cols())
		}
		m.logger().Warn("clamping mesh region",
			zap.Stringer("rect", r),
			zap.Stringer("clamped", clamped))
		r = clamped
	}

	domain := r.Expand(1).Clamp(bounds)
	read := domain
	read.MaxRow = min(domain.MaxRow+1, bounds.MaxRow)
	read.MaxCol = min(domain.MaxCol+1, bounds.MaxCol)

	samples, err := f.ReadRegion(read)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegionOutOfBounds, err)
	}
	snap := snapshot{rect: read, samples: samples}

	spacing := m.Spacing
	if spacing <= 0 {
		spacing = 1
	}
	scale := m.HeightScale
	if scale == 0 {
		scale = 1
	}
	uDen := float32(max(bounds.MaxCol, 1))
	vDen := float32(max(bounds.MaxRow, 1))

	patch := &Patch{
		Rect:     r,
		Domain:   domain,
		Vertices: make([]Vertex, 0, domain.Area()),
		Bounds: Bounds{
			Min: [3]float32{1e10, 1e10, 1e10},
			Max: [3]float32{-1e10, -1e10, -1e10},
		},
	}

	for row := domain.MinRow; row <= domain.MaxRow; row++ {
		for col := domain.MinCol; col <= domain.MaxCol; col++ {
			h := float32(snap.at(row, col)) * scale
			pos := math.Vec3{X: float32(col) * spacing, Y: h, Z: float32(row) * spacing}

			// Forward differences; the snapshot replicates the last
			// row/column at the field edge.
			dCol := float32(snap.at(row, col+1))*scale - h
			dRow := float32(snap.at(row+1, col))*scale - h
			alongCol := math.Vec3{X: spacing, Y: dCol}
			alongRow := math.Vec3{Y: dRow, Z: spacing}
			normal := alongRow.Cross(alongCol).Normalize()

			patch.Vertices = append(patch.Vertices, Vertex{
				Position: pos.Array(),
				Normal:   normal.Array(),
				TexCoord: [2]float32{float32(col) / uDen, float32(row) / vDen},
			})
			updateBounds(&patch.Bounds, pos.Array())
		}
	}

	patch.Indices = buildIndices(domain)
	return patch, nil
}

func (m *Mesher) logger() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

// buildIndices emits two counter-clockwise (seen from +Y) triangles per cell.
func buildIndices(domain heightfield.Rect) []uint32 {
	cols := domain.Cols()
	cells := (domain.Rows() - 1) * (cols - 1)
	if cells <= 0 {
		return nil
	}
	indices := make([]uint32, 0, cells*6)
	for r := 0; r < domain.Rows()-1; r++ {
		for c := 0; c < cols-1; c++ {
			i0 := uint32(r*cols + c)
			i1 := i0 + 1
			i2 := i0 + uint32(cols)
			i3 := i2 + 1
			indices = append(indices,
				i0, i2, i1,
				i1, i2, i3,
			)
		}
	}
	return indices
}

// snapshot is a private copy of a field region with edge-replicated lookup.
type snapshot struct {
	rect    heightfield.Rect
	samples []float64
}

func (s snapshot) at(row, col int) float64 {
	row = clampi(row, s.rect.MinRow, s.rect.MaxRow)
	col = clampi(col, s.rect.MinCol, s.rect.MaxCol)
	return s.samples[(row-s.rect.MinRow)*s.rect.Cols()+(col-s.rect.MinCol)]
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
