// Package terrain turns height field regions into renderable mesh patches.
package terrain

import "github.com/Faultbox/terrasync/internal/heightfield"

// Vertex represents a terrain mesh vertex with all attributes.
type Vertex struct {
	Position [3]float32 `json:"p"`
	Normal   [3]float32 `json:"n"`
	TexCoord [2]float32 `json:"uv"` // normalised over the whole field
}

// Bounds holds the axis-aligned bounding box of a patch.
type Bounds struct {
	Min [3]float32 `json:"min"`
	Max [3]float32 `json:"max"`
}

// Patch holds the mesh data for one dirty rect at one generation.
//
// Vertices cover Domain (the rect grown by one sample on every side and
// clamped to the field) in row-major order, so vertex i belongs to sample
// (Domain.MinRow + i/Domain.Cols(), Domain.MinCol + i%Domain.Cols()).
// Indices form two triangles per cell of Domain and refer to Vertices.
type Patch struct {
	Rect       heightfield.Rect `json:"rect"`
	Domain     heightfield.Rect `json:"domain"`
	Vertices   []Vertex         `json:"vertices"`
	Indices    []uint32         `json:"indices"`
	Bounds     Bounds           `json:"bounds"`
	Generation uint64           `json:"generation"`
}

// VertexAt returns the vertex for sample (row, col) if Domain covers it.
func (p *Patch) VertexAt(row, col int) (Vertex, bool) {
	if !p.Domain.Contains(row, col) {
		return Vertex{}, false
	}
	return p.Vertices[(row-p.Domain.MinRow)*p.Domain.Cols()+(col-p.Domain.MinCol)], true
}
