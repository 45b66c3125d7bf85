package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// GAT format errors.
var (
	ErrInvalidGATMagic       = errors.New("invalid GAT magic: expected 'GRAT'")
	ErrUnsupportedGATVersion = errors.New("unsupported GAT version")
	ErrTruncatedGATData      = errors.New("truncated GAT data")
	ErrInvalidGATSize        = errors.New("invalid GAT dimensions")
)

// MaxGATDimension bounds the cell grid accepted by ParseGAT.
const MaxGATDimension = 4096

const gatHeaderSize = 14 // magic, version, width, height

// GATVersion represents the GAT file version.
type GATVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GATVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GATCell is one altitude cell as stored on disk. Type is the walkability
// flag of the game, kept as read.
type GATCell struct {
	Heights [4]float32 // bottom-left, bottom-right, top-left, top-right
	Type    uint32
}

// GAT is a parsed ground altitude table: a finer, per-cell altitude grid
// than the ground mesh.
type GAT struct {
	Version GATVersion
	Width   uint32
	Height  uint32
	Cells   []GATCell
}

// Samples returns one height sample per cell in row-major order, negated
// so that larger values are higher.
func (g *GAT) Samples() (rows, cols int, samples []float64) {
	rows, cols = int(g.Height), int(g.Width)
	samples = make([]float64, 0, rows*cols)
	for _, c := range g.Cells {
		sum := float64(c.Heights[0]) + float64(c.Heights[1]) +
			float64(c.Heights[2]) + float64(c.Heights[3])
		samples = append(samples, -sum/4)
	}
	return rows, cols, samples
}

// ParseGAT parses a GAT file from raw bytes.
func ParseGAT(data []byte) (*GAT, error) {
	if len(data) < gatHeaderSize {
		return nil, ErrTruncatedGATData
	}
	if string(data[0:4]) != "GRAT" {
		return nil, ErrInvalidGATMagic
	}

	// Version is stored as [minor, major]; the cell layout is the same for 1.x to 3.x.
	version := GATVersion{Major: data[5], Minor: data[4]}
	if version.Major < 1 || version.Major > 3 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGATVersion, version)
	}

	width := binary.LittleEndian.Uint32(data[6:])
	height := binary.LittleEndian.Uint32(data[10:])
	if width == 0 || height == 0 || width > MaxGATDimension || height > MaxGATDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGATSize, width, height)
	}

	gat := &GAT{
		Version: version,
		Width:   width,
		Height:  height,
		Cells:   make([]GATCell, int(width)*int(height)),
	}
	r := bytes.NewReader(data[gatHeaderSize:])
	if err := binary.Read(r, binary.LittleEndian, gat.Cells); err != nil {
		return nil, fmt.Errorf("%w: reading %d cells", ErrTruncatedGATData, len(gat.Cells))
	}
	return gat, nil
}

// ParseGATFile parses a GAT file from disk.
func ParseGATFile(path string) (*GAT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GAT file: %w", err)
	}
	return ParseGAT(data)
}
