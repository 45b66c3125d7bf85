// Package formats imports height data from Ragnarok Online ground files.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// GND format errors.
var (
	ErrInvalidGNDMagic       = errors.New("invalid GND magic: expected 'GRGN'")
	ErrUnsupportedGNDVersion = errors.New("unsupported GND version")
	ErrTruncatedGNDData      = errors.New("truncated GND data")
	ErrInvalidGNDSize        = errors.New("invalid GND dimensions")
)

// MaxGNDDimension bounds the tile grid accepted by ParseGND.
const MaxGNDDimension = 1024

const (
	gndHeaderSize  = 18 // magic, version, width, height, zoom
	gndSurfaceSize = 40 // 4 U, 4 V, texture id, lightmap id, BGRA
)

// GNDVersion represents the GND file version.
type GNDVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GNDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GNDTile is one ground cell as stored on disk.
type GNDTile struct {
	Altitude     [4]float32 // bottom-left, bottom-right, top-left, top-right
	TopSurface   int32      // -1 = none
	FrontSurface int32
	RightSurface int32
}

// GND holds the parts of a ground file needed to build a height field.
// Textures, lightmaps and surfaces are skipped.
type GND struct {
	Version  GNDVersion
	Width    uint32 // tiles along X (columns)
	Height   uint32 // tiles along Y (rows)
	Zoom     float32
	Textures []string
	Tiles    []GNDTile
}

// GetTile returns the tile at column x, row y, or nil when out of bounds.
func (g *GND) GetTile(x, y int) *GNDTile {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Tiles[y*int(g.Width)+x]
}

// AltitudeRange returns the minimum and maximum raw corner altitude.
func (g *GND) AltitudeRange() (lo, hi float32) {
	if len(g.Tiles) == 0 {
		return 0, 0
	}
	lo, hi = g.Tiles[0].Altitude[0], g.Tiles[0].Altitude[0]
	for _, tile := range g.Tiles {
		for _, h := range tile.Altitude {
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

// Samples returns one height sample per tile in row-major order: the mean
// of the tile's four corners, negated so that larger values are higher
// (ground files store altitude with Y pointing down).
func (g *GND) Samples() (rows, cols int, samples []float64) {
	rows, cols = int(g.Height), int(g.Width)
	samples = make([]float64, 0, rows*cols)
	for _, tile := range g.Tiles {
		sum := float64(tile.Altitude[0]) + float64(tile.Altitude[1]) +
			float64(tile.Altitude[2]) + float64(tile.Altitude[3])
		samples = append(samples, -sum/4)
	}
	return rows, cols, samples
}

// ParseGND parses a GND file from raw bytes.
func ParseGND(data []byte) (*GND, error) {
	if len(data) < gndHeaderSize {
		return nil, ErrTruncatedGNDData
	}
	if string(data[0:4]) != "GRGN" {
		return nil, ErrInvalidGNDMagic
	}

	version := GNDVersion{Major: data[4], Minor: data[5]}
	if version.Major != 1 || version.Minor < 5 || version.Minor > 9 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, version)
	}

	r := bytes.NewReader(data[6:])
	var header struct {
		Width, Height uint32
		Zoom          float32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedGNDData)
	}
	if header.Width == 0 || header.Height == 0 || header.Width > MaxGNDDimension || header.Height > MaxGNDDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGNDSize, header.Width, header.Height)
	}

	gnd := &GND{
		Version: version,
		Width:   header.Width,
		Height:  header.Height,
		Zoom:    header.Zoom,
	}

	textures, err := readGNDTextures(r)
	if err != nil {
		return nil, err
	}
	gnd.Textures = textures

	var lightmaps struct {
		Count, Width, Height, Cells uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &lightmaps); err != nil {
		return nil, fmt.Errorf("%w: reading lightmap header", ErrTruncatedGNDData)
	}
	// Each lightmap holds one brightness byte and three color bytes per pixel.
	pixels := int64(lightmaps.Width) * int64(lightmaps.Height) * int64(lightmaps.Cells)
	if err := skip(r, int64(lightmaps.Count)*pixels*4, "lightmaps"); err != nil {
		return nil, err
	}

	var surfaceCount uint32
	if err := binary.Read(r, binary.LittleEndian, &surfaceCount); err != nil {
		return nil, fmt.Errorf("%w: reading surface count", ErrTruncatedGNDData)
	}
	if err := skip(r, int64(surfaceCount)*gndSurfaceSize, "surfaces"); err != nil {
		return nil, err
	}

	gnd.Tiles = make([]GNDTile, header.Width*header.Height)
	if err := binary.Read(r, binary.LittleEndian, gnd.Tiles); err != nil {
		return nil, fmt.Errorf("%w: reading %d tiles", ErrTruncatedGNDData, len(gnd.Tiles))
	}
	return gnd, nil
}

func readGNDTextures(r *bytes.Reader) ([]string, error) {
	var header struct {
		Count, NameLen uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading texture header", ErrTruncatedGNDData)
	}
	if int64(header.Count)*int64(header.NameLen) > int64(r.Len()) {
		return nil, fmt.Errorf("%w: %d texture names of %d bytes", ErrTruncatedGNDData, header.Count, header.NameLen)
	}

	textures := make([]string, header.Count)
	name := make([]byte, header.NameLen)
	for i := range textures {
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("%w: reading texture %d name", ErrTruncatedGNDData, i)
		}
		if idx := bytes.IndexByte(name, 0); idx >= 0 {
			textures[i] = string(name[:idx])
		} else {
			textures[i] = string(name)
		}
	}
	return textures, nil
}

func skip(r *bytes.Reader, n int64, what string) error {
	if n > int64(r.Len()) {
		return fmt.Errorf("%w: %s need %d bytes, %d left", ErrTruncatedGNDData, what, n, r.Len())
	}
	_, err := r.Seek(n, io.SeekCurrent)
	return err
}

// ParseGNDFile parses a GND file from disk.
func ParseGNDFile(path string) (*GND, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GND file: %w", err)
	}
	return ParseGND(data)
}
