package formats

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnknownHeightmap is returned for files that are neither GND nor GAT.
var ErrUnknownHeightmap = errors.New("unknown heightmap format")

// Heightmap is a row-major grid of height samples.
type Heightmap struct {
	Rows, Cols int
	Samples    []float64
	Spacing    float32 // world units between samples, 0 when the format has none
	Format     string
}

// DecodeHeightmap picks the decoder by extension (".gnd" or ".gat") and
// falls back to sniffing the magic bytes.
func DecodeHeightmap(name string, data []byte) (*Heightmap, error) {
	format := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	if format != ".gnd" && format != ".gat" && len(data) >= 4 {
		switch string(data[:4]) {
		case "GRGN":
			format = ".gnd"
		case "GRAT":
			format = ".gat"
		}
	}

	switch format {
	case ".gnd":
		gnd, err := ParseGND(data)
		if err != nil {
			return nil, err
		}
		rows, cols, samples := gnd.Samples()
		return &Heightmap{Rows: rows, Cols: cols, Samples: samples, Spacing: gnd.Zoom, Format: "gnd"}, nil
	case ".gat":
		gat, err := ParseGAT(data)
		if err != nil {
			return nil, err
		}
		rows, cols, samples := gat.Samples()
		return &Heightmap{Rows: rows, Cols: cols, Samples: samples, Format: "gat"}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownHeightmap, name)
}

// Range returns the lowest and highest sample.
func (h *Heightmap) Range() (lo, hi float64) {
	if len(h.Samples) == 0 {
		return 0, 0
	}
	lo, hi = h.Samples[0], h.Samples[0]
	for _, v := range h.Samples[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
