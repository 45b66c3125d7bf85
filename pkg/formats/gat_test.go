package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// createTestGAT creates a minimal valid version 1.2 GAT file whose cell
// (x, y) has all four corners at -height(x, y).
func createTestGAT(width, height uint32, heightAt func(x, y int) float32) []byte {
	buf := new(bytes.Buffer)

	// Magic "GRAT"
	buf.WriteString("GRAT")

	// Version 1.2 (stored as minor, major)
	buf.WriteByte(2) // minor
	buf.WriteByte(1) // major

	// Dimensions
	binary.Write(buf, binary.LittleEndian, width)
	binary.Write(buf, binary.LittleEndian, height)

	// Cells
	for y := 0; y < int(height); y++ {
		for x := 0; x < int(width); x++ {
			var h float32
			if heightAt != nil {
				h = -heightAt(x, y)
			}
			binary.Write(buf, binary.LittleEndian, [4]float32{h, h, h, h})
			binary.Write(buf, binary.LittleEndian, uint32(0)) // walkable
		}
	}

	return buf.Bytes()
}

func TestParseGAT_ValidFile(t *testing.T) {
	data := createTestGAT(4, 3, nil)

	gat, err := ParseGAT(data)
	if err != nil {
		t.Fatalf("ParseGAT failed: %v", err)
	}

	if gat.Version.Major != 1 || gat.Version.Minor != 2 {
		t.Errorf("expected version 1.2, got %s", gat.Version)
	}
	if gat.Width != 4 || gat.Height != 3 {
		t.Errorf("expected 4x3 cells, got %dx%d", gat.Width, gat.Height)
	}
	if len(gat.Cells) != 12 {
		t.Errorf("expected 12 cells, got %d", len(gat.Cells))
	}
}

func TestGAT_Samples(t *testing.T) {
	gat, err := ParseGAT(createTestGAT(2, 2, func(x, y int) float32 { return float32(3*y + x) }))
	if err != nil {
		t.Fatalf("ParseGAT failed: %v", err)
	}

	rows, cols, samples := gat.Samples()
	if rows != 2 || cols != 2 {
		t.Fatalf("expected 2x2 samples, got %dx%d", rows, cols)
	}
	want := []float64{0, 1, 3, 4}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], samples[i])
		}
	}
}

func TestParseGAT_Errors(t *testing.T) {
	valid := createTestGAT(2, 2, nil)

	badMagic := bytes.Clone(valid)
	copy(badMagic, "XXXX")

	badVersion := bytes.Clone(valid)
	badVersion[5] = 9

	zeroSize := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(zeroSize[6:], 0)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte("GRAT"), ErrTruncatedGATData},
		{"bad magic", badMagic, ErrInvalidGATMagic},
		{"bad version", badVersion, ErrUnsupportedGATVersion},
		{"zero size", zeroSize, ErrInvalidGATSize},
		{"truncated cells", valid[:len(valid)-3], ErrTruncatedGATData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGAT(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeHeightmap(t *testing.T) {
	gnd := testGND{width: 2, height: 1, altitude: func(x, _ int) [4]float32 {
		h := -float32(x + 1)
		return [4]float32{h, h, h, h}
	}}.build()
	gat := createTestGAT(1, 2, func(_, y int) float32 { return float32(5 * y) })

	tests := []struct {
		name       string
		file       string
		data       []byte
		format     string
		rows, cols int
		lo, hi     float64
		spacing    float32
	}{
		{"gnd by extension", "data\\prontera.GND", gnd, "gnd", 1, 2, 1, 2, 10},
		{"gat by extension", "field.gat", gat, "gat", 2, 1, 0, 5, 0},
		{"gnd by magic", "upload.bin", gnd, "gnd", 1, 2, 1, 2, 10},
		{"gat by magic", "upload", gat, "gat", 2, 1, 0, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm, err := DecodeHeightmap(tt.file, tt.data)
			if err != nil {
				t.Fatalf("DecodeHeightmap failed: %v", err)
			}
			if hm.Format != tt.format || hm.Rows != tt.rows || hm.Cols != tt.cols {
				t.Errorf("got %s %dx%d, want %s %dx%d", hm.Format, hm.Rows, hm.Cols, tt.format, tt.rows, tt.cols)
			}
			if len(hm.Samples) != tt.rows*tt.cols {
				t.Errorf("expected %d samples, got %d", tt.rows*tt.cols, len(hm.Samples))
			}
			if lo, hi := hm.Range(); lo != tt.lo || hi != tt.hi {
				t.Errorf("range = (%v, %v), want (%v, %v)", lo, hi, tt.lo, tt.hi)
			}
			if hm.Spacing != tt.spacing {
				t.Errorf("spacing = %v, want %v", hm.Spacing, tt.spacing)
			}
		})
	}

	if _, err := DecodeHeightmap("notes.txt", []byte("hello world")); !errors.Is(err, ErrUnknownHeightmap) {
		t.Errorf("expected ErrUnknownHeightmap, got %v", err)
	}
}
