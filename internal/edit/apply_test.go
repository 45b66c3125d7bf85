package edit

import (
	"errors"
	"math"
	"testing"

	"github.com/Faultbox/terrasync/internal/heightfield"
)

// rampField creates a field whose samples are distinct, non-zero values.
func rampField(t *testing.T, rows, cols int) *heightfield.Field {
	t.Helper()
	samples := make([]float64, rows*cols)
	for i := range samples {
		samples[i] = 0.25*float64(i) - 3.1
	}
	f, err := heightfield.FromSamples(rows, cols, samples)
	if err != nil {
		t.Fatalf("FromSamples failed: %v", err)
	}
	return f
}

func TestApply_RadiusZeroSet(t *testing.T) {
	f, _ := heightfield.New(4, 4)

	d, err := Apply(f, Radial(1, 1, 0, 2.0, ModeSet, FalloffConstant))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if d.Rect != heightfield.Cell(1, 1) {
		t.Errorf("diff rect = %s, want %s", d.Rect, heightfield.Cell(1, 1))
	}
	if len(d.Before) != 1 || d.Before[0] != 0 || d.After[0] != 2.0 {
		t.Errorf("diff values = %v -> %v, want [0] -> [2]", d.Before, d.After)
	}
	if v, _ := f.Get(1, 1); v != 2.0 {
		t.Errorf("Get(1, 1) = %v, want 2", v)
	}
}

func TestApply_Footprint(t *testing.T) {
	tests := []struct {
		name  string
		brush Brush
		want  heightfield.Rect
	}{
		{"radial interior", Radial(4, 4, 2, 1, ModeAdd, FalloffLinear), heightfield.Rect{MinRow: 3, MinCol: 3, MaxRow: 5, MaxCol: 5}},
		{"radial constant keeps rim", Radial(4, 4, 2, 1, ModeAdd, FalloffConstant), heightfield.Rect{MinRow: 2, MinCol: 2, MaxRow: 6, MaxCol: 6}},
		{"radial huge radius", Radial(1, 1, 1e19, 1, ModeAdd, FalloffConstant), heightfield.Rect{MinRow: 0, MinCol: 0, MaxRow: 7, MaxCol: 7}},
		{"radial huge smooth radius", Radial(3, 5, math.MaxFloat64, 1, ModeAdd, FalloffSmooth), heightfield.Rect{MinRow: 0, MinCol: 0, MaxRow: 7, MaxCol: 7}},
		{"radial fractional radius", Radial(4, 4, 1.5, 1, ModeAdd, FalloffConstant), heightfield.Rect{MinRow: 3, MinCol: 3, MaxRow: 5, MaxCol: 5}},
		{"radial clipped at corner", Radial(0, 0, 2, 1, ModeAdd, FalloffSmooth), heightfield.Rect{MinRow: 0, MinCol: 0, MaxRow: 1, MaxCol: 1}},
		{"fill clipped", Fill(heightfield.Rect{MinRow: 6, MinCol: -2, MaxRow: 12, MaxCol: 1}, 3, ModeSet), heightfield.Rect{MinRow: 6, MinCol: 0, MaxRow: 7, MaxCol: 1}},
		{"stamp", Stamp(7, 7, 1, 2, 0.3, 9), heightfield.Cell(7, 7)},
		{"stamp fractional radius", Stamp(7, 7, 1.5, 2, 0.3, 9), heightfield.Rect{MinRow: 6, MinCol: 6, MaxRow: 7, MaxCol: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rampField(t, 8, 8)
			d, err := Apply(f, tt.brush)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if d.Rect != tt.want {
				t.Errorf("diff rect = %s, want %s", d.Rect, tt.want)
			}
			if len(d.Before) != tt.want.Area() || len(d.After) != tt.want.Area() {
				t.Errorf("diff has %d/%d values, want %d", len(d.Before), len(d.After), tt.want.Area())
			}
		})
	}
}

func TestApply_DiffIsTightAroundChanges(t *testing.T) {
	tests := []struct {
		name  string
		brush Brush
	}{
		{"linear whole radius", Radial(5, 5, 2, 1, ModeAdd, FalloffLinear)},
		{"smooth whole radius", Radial(5, 5, 3, 1, ModeAdd, FalloffSmooth)},
		{"linear fractional radius", Radial(5, 5, 2.5, 1, ModeAdd, FalloffLinear)},
		{"constant", Radial(5, 5, 2, 1, ModeAdd, FalloffConstant)},
		{"linear clipped", Radial(0, 10, 3, 1, ModeAdd, FalloffLinear)},
		{"smooth radius zero", Radial(5, 5, 0, 1, ModeAdd, FalloffSmooth)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.brush
			f := rampField(t, 11, 11)
			before := f.Snapshot()

			d, err := Apply(f, b)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}

			after := f.Snapshot()
			changed := heightfield.Rect{MinRow: 0, MinCol: 0, MaxRow: -1, MaxCol: -1}
			for i := range before {
				if before[i] == after[i] {
					continue
				}
				changed = changed.Union(heightfield.Cell(i/11, i%11))
			}
			if d.Rect != changed {
				t.Errorf("%+v: diff rect = %s, changed samples span %s", b, d.Rect, changed)
			}
		})
	}
}

func TestApply_OutsideDiffUnchanged(t *testing.T) {
	brushes := []Brush{
		Radial(3, 5, 2.7, 1.5, ModeAdd, FalloffLinear),
		Radial(0, 9, 4, -2, ModeSet, FalloffSmooth),
		Fill(heightfield.Rect{MinRow: 2, MinCol: 2, MaxRow: 4, MaxCol: 8}, 7, ModeSet),
		Fill(heightfield.Rect{MinRow: 5, MinCol: 0, MaxRow: 9, MaxCol: 0}, -1, ModeAdd),
		Stamp(6, 6, 3, 4, 0.37, 42),
	}

	for _, b := range brushes {
		t.Run(b.Kind.String(), func(t *testing.T) {
			f := rampField(t, 10, 10)
			before := f.Snapshot()

			d, err := Apply(f, b)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}

			after := f.Snapshot()
			for i := range before {
				row, col := i/10, i%10
				if d.Rect.Contains(row, col) {
					continue
				}
				if math.Float64bits(before[i]) != math.Float64bits(after[i]) {
					t.Errorf("sample (%d, %d) outside %s changed: %v -> %v", row, col, d.Rect, before[i], after[i])
				}
			}
		})
	}
}

func TestRevert_RestoresBitIdentical(t *testing.T) {
	brushes := []Brush{
		Radial(4, 4, 3.3, 0.1, ModeAdd, FalloffSmooth),
		Radial(2, 7, 2, 1e-9, ModeSet, FalloffLinear),
		Fill(heightfield.Rect{MinRow: 0, MinCol: 0, MaxRow: 9, MaxCol: 9}, 0.3, ModeAdd),
		Stamp(5, 5, 5, 1.7, 0.21, 7),
	}

	for _, b := range brushes {
		t.Run(b.Kind.String(), func(t *testing.T) {
			f := rampField(t, 10, 10)
			orig := f.Snapshot()

			d, err := Apply(f, b)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if !d.Changed() {
				t.Fatal("brush did not change anything")
			}

			inv, err := Revert(f, d)
			if err != nil {
				t.Fatalf("Revert failed: %v", err)
			}
			if inv.Rect != d.Rect {
				t.Errorf("inverse rect = %s, want %s", inv.Rect, d.Rect)
			}

			got := f.Snapshot()
			for i := range orig {
				if math.Float64bits(orig[i]) != math.Float64bits(got[i]) {
					t.Fatalf("sample %d not restored: %v -> %v", i, orig[i], got[i])
				}
			}

			// Redo lands exactly on the edited state.
			if _, err := ApplyDiff(f, d); err != nil {
				t.Fatalf("ApplyDiff failed: %v", err)
			}
			for row := d.Rect.MinRow; row <= d.Rect.MaxRow; row++ {
				for col := d.Rect.MinCol; col <= d.Rect.MaxCol; col++ {
					_, want, _ := d.At(row, col)
					if v, _ := f.Get(row, col); v != want {
						t.Errorf("redo (%d, %d) = %v, want %v", row, col, v, want)
					}
				}
			}
		})
	}
}

func TestApply_InvalidLeavesFieldUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		brush   Brush
		wantErr error
	}{
		{"negative radius", Radial(2, 2, -1, 1, ModeAdd, FalloffConstant), ErrInvalidBrush},
		{"nan radius", Radial(2, 2, math.NaN(), 1, ModeAdd, FalloffConstant), ErrInvalidBrush},
		{"infinite strength", Radial(2, 2, 1, math.Inf(1), ModeAdd, FalloffConstant), ErrInvalidBrush},
		{"unknown falloff", Radial(2, 2, 1, 1, ModeAdd, Falloff(9)), ErrInvalidBrush},
		{"unknown mode", Radial(2, 2, 1, 1, Mode(4), FalloffConstant), ErrInvalidBrush},
		{"unknown kind", Brush{Kind: Kind(200)}, ErrInvalidBrush},
		{"empty fill", Fill(heightfield.Rect{MinRow: 3, MinCol: 3, MaxRow: 2, MaxCol: 3}, 1, ModeSet), ErrInvalidBrush},
		{"zero frequency stamp", Stamp(2, 2, 1, 1, 0, 1), ErrInvalidBrush},
		{"center outside", Radial(5, 0, 1, 1, ModeAdd, FalloffConstant), ErrInvalidBrush},
		{"center outside is out of bounds", Stamp(0, -1, 3, 1, 0.2, 1), heightfield.ErrOutOfBounds},
		{"fill outside", Fill(heightfield.Rect{MinRow: 10, MinCol: 10, MaxRow: 11, MaxCol: 11}, 1, ModeSet), ErrInvalidBrush},
		{"overflow to infinity", Fill(heightfield.Rect{MinRow: 0, MinCol: 0, MaxRow: 0, MaxCol: 0}, math.MaxFloat64, ModeAdd), heightfield.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rampField(t, 5, 5)
			if tt.name == "overflow to infinity" {
				_ = f.Set(0, 0, math.MaxFloat64)
			}
			before := f.Snapshot()

			_, err := Apply(f, tt.brush)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Apply error = %v, want %v", err, tt.wantErr)
			}

			after := f.Snapshot()
			for i := range before {
				if before[i] != after[i] {
					t.Fatalf("sample %d changed by rejected brush", i)
				}
			}
		})
	}
}

func TestApply_Falloff(t *testing.T) {
	f, _ := heightfield.New(9, 9)
	d, err := Apply(f, Radial(4, 4, 4, 1, ModeAdd, FalloffLinear))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	_, center, _ := d.At(4, 4)
	_, mid, _ := d.At(4, 6)
	_, rim, _ := d.At(4, 8)
	_, corner, _ := d.At(0, 0)

	if center != 1 {
		t.Errorf("center = %v, want 1", center)
	}
	if mid != 0.5 {
		t.Errorf("mid = %v, want 0.5", mid)
	}
	if rim != 0 {
		t.Errorf("rim = %v, want 0", rim)
	}
	if corner != 0 {
		t.Errorf("corner outside circle = %v, want 0", corner)
	}
}

func TestStamp_Deterministic(t *testing.T) {
	a, _ := heightfield.New(16, 16)
	b, _ := heightfield.New(16, 16)
	brush := Stamp(8, 8, 6, 3, 0.19, 1234)

	da, err := Apply(a, brush)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	db, _ := Apply(b, brush)

	for i := range da.After {
		if math.Float64bits(da.After[i]) != math.Float64bits(db.After[i]) {
			t.Fatalf("stamp is not deterministic at %d: %v vs %v", i, da.After[i], db.After[i])
		}
	}
	if !da.Changed() {
		t.Error("stamp produced no change")
	}
}

func TestParseNames(t *testing.T) {
	for _, k := range []Kind{KindRadial, KindFill, KindStamp} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("spray"); !errors.Is(err, ErrInvalidBrush) {
		t.Errorf("expected ErrInvalidBrush, got %v", err)
	}
	if m, _ := ParseMode("set"); m != ModeSet {
		t.Errorf("ParseMode(set) = %v", m)
	}
	if fo, _ := ParseFalloff("smooth"); fo != FalloffSmooth {
		t.Errorf("ParseFalloff(smooth) = %v", fo)
	}
}
