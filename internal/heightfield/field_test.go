package heightfield

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		wantErr    bool
	}{
		{"valid small", 4, 4, false},
		{"valid non-square", 3, 17, false},
		{"valid single", 1, 1, false},
		{"zero rows", 0, 4, true},
		{"negative cols", 4, -1, true},
		{"too large", MaxDimension + 1, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.rows, tt.cols)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%d, %d) error = %v, wantErr %v", tt.rows, tt.cols, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidSize) {
					t.Errorf("expected ErrInvalidSize, got %v", err)
				}
				return
			}
			if f.Rows() != tt.rows || f.Cols() != tt.cols {
				t.Errorf("size = %dx%d, want %dx%d", f.Rows(), f.Cols(), tt.rows, tt.cols)
			}
		})
	}
}

func TestGetSetBounds(t *testing.T) {
	f, _ := New(4, 4)

	if err := f.Set(1, 2, 3.5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := f.Get(1, 2)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 3.5 {
		t.Errorf("Get(1, 2) = %v, want 3.5", v)
	}

	for _, c := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 4}} {
		if _, err := f.Get(c[0], c[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Get(%d, %d) error = %v, want ErrOutOfBounds", c[0], c[1], err)
		}
		if err := f.Set(c[0], c[1], 1); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Set(%d, %d) error = %v, want ErrOutOfBounds", c[0], c[1], err)
		}
	}
}

func TestSetRejectsNonFinite(t *testing.T) {
	f, _ := New(2, 2)
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := f.Set(0, 0, v); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Set(%v) error = %v, want ErrInvalidValue", v, err)
		}
	}
	if v, _ := f.Get(0, 0); v != 0 {
		t.Errorf("field modified by rejected Set: %v", v)
	}
}

func TestFromSamples(t *testing.T) {
	samples := []float64{0, 1, 2, 3, 4, 5}
	f, err := FromSamples(2, 3, samples)
	if err != nil {
		t.Fatalf("FromSamples failed: %v", err)
	}
	samples[0] = 99
	if v, _ := f.Get(0, 0); v != 0 {
		t.Error("FromSamples did not copy the input slice")
	}
	if v, _ := f.Get(1, 2); v != 5 {
		t.Errorf("Get(1, 2) = %v, want 5", v)
	}

	if _, err := FromSamples(2, 3, []float64{1}); !errors.Is(err, ErrSampleMismatch) {
		t.Errorf("expected ErrSampleMismatch, got %v", err)
	}
	if _, err := FromSamples(1, 2, []float64{1, math.NaN()}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestReadWriteRegion(t *testing.T) {
	f, _ := New(4, 5)
	r := Rect{MinRow: 1, MinCol: 1, MaxRow: 2, MaxCol: 3}

	if err := f.WriteRegion(r, []float64{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("WriteRegion failed: %v", err)
	}
	got, err := f.ReadRegion(r)
	if err != nil {
		t.Fatalf("ReadRegion failed: %v", err)
	}
	want := []float64{1, 2, 3, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
	if v, _ := f.Get(2, 3); v != 6 {
		t.Errorf("Get(2, 3) = %v, want 6", v)
	}
	if v, _ := f.Get(0, 0); v != 0 {
		t.Errorf("sample outside region changed: %v", v)
	}
}

func TestWriteRegionAtomic(t *testing.T) {
	f, _ := New(3, 3)
	r := Rect{MinRow: 0, MinCol: 0, MaxRow: 0, MaxCol: 2}

	err := f.WriteRegion(r, []float64{7, 8, math.Inf(1)})
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	for col := 0; col < 3; col++ {
		if v, _ := f.Get(0, col); v != 0 {
			t.Errorf("col %d written by rejected WriteRegion: %v", col, v)
		}
	}

	if err := f.WriteRegion(Rect{MinRow: 2, MinCol: 2, MaxRow: 3, MaxCol: 3}, make([]float64, 4)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestRange(t *testing.T) {
	f, _ := FromSamples(2, 2, []float64{-3, 1, 4, 0})
	lo, hi := f.Range()
	if lo != -3 || hi != 4 {
		t.Errorf("Range() = (%v, %v), want (-3, 4)", lo, hi)
	}
}

func TestConcurrentAccess(t *testing.T) {
	f, _ := New(32, 32)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = f.Set(w, i%32, float64(i))
				_, _ = f.ReadRegion(f.Bounds())
			}
		}(w)
	}
	wg.Wait()
}

func TestUpdate(t *testing.T) {
	f, _ := FromSamples(2, 2, []float64{1, 2, 3, 4})
	r := Rect{MinRow: 0, MinCol: 1, MaxRow: 1, MaxCol: 1}

	prior, next, err := f.Update(r, func(p []float64) ([]float64, error) {
		for i := range p {
			p[i] *= 10
		}
		return p, nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if prior[0] != 2 || prior[1] != 4 {
		t.Errorf("prior = %v, want [2 4]", prior)
	}
	if next[0] != 20 || next[1] != 40 {
		t.Errorf("next = %v, want [20 40]", next)
	}
	if v, _ := f.Get(1, 1); v != 40 {
		t.Errorf("Get(1, 1) = %v, want 40", v)
	}

	_, _, err = f.Update(r, func(p []float64) ([]float64, error) {
		p[0] = math.NaN()
		return p, nil
	})
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if v, _ := f.Get(0, 1); v != 20 {
		t.Errorf("rejected Update modified the field: %v", v)
	}
}
