// Package heightfield provides the canonical elevation grid edited by a session.
package heightfield

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Field errors.
var (
	ErrOutOfBounds    = errors.New("coordinates out of bounds")
	ErrInvalidValue   = errors.New("sample value is not finite")
	ErrInvalidSize    = errors.New("invalid field dimensions")
	ErrSampleMismatch = errors.New("sample count does not match region")
)

// MaxDimension caps rows and columns, matching the largest ground files we import.
const MaxDimension = 4096

// Field is a fixed-size grid of elevation samples addressed by (row, col).
// All methods are safe for concurrent use; each holds the lock only for
// the duration of the call.
type Field struct {
	mu      sync.RWMutex
	rows    int
	cols    int
	samples []float64 // row-major
}

// New creates a field of the given size with every sample at zero.
func New(rows, cols int) (*Field, error) {
	if rows <= 0 || cols <= 0 || rows > MaxDimension || cols > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, rows, cols)
	}
	return &Field{
		rows:    rows,
		cols:    cols,
		samples: make([]float64, rows*cols),
	}, nil
}

// FromSamples creates a field initialised from row-major samples.
// The slice is copied.
func FromSamples(rows, cols int, samples []float64) (*Field, error) {
	f, err := New(rows, cols)
	if err != nil {
		return nil, err
	}
	if len(samples) != rows*cols {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSampleMismatch, len(samples), rows*cols)
	}
	for i, v := range samples {
		if !finite(v) {
			return nil, fmt.Errorf("%w: sample %d (row %d, col %d)", ErrInvalidValue, i, i/cols, i%cols)
		}
	}
	copy(f.samples, samples)
	return f, nil
}

// Rows returns the number of sample rows.
func (f *Field) Rows() int { return f.rows }

// Cols returns the number of sample columns.
func (f *Field) Cols() int { return f.cols }

// Bounds returns the rect covering the whole field.
func (f *Field) Bounds() Rect {
	return Rect{MinRow: 0, MinCol: 0, MaxRow: f.rows - 1, MaxCol: f.cols - 1}
}

// Get returns the sample at (row, col).
func (f *Field) Get(row, col int) (float64, error) {
	if !f.inBounds(row, col) {
		return 0, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfBounds, row, col, f.rows, f.cols)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.samples[row*f.cols+col], nil
}

// Set stores a sample. It does not record dirtiness.
func (f *Field) Set(row, col int, v float64) error {
	if !f.inBounds(row, col) {
		return fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfBounds, row, col, f.rows, f.cols)
	}
	if !finite(v) {
		return fmt.Errorf("%w: %v at (%d, %d)", ErrInvalidValue, v, row, col)
	}
	f.mu.Lock()
	f.samples[row*f.cols+col] = v
	f.mu.Unlock()
	return nil
}

// ReadRegion copies the samples inside r in row-major order.
// The copy is taken under a single read lock, so it is a consistent snapshot.
func (f *Field) ReadRegion(r Rect) ([]float64, error) {
	if !f.Bounds().ContainsRect(r) {
		return nil, fmt.Errorf("%w: region %s in %dx%d", ErrOutOfBounds, r, f.rows, f.cols)
	}
	out := make([]float64, 0, r.Area())
	f.mu.RLock()
	defer f.mu.RUnlock()
	for row := r.MinRow; row <= r.MaxRow; row++ {
		base := row * f.cols
		out = append(out, f.samples[base+r.MinCol:base+r.MaxCol+1]...)
	}
	return out, nil
}

// WriteRegion stores row-major values into r. Every value is validated
// before anything is written, so a rejected write leaves the field unchanged.
func (f *Field) WriteRegion(r Rect, values []float64) error {
	if !f.Bounds().ContainsRect(r) {
		return fmt.Errorf("%w: region %s in %dx%d", ErrOutOfBounds, r, f.rows, f.cols)
	}
	if len(values) != r.Area() {
		return fmt.Errorf("%w: got %d, want %d", ErrSampleMismatch, len(values), r.Area())
	}
	for i, v := range values {
		if !finite(v) {
			return fmt.Errorf("%w: %v at (%d, %d)", ErrInvalidValue, v,
				r.MinRow+i/r.Cols(), r.MinCol+i%r.Cols())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	w := r.Cols()
	for row := r.MinRow; row <= r.MaxRow; row++ {
		base := row * f.cols
		copy(f.samples[base+r.MinCol:base+r.MaxCol+1], values[(row-r.MinRow)*w:])
	}
	return nil
}

// Update reads the samples in r, passes a copy to fn and writes back the
// values fn returns, all under one write lock. If fn fails or returns a
// non-finite value nothing is written. fn must not call back into the field.
func (f *Field) Update(r Rect, fn func(prior []float64) ([]float64, error)) (prior, next []float64, err error) {
	if !f.Bounds().ContainsRect(r) {
		return nil, nil, fmt.Errorf("%w: region %s in %dx%d", ErrOutOfBounds, r, f.rows, f.cols)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prior = make([]float64, 0, r.Area())
	for row := r.MinRow; row <= r.MaxRow; row++ {
		base := row * f.cols
		prior = append(prior, f.samples[base+r.MinCol:base+r.MaxCol+1]...)
	}

	next, err = fn(append([]float64(nil), prior...))
	if err != nil {
		return nil, nil, err
	}
	if len(next) != len(prior) {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrSampleMismatch, len(next), len(prior))
	}
	for i, v := range next {
		if !finite(v) {
			return nil, nil, fmt.Errorf("%w: %v at (%d, %d)", ErrInvalidValue, v,
				r.MinRow+i/r.Cols(), r.MinCol+i%r.Cols())
		}
	}

	w := r.Cols()
	for row := r.MinRow; row <= r.MaxRow; row++ {
		base := row * f.cols
		copy(f.samples[base+r.MinCol:base+r.MaxCol+1], next[(row-r.MinRow)*w:])
	}
	return prior, next, nil
}

// Snapshot returns a copy of every sample in row-major order.
func (f *Field) Snapshot() []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]float64, len(f.samples))
	copy(out, f.samples)
	return out
}

// Range returns the minimum and maximum sample.
func (f *Field) Range() (lo, hi float64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	lo, hi = f.samples[0], f.samples[0]
	for _, v := range f.samples {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func (f *Field) inBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < f.rows && col < f.cols
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
