package edit

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/terrasync/internal/heightfield"
)

// ErrInvalidBrush is returned for malformed brush parameters.
var ErrInvalidBrush = errors.New("invalid brush")

// kindOps is the per-kind behaviour of a brush. Each entry is a set of
// pure functions; Apply dispatches through the table instead of through
// an interface.
type kindOps struct {
	validate  func(b Brush) error
	footprint func(b Brush, bounds heightfield.Rect) (heightfield.Rect, error)
	sample    func(b Brush, row, col int, prior float64) float64
}

var kindTable = [kindCount]kindOps{
	KindRadial: {validate: validateRadial, footprint: circleFootprint, sample: sampleRadial},
	KindFill:   {validate: validateFill, footprint: fillFootprint, sample: sampleFill},
	KindStamp:  {validate: validateStamp, footprint: circleFootprint, sample: sampleStamp},
}

// Validate checks the brush parameters without touching any field.
func (b Brush) Validate() error {
	if b.Kind >= kindCount {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidBrush, b.Kind)
	}
	return kindTable[b.Kind].validate(b)
}

// Footprint returns the tight rect of samples the brush writes in a field
// with the given bounds.
func (b Brush) Footprint(bounds heightfield.Rect) (heightfield.Rect, error) {
	if err := b.Validate(); err != nil {
		return heightfield.Rect{}, err
	}
	return kindTable[b.Kind].footprint(b, bounds)
}

// Apply writes the brush into the field and returns the diff of the
// affected rect. Validation happens before any write; on error the field
// is left unchanged.
func Apply(f *heightfield.Field, b Brush) (Diff, error) {
	rect, err := b.Footprint(f.Bounds())
	if err != nil {
		return Diff{}, err
	}

	ops := kindTable[b.Kind]
	cols := rect.Cols()
	before, after, err := f.Update(rect, func(prior []float64) ([]float64, error) {
		for i, v := range prior {
			prior[i] = ops.sample(b, rect.MinRow+i/cols, rect.MinCol+i%cols, v)
		}
		return prior, nil
	})
	if err != nil {
		return Diff{}, fmt.Errorf("applying %s brush: %w", b.Kind, err)
	}
	return Diff{Rect: rect, Before: before, After: after}, nil
}

// Revert writes the diff's prior values back and returns the inverse diff.
func Revert(f *heightfield.Field, d Diff) (Diff, error) {
	return ApplyDiff(f, d.Inverse())
}

// ApplyDiff writes the diff's new values into the field.
func ApplyDiff(f *heightfield.Field, d Diff) (Diff, error) {
	if len(d.After) != d.Rect.Area() {
		return Diff{}, fmt.Errorf("%w: diff has %d values for %s", heightfield.ErrSampleMismatch, len(d.After), d.Rect)
	}
	before, after, err := f.Update(d.Rect, func([]float64) ([]float64, error) {
		return append([]float64(nil), d.After...), nil
	})
	if err != nil {
		return Diff{}, err
	}
	return Diff{Rect: d.Rect, Before: before, After: after}, nil
}

func validateCircle(b Brush) error {
	if math.IsNaN(b.Radius) || math.IsInf(b.Radius, 0) || b.Radius < 0 {
		return fmt.Errorf("%w: radius %v", ErrInvalidBrush, b.Radius)
	}
	if !finite(b.Strength) {
		return fmt.Errorf("%w: strength %v", ErrInvalidBrush, b.Strength)
	}
	if b.Falloff > FalloffSmooth {
		return fmt.Errorf("%w: unknown falloff %d", ErrInvalidBrush, b.Falloff)
	}
	return nil
}

func validateRadial(b Brush) error {
	if err := validateCircle(b); err != nil {
		return err
	}
	if b.Mode > ModeSet {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidBrush, b.Mode)
	}
	return nil
}

func validateFill(b Brush) error {
	if b.Area.Empty() {
		return fmt.Errorf("%w: empty fill area %s", ErrInvalidBrush, b.Area)
	}
	if !finite(b.Strength) {
		return fmt.Errorf("%w: fill value %v", ErrInvalidBrush, b.Strength)
	}
	if b.Mode > ModeSet {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidBrush, b.Mode)
	}
	return nil
}

func validateStamp(b Brush) error {
	if err := validateCircle(b); err != nil {
		return err
	}
	if !finite(b.Frequency) || b.Frequency <= 0 {
		return fmt.Errorf("%w: frequency %v", ErrInvalidBrush, b.Frequency)
	}
	return nil
}

// circleFootprint covers every sample the brush gives a non-zero weight.
// The center itself must be inside the field.
func circleFootprint(b Brush, bounds heightfield.Rect) (heightfield.Rect, error) {
	if !bounds.Contains(b.Row, b.Col) {
		return heightfield.Rect{}, fmt.Errorf("%w: brush center (%d, %d) outside %s: %w",
			ErrInvalidBrush, b.Row, b.Col, bounds, heightfield.ErrOutOfBounds)
	}
	return heightfield.Cell(b.Row, b.Col).Expand(reach(b, bounds)).Clamp(bounds), nil
}

// reach is the largest axis offset from the center with a non-zero weight,
// capped at the field's extent.
func reach(b Brush, bounds heightfield.Rect) int {
	r := math.Floor(b.Radius)
	// Linear and smooth falloff reach zero exactly on the rim.
	if b.Falloff != FalloffConstant && r > 0 && r == b.Radius {
		r--
	}
	return int(math.Min(r, float64(bounds.Rows()+bounds.Cols())))
}

func fillFootprint(b Brush, bounds heightfield.Rect) (heightfield.Rect, error) {
	r := b.Area.Clamp(bounds)
	if r.Empty() {
		return heightfield.Rect{}, fmt.Errorf("%w: fill area %s outside %s: %w",
			ErrInvalidBrush, b.Area, bounds, heightfield.ErrOutOfBounds)
	}
	return r, nil
}

func sampleRadial(b Brush, row, col int, prior float64) float64 {
	w := weight(b, row, col)
	return blend(b.Mode, prior, b.Strength, w)
}

func sampleFill(b Brush, _, _ int, prior float64) float64 {
	return blend(b.Mode, prior, b.Strength, 1)
}

func sampleStamp(b Brush, row, col int, prior float64) float64 {
	w := weight(b, row, col)
	if w == 0 {
		return prior
	}
	n := valueNoise(b.Seed, float64(col)*b.Frequency, float64(row)*b.Frequency)
	return prior + b.Strength*w*n
}

func blend(mode Mode, prior, target, w float64) float64 {
	switch {
	case w == 0:
		return prior
	case mode == ModeAdd:
		return prior + target*w
	case w == 1:
		return target
	default:
		return prior + (target-prior)*w
	}
}

// weight returns the brush influence at (row, col): 0 outside the circle,
// 1 at the center, shaped by the falloff in between.
func weight(b Brush, row, col int) float64 {
	dr := float64(row - b.Row)
	dc := float64(col - b.Col)
	d := math.Sqrt(dr*dr + dc*dc)
	if d > b.Radius {
		return 0
	}
	if b.Radius == 0 {
		return 1
	}
	t := d / b.Radius
	switch b.Falloff {
	case FalloffLinear:
		return 1 - t
	case FalloffSmooth:
		return 1 - t*t*(3-2*t)
	default:
		return 1
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
