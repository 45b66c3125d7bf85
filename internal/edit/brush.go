// Package edit applies bounded brush edits to a height field and records
// what changed as diffs.
package edit

import (
	"fmt"

	"github.com/Faultbox/terrasync/internal/heightfield"
)

// Kind selects how a brush computes its footprint and new sample values.
type Kind uint8

// Brush kinds.
const (
	KindRadial Kind = iota // circular brush with falloff
	KindFill               // rectangular fill
	KindStamp              // procedural noise stamp
	kindCount
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindRadial:
		return "radial"
	case KindFill:
		return "fill"
	case KindStamp:
		return "stamp"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// ParseKind converts a name produced by Kind.String back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "radial":
		return KindRadial, nil
	case "fill":
		return KindFill, nil
	case "stamp":
		return KindStamp, nil
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidBrush, s)
}

// Mode selects whether a brush raises samples or pulls them to a target.
type Mode uint8

// Brush modes.
const (
	ModeAdd Mode = iota // sample += strength * weight
	ModeSet             // sample moves toward strength by weight
)

// ParseMode converts "add" or "set" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "add":
		return ModeAdd, nil
	case "set":
		return ModeSet, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidBrush, s)
}

// Falloff shapes the weight of a radial brush from center to rim.
type Falloff uint8

// Falloff curves.
const (
	FalloffConstant Falloff = iota
	FalloffLinear
	FalloffSmooth
)

// ParseFalloff converts "constant", "linear" or "smooth" to a Falloff.
func ParseFalloff(s string) (Falloff, error) {
	switch s {
	case "", "constant":
		return FalloffConstant, nil
	case "linear":
		return FalloffLinear, nil
	case "smooth":
		return FalloffSmooth, nil
	}
	return 0, fmt.Errorf("%w: unknown falloff %q", ErrInvalidBrush, s)
}

// Brush describes one edit. Which fields apply depends on Kind:
//
//   - KindRadial: Row, Col, Radius, Strength, Mode, Falloff
//   - KindFill: Area, Strength (the fill value), Mode
//   - KindStamp: Row, Col, Radius, Strength (amplitude), Frequency, Seed
type Brush struct {
	Kind      Kind
	Row       int
	Col       int
	Radius    float64
	Strength  float64
	Mode      Mode
	Falloff   Falloff
	Area      heightfield.Rect
	Frequency float64
	Seed      uint32
}

// Radial returns a circular brush centered at (row, col).
func Radial(row, col int, radius, strength float64, mode Mode, falloff Falloff) Brush {
	return Brush{
		Kind:     KindRadial,
		Row:      row,
		Col:      col,
		Radius:   radius,
		Strength: strength,
		Mode:     mode,
		Falloff:  falloff,
	}
}

// Fill returns a brush that adds or sets value over area.
func Fill(area heightfield.Rect, value float64, mode Mode) Brush {
	return Brush{
		Kind:     KindFill,
		Area:     area,
		Strength: value,
		Mode:     mode,
	}
}

// Stamp returns a brush that adds seeded value noise inside a circle.
func Stamp(row, col int, radius, amplitude, frequency float64, seed uint32) Brush {
	return Brush{
		Kind:      KindStamp,
		Row:       row,
		Col:       col,
		Radius:    radius,
		Strength:  amplitude,
		Frequency: frequency,
		Seed:      seed,
		Falloff:   FalloffSmooth,
	}
}
