package edit

import "math"

// hash32 mixes a 32-bit input into a well-distributed output.
func hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// hash2 returns a stable hash for 2D lattice coordinates and a seed.
func hash2(seed uint32, x, y int32) uint32 {
	h := seed
	h ^= uint32(x) * 0x9e3779b1
	h ^= uint32(y) * 0x85ebca6b
	return hash32(h)
}

// lattice maps a lattice point to [-1, 1].
func lattice(seed uint32, x, y int32) float64 {
	return float64(hash2(seed, x, y))/float64(math.MaxUint32)*2 - 1
}

// valueNoise is smoothly interpolated lattice noise in [-1, 1].
// It is a pure function of its arguments, so stamps are reproducible.
func valueNoise(seed uint32, x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	ix, iy := int32(x0), int32(y0)
	fx := smooth(x - x0)
	fy := smooth(y - y0)

	top := lerp(lattice(seed, ix, iy), lattice(seed, ix+1, iy), fx)
	bottom := lerp(lattice(seed, ix, iy+1), lattice(seed, ix+1, iy+1), fx)
	return lerp(top, bottom, fy)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
