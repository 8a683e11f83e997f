package core

import "math"

// Sample is the set of floating point types used for audio and analysis data.
type Sample interface {
	~float32 | ~float64
}

// Clamp limits value to the inclusive range [lo, hi].
func Clamp[T Sample](value, lo, hi T) T {
	if lo > hi {
		lo, hi = hi, lo
	}

	if value < lo {
		return lo
	}

	if value > hi {
		return hi
	}

	return value
}

// FlushDenormals converts tiny values to exact zero.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB. Values at or below floor
// (and non-positive values) map to the dB value of floor.
func LinearToDB(linear, floor float64) float64 {
	if floor <= 0 {
		floor = 1e-10
	}

	if !(linear > floor) {
		linear = floor
	}

	return 20 * math.Log10(linear)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
