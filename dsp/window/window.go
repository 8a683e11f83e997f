// Package window generates analysis and synthesis windows for short-time
// Fourier processing and checks the constant-overlap-add condition of
// window pairs.
package window

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeSqrtHann
	TypeHamming
	TypeBlackman
	TypeTriangle
)

var typeNames = map[Type]string{
	TypeRectangular: "rectangular",
	TypeHann:        "hann",
	TypeSqrtHann:    "sqrt-hann",
	TypeHamming:     "hamming",
	TypeBlackman:    "blackman",
	TypeTriangle:    "triangle",
}

// String returns the lower-case window name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("window(%d)", int(t))
}

// ParseType resolves a window name as printed by [Type.String].
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}

	return TypeRectangular, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Types returns all known window types in declaration order.
func Types() []Type {
	return []Type{TypeRectangular, TypeHann, TypeSqrtHann, TypeHamming, TypeBlackman, TypeTriangle}
}

// Option configures window generation.
type Option func(*config)

type config struct {
	symmetric bool
}

// WithSymmetric generates the symmetric (filter design) form instead of the
// periodic form used for FFT framing.
func WithSymmetric() Option {
	return func(c *config) {
		c.symmetric = true
	}
}

// Generate returns window coefficients of the given length. The periodic
// form is the default because every consumer in this module frames FFTs.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	for i := range out {
		out[i] = evalWindow(t, samplePosition(i, length, cfg.symmetric))
	}

	return out
}

// Apply multiplies buf in-place by coeffs. Lengths must match.
func Apply(buf, coeffs []float64) error {
	if len(buf) != len(coeffs) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(buf), len(coeffs))
	}

	vecmath.MulBlockInPlace(buf, coeffs)

	return nil
}

// ApplyTo writes src*coeffs into dst. All lengths must match.
func ApplyTo(dst, src, coeffs []float64) error {
	if len(src) != len(coeffs) || len(dst) != len(src) {
		return fmt.Errorf("%w: dst=%d src=%d coeffs=%d", ErrLengthMismatch, len(dst), len(src), len(coeffs))
	}

	vecmath.MulBlock(dst, src, coeffs)

	return nil
}

func evalWindow(t Type, x float64) float64 {
	switch t {
	case TypeHann:
		return 0.5 - 0.5*math.Cos(2*math.Pi*x)
	case TypeSqrtHann:
		return math.Sin(math.Pi * x)
	case TypeHamming:
		return 0.54 - 0.46*math.Cos(2*math.Pi*x)
	case TypeBlackman:
		return 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	case TypeTriangle:
		return 1 - math.Abs(2*x-1)
	default:
		return 1
	}
}

func samplePosition(n, size int, symmetric bool) float64 {
	if size <= 1 {
		return 0
	}

	den := float64(size)
	if symmetric {
		den = float64(size - 1)
	}

	return float64(n) / den
}
