// Package lpc estimates linear prediction coefficients with Burg's method
// and extracts formant resonances from the prediction polynomial.
package lpc

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"github.com/cwbudde/algo-hotmic/internal/polyroot"
)

// ErrInvalidOrder is returned for non-positive orders or orders that are
// not smaller than the frame length.
var ErrInvalidOrder = errors.New("lpc: invalid order")

// minDenominator stops the recursion once the residual energy vanishes.
const minDenominator = 1e-12

// Formant is a resonance of the all-pole model.
type Formant struct {
	FrequencyHz float64
	BandwidthHz float64
}

// Root selection limits. Roots close to the unit circle are sinusoids
// rather than formants; roots far inside it are too broad to matter.
const (
	minImag      = 0.001
	minRadius    = 0.80
	maxRadius    = 0.9995
	maxBandwidth = 3500.0
	maxNyquist   = 0.9
)

// Analyzer holds scratch buffers for repeated Burg estimation and formant
// extraction at a fixed order. It is not safe for concurrent use.
type Analyzer struct {
	order  int
	ef, eb []float64
	prev   []float64
	solver *polyroot.Solver
}

// NewAnalyzer returns an analyzer for the given order.
func NewAnalyzer(order int) (*Analyzer, error) {
	if order <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
	}

	return &Analyzer{
		order:  order,
		prev:   make([]float64, order+1),
		solver: polyroot.NewSolver(order),
	}, nil
}

// Order returns the prediction order.
func (a *Analyzer) Order() int {
	return a.order
}

// Burg writes the order+1 prediction coefficients of signal into dst and
// returns it. dst[0] is 1. When the residual energy vanishes early the
// remaining coefficients are zero.
func (a *Analyzer) Burg(dst []float64, signal []float64) ([]float64, error) {
	n := len(signal)
	if n <= a.order {
		return nil, fmt.Errorf("%w: order %d needs more than %d samples", ErrInvalidOrder, a.order, n)
	}

	if cap(dst) < a.order+1 {
		dst = make([]float64, a.order+1)
	}

	dst = dst[:a.order+1]
	clear(dst)
	dst[0] = 1

	a.ef = append(a.ef[:0], signal...)
	a.eb = append(a.eb[:0], signal...)
	ef, eb := a.ef, a.eb

	for m := 1; m <= a.order; m++ {
		num, den := 0.0, 0.0
		for j := m; j < n; j++ {
			num += ef[j] * eb[j-1]
			den += ef[j]*ef[j] + eb[j-1]*eb[j-1]
		}

		if den <= minDenominator {
			break
		}

		k := -2 * num / den

		copy(a.prev, dst)
		for i := 1; i < m; i++ {
			dst[i] = a.prev[i] + k*a.prev[m-i]
		}

		dst[m] = k

		// Descending so eb[j-1] still holds the previous stage when eb[j]
		// is overwritten.
		for j := n - 1; j >= m; j-- {
			f, b := ef[j], eb[j-1]
			ef[j] = f + k*b
			eb[j] = b + k*f
		}
	}

	return dst, nil
}

// Formants appends the resonances of the prediction polynomial coeffs to
// dst, sorted by frequency. Only roots with positive imaginary part, radius
// within (0.80, 0.9995), bandwidth within (0, 3500] Hz and frequency within
// [minHz, min(maxHz, 0.9*nyquist)] are kept.
func (a *Analyzer) Formants(dst []Formant, coeffs []float64, sampleRate, minHz, maxHz float64) ([]Formant, error) {
	roots, err := a.solver.Roots(coeffs)
	if err != nil {
		return dst, fmt.Errorf("lpc: formant roots: %w", err)
	}

	minHz = math.Max(0, minHz)
	maxHz = math.Min(maxHz, sampleRate*0.5*maxNyquist)
	start := len(dst)

	for _, r := range roots {
		if imag(r) <= minImag {
			continue
		}

		mag := cmplx.Abs(r)
		if mag <= minRadius || mag >= maxRadius {
			continue
		}

		freq := cmplx.Phase(r) * sampleRate / (2 * math.Pi)
		bw := -sampleRate / math.Pi * math.Log(mag)

		if freq < minHz || freq > maxHz {
			continue
		}

		if bw <= 0 || bw > maxBandwidth {
			continue
		}

		dst = append(dst, Formant{FrequencyHz: freq, BandwidthHz: bw})
	}

	slices.SortFunc(dst[start:], func(x, y Formant) int {
		switch {
		case x.FrequencyHz < y.FrequencyHz:
			return -1
		case x.FrequencyHz > y.FrequencyHz:
			return 1
		default:
			return 0
		}
	})

	return dst, nil
}

// Burg is a convenience wrapper allocating a fresh [Analyzer].
func Burg(signal []float64, order int) ([]float64, error) {
	a, err := NewAnalyzer(order)
	if err != nil {
		return nil, err
	}

	return a.Burg(nil, signal)
}

// Formants is a convenience wrapper allocating a fresh [Analyzer] sized for
// coeffs.
func Formants(coeffs []float64, sampleRate, minHz, maxHz float64) ([]Formant, error) {
	a, err := NewAnalyzer(max(len(coeffs)-1, 1))
	if err != nil {
		return nil, err
	}

	return a.Formants(nil, coeffs, sampleRate, minHz, maxHz)
}

// PreEmphasis applies y[n] = x[n] - coef*x[n-1] in place. prev is the last
// input sample of the previous frame; the new last input is returned.
func PreEmphasis(buf []float64, coef, prev float64) float64 {
	for i, x := range buf {
		buf[i] = x - coef*prev
		prev = x
	}

	return prev
}
