// Package biquad implements second-order IIR sections and the RBJ cookbook
// designs used by the analyzers and dynamics plugins.
package biquad

import "github.com/cwbudde/algo-hotmic/dsp/core"

// Coefficients holds the transfer function coefficients for a single
// second-order section. a0 is normalized to 1 and not stored.
//
// The sign convention follows Direct Form II Transposed:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64 // feedforward (numerator)
	A1, A2     float64 // feedback (denominator)
}

// Passthrough is the identity section.
var Passthrough = Coefficients{B0: 1}

// Section is a single biquad filter with coefficients and internal state.
type Section struct {
	Coefficients

	d0, d1 float64
}

// NewSection returns a Section initialized with the given coefficients
// and zero state.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// SetCoefficients replaces the coefficients and keeps the filter state.
func (s *Section) SetCoefficients(c Coefficients) {
	s.Coefficients = c
}

// ProcessSample filters one input sample and returns the output.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.d0
	s.d0 = s.B1*x - s.A1*y + s.d1
	s.d1 = s.B2*x - s.A2*y

	return y
}

// ProcessBlock filters a float32 block in place.
func (s *Section) ProcessBlock(buf []float32) {
	s.ProcessBlockTo(buf, buf)
}

// ProcessBlockTo filters src into dst. dst must be at least as long as src
// and may alias it.
func (s *Section) ProcessBlockTo(dst, src []float32) {
	if len(src) == 0 {
		return
	}

	_ = dst[len(src)-1] // bounds check hint

	b0, b1, b2 := s.B0, s.B1, s.B2
	a1, a2 := s.A1, s.A2
	d0, d1 := s.d0, s.d1

	for i, v := range src {
		x := float64(v)
		y := b0*x + d0
		d0 = b1*x - a1*y + d1
		d1 = b2*x - a2*y
		dst[i] = float32(y)
	}

	// Keep denormals out of the recursion during silence.
	s.d0, s.d1 = core.FlushDenormals(d0), core.FlushDenormals(d1)
}

// Reset clears the delay line to zero.
func (s *Section) Reset() {
	s.d0 = 0
	s.d1 = 0
}
