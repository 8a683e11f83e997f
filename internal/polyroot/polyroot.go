// Package polyroot finds the complex roots of real polynomials with the
// Durand-Kerner iteration.
package polyroot

import (
	"errors"
	"math"
	"math/cmplx"
)

// ErrDegeneratePolynomial is returned when a polynomial has a zero leading
// coefficient, too few coefficients, or the iteration does not converge.
var ErrDegeneratePolynomial = errors.New("polyroot: degenerate polynomial")

const (
	maxIter     = 500
	tol         = 1e-12
	maxResidual = 1e-6
)

// Solver holds scratch space for repeated root finding of polynomials up to
// a fixed degree. It is not safe for concurrent use.
type Solver struct {
	norm  []complex128
	roots []complex128
}

// NewSolver returns a solver for polynomials of at most the given degree.
func NewSolver(degree int) *Solver {
	degree = max(degree, 1)

	return &Solver{
		norm:  make([]complex128, degree+1),
		roots: make([]complex128, degree),
	}
}

// Roots returns the roots of coeff[0]*x^n + ... + coeff[n]. The returned
// slice is owned by the solver and overwritten by the next call.
func (s *Solver) Roots(coeff []float64) ([]complex128, error) {
	if len(coeff) < 2 || coeff[0] == 0 {
		return nil, ErrDegeneratePolynomial
	}

	n := len(coeff) - 1
	if n > len(s.roots) {
		s.norm = make([]complex128, n+1)
		s.roots = make([]complex128, n)
	}

	norm := s.norm[:n+1]
	roots := s.roots[:n]

	lead := coeff[0]
	radius := 1.0

	for i, c := range coeff {
		norm[i] = complex(c/lead, 0)
		if i > 0 {
			radius = math.Max(radius, math.Abs(c/lead))
		}
	}

	// Start points spread on a slightly perturbed circle so no two coincide
	// and none lies on the real axis.
	for i := range n {
		angle := 2*math.Pi*float64(i)/float64(n) + 0.3
		r := radius * (1 + 0.1*float64(i)/float64(n))
		roots[i] = cmplx.Rect(r, angle)
	}

	for range maxIter {
		maxDelta := 0.0

		for i := range n {
			den := complex(1, 0)

			for j := range n {
				if i != j {
					den *= roots[i] - roots[j]
				}
			}

			if den == 0 {
				roots[i] += complex(1e-10, 1e-10)
				continue
			}

			delta := Eval(norm, roots[i]) / den
			roots[i] -= delta
			maxDelta = math.Max(maxDelta, cmplx.Abs(delta))
		}

		if maxDelta < tol {
			return roots, nil
		}
	}

	for _, r := range roots {
		if cmplx.Abs(Eval(norm, r)) >= maxResidual {
			return nil, ErrDegeneratePolynomial
		}
	}

	return roots, nil
}

// Roots is a convenience wrapper allocating a fresh [Solver].
func Roots(coeff []float64) ([]complex128, error) {
	return NewSolver(len(coeff) - 1).Roots(coeff)
}

// Eval evaluates a polynomial at x using Horner's method. Coefficients are
// in descending power order.
func Eval(coeff []complex128, x complex128) complex128 {
	if len(coeff) == 0 {
		return 0
	}

	v := coeff[0]
	for _, c := range coeff[1:] {
		v = v*x + c
	}

	return v
}
