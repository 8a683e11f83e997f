package window

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownType is returned by ParseType for unrecognized names.
	ErrUnknownType = errors.New("window: unknown type")
	// ErrLengthMismatch is returned when coefficient and sample lengths differ.
	ErrLengthMismatch = errors.New("window: length mismatch")
	// ErrInvalidHop is returned when a hop does not divide the frame length.
	ErrInvalidHop = errors.New("window: hop must divide frame length")
)

// OverlapAdd describes the overlap-add sum of an analysis/synthesis window
// pair shifted by hop.
type OverlapAdd struct {
	// Gain is the mean value of the sum; a COLA pair reconstructs with 1/Gain.
	Gain float64
	// Ripple is the peak deviation of the sum from Gain, relative to Gain.
	Ripple float64
}

// COLA reports whether the pair sums to a constant within tol.
func (o OverlapAdd) COLA(tol float64) bool {
	return o.Gain > 0 && o.Ripple <= tol
}

// AnalyzeOverlapAdd computes sum_k analysis[n+k*hop]*synthesis[n+k*hop]
// over one hop period. A nil synthesis window is treated as rectangular.
func AnalyzeOverlapAdd(analysis, synthesis []float64, hop int) (OverlapAdd, error) {
	size := len(analysis)
	if size == 0 {
		return OverlapAdd{}, fmt.Errorf("%w: empty analysis window", ErrLengthMismatch)
	}

	if synthesis != nil && len(synthesis) != size {
		return OverlapAdd{}, fmt.Errorf("%w: analysis=%d synthesis=%d", ErrLengthMismatch, size, len(synthesis))
	}

	if hop <= 0 || hop > size || size%hop != 0 {
		return OverlapAdd{}, fmt.Errorf("%w: size=%d hop=%d", ErrInvalidHop, size, hop)
	}

	sums := make([]float64, hop)
	for n := range size {
		w := analysis[n]
		if synthesis != nil {
			w *= synthesis[n]
		}

		sums[n%hop] += w
	}

	mean := 0.0
	for _, s := range sums {
		mean += s
	}

	mean /= float64(hop)
	if mean == 0 {
		return OverlapAdd{}, nil
	}

	ripple := 0.0
	for _, s := range sums {
		ripple = math.Max(ripple, math.Abs(s-mean))
	}

	return OverlapAdd{Gain: mean, Ripple: ripple / math.Abs(mean)}, nil
}
