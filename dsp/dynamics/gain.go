package dynamics

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidRatio = errors.New("dynamics: ratio must be >= 1")

// log2(10)/20 converts dB to log2 units.
const log2Of10Div20 = 0.16609640474436813

// GainComputer maps a detector level to a gain using a log2-domain
// soft-knee curve. Below threshold the gain is 1.
type GainComputer struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64

	thresholdLog2    float64
	kneeWidthLog2    float64
	invKneeWidthLog2 float64
	factor           float64
}

// NewGainComputer returns a computer for a downward compressor.
func NewGainComputer(thresholdDB, ratio, kneeDB float64) (*GainComputer, error) {
	g := &GainComputer{}
	if err := g.Set(thresholdDB, ratio, kneeDB); err != nil {
		return nil, err
	}

	return g, nil
}

// Set updates the curve.
func (g *GainComputer) Set(thresholdDB, ratio, kneeDB float64) error {
	if math.IsNaN(thresholdDB) || math.IsInf(thresholdDB, 0) {
		return fmt.Errorf("dynamics: threshold must be finite: %g", thresholdDB)
	}

	if !(ratio >= 1) || math.IsInf(ratio, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidRatio, ratio)
	}

	if !(kneeDB >= 0) || math.IsInf(kneeDB, 0) {
		return fmt.Errorf("dynamics: knee must be non-negative: %g", kneeDB)
	}

	g.thresholdDB = thresholdDB
	g.ratio = ratio
	g.kneeDB = kneeDB

	g.thresholdLog2 = thresholdDB * log2Of10Div20
	g.kneeWidthLog2 = kneeDB * log2Of10Div20
	g.invKneeWidthLog2 = 0

	if kneeDB > 0 {
		g.invKneeWidthLog2 = 1 / g.kneeWidthLog2
	}

	g.factor = 1 - 1/ratio

	return nil
}

// Threshold returns the threshold in dB.
func (g *GainComputer) Threshold() float64 { return g.thresholdDB }

// Ratio returns the compression ratio.
func (g *GainComputer) Ratio() float64 { return g.ratio }

// Knee returns the knee width in dB.
func (g *GainComputer) Knee() float64 { return g.kneeDB }

// Gain returns the linear gain for a linear detector level.
func (g *GainComputer) Gain(level float64) float64 {
	if level <= 0 {
		return 1
	}

	overshoot := math.Log2(level) - g.thresholdLog2

	if g.kneeDB <= 0 {
		if overshoot <= 0 {
			return 1
		}

		return math.Exp2(-overshoot * g.factor)
	}

	half := g.kneeWidthLog2 * 0.5
	if overshoot < -half {
		return 1
	}

	effective := overshoot
	if overshoot <= half {
		s := overshoot + half
		effective = s * s * 0.5 * g.invKneeWidthLog2
	}

	return math.Exp2(-effective * g.factor)
}
