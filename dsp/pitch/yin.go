// Package pitch estimates the fundamental frequency of short frames with
// the YIN algorithm.
package pitch

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange is returned for non-positive or inverted frequency ranges.
var ErrInvalidRange = errors.New("pitch: invalid frequency range")

// DefaultThreshold is the usual absolute threshold on the cumulative mean
// normalized difference.
const DefaultThreshold = 0.15

// Result is the outcome of one detection.
type Result struct {
	// Hz is the estimated fundamental, 0 when unvoiced.
	Hz float64
	// Confidence is 1 minus the normalized difference at the chosen lag.
	Confidence float64
	// Aperiodicity is the normalized difference at the chosen lag, or 1.
	Aperiodicity float64
	// Voiced reports whether a lag passed the threshold.
	Voiced bool
}

// HNR returns a harmonics-to-noise ratio estimate in dB derived from the
// aperiodicity, clamped to [-20, 40].
func (r Result) HNR() float64 {
	ap := math.Min(math.Max(r.Aperiodicity, 1e-4), 1)
	if ap >= 1 {
		return -20
	}

	return math.Min(math.Max(10*math.Log10((1-ap)/ap), -20), 40)
}

// Detector runs YIN on frames of up to a fixed length with preallocated
// scratch. It is not safe for concurrent use.
type Detector struct {
	sampleRate float64
	minHz      float64
	maxHz      float64
	threshold  float64

	diff []float64
	cmnd []float64
}

// NewDetector returns a detector for the given sample rate and search range.
// A non-positive threshold selects [DefaultThreshold].
func NewDetector(sampleRate, minHz, maxHz, threshold float64) (*Detector, error) {
	if sampleRate <= 0 || minHz <= 0 || maxHz <= minHz {
		return nil, fmt.Errorf("%w: sampleRate=%g min=%g max=%g", ErrInvalidRange, sampleRate, minHz, maxHz)
	}

	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	tauMax := int(sampleRate/minHz) + 1

	return &Detector{
		sampleRate: sampleRate,
		minHz:      minHz,
		maxHz:      maxHz,
		threshold:  threshold,
		diff:       make([]float64, tauMax+1),
		cmnd:       make([]float64, tauMax+1),
	}, nil
}

// SetThreshold changes the absolute threshold. A non-positive value
// selects [DefaultThreshold].
func (d *Detector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	d.threshold = threshold
}

// MinFrameLength returns the frame length needed to cover the lowest
// frequency of the search range.
func (d *Detector) MinFrameLength() int {
	return int(d.sampleRate/d.minHz) + 1
}

// Detect estimates the pitch of frame.
func (d *Detector) Detect(frame []float64) Result {
	unvoiced := Result{Aperiodicity: 1}

	n := len(frame)
	tauMin := max(int(d.sampleRate/d.maxHz), 1)
	tauMax := min(int(d.sampleRate/d.minHz), n-1, len(d.diff)-1)

	if tauMax <= tauMin {
		return unvoiced
	}

	diff := d.diff[:tauMax+1]
	cmnd := d.cmnd[:tauMax+1]

	for tau := 1; tau <= tauMax; tau++ {
		sum := 0.0

		for i := 0; i < n-tau; i++ {
			delta := frame[i] - frame[i+tau]
			sum += delta * delta
		}

		diff[tau] = sum
	}

	cmnd[0] = 1
	running := 0.0

	for tau := 1; tau <= tauMax; tau++ {
		running += diff[tau]
		if running > 0 {
			cmnd[tau] = diff[tau] * float64(tau) / running
		} else {
			cmnd[tau] = 1
		}
	}

	tau := -1

	for t := tauMin; t <= tauMax; t++ {
		if cmnd[t] < d.threshold {
			for t+1 <= tauMax && cmnd[t+1] < cmnd[t] {
				t++
			}

			tau = t

			break
		}
	}

	if tau < 0 {
		return unvoiced
	}

	ap := cmnd[tau]
	refined := float64(tau)

	if tau > 1 && tau < tauMax {
		s0, s1, s2 := cmnd[tau-1], cmnd[tau], cmnd[tau+1]
		if den := 2 * (2*s1 - s2 - s0); den != 0 {
			refined += (s2 - s0) / den
		}
	}

	return Result{
		Hz:           d.sampleRate / refined,
		Confidence:   math.Min(math.Max(1-ap, 0), 1),
		Aperiodicity: ap,
		Voiced:       true,
	}
}

// Detect is a convenience wrapper allocating a fresh [Detector]. ok is false
// when no lag passes the threshold or the range is invalid.
func Detect(frame []float64, sampleRate, minHz, maxHz, threshold float64) (hz, confidence float64, ok bool) {
	d, err := NewDetector(sampleRate, minHz, maxHz, threshold)
	if err != nil {
		return 0, 0, false
	}

	r := d.Detect(frame)

	return r.Hz, r.Confidence, r.Voiced
}
