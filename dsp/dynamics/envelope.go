package dynamics

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidTime = errors.New("dynamics: time constant must be positive and finite")

// Coefficient returns the one-pole coefficient for a half-life of ms
// milliseconds at sampleRate. Attack uses 1-c, release uses c directly.
func Coefficient(ms, sampleRate float64) float64 {
	if ms <= 0 || sampleRate <= 0 {
		return 0
	}

	return math.Exp(-math.Ln2 / (ms * 0.001 * sampleRate))
}

// Envelope is a peak follower with separate attack and release times.
type Envelope struct {
	sampleRate float64
	attackMs   float64
	releaseMs  float64

	attackCoeff  float64
	releaseCoeff float64

	level float64
}

// NewEnvelope returns a follower with the given times in milliseconds.
func NewEnvelope(sampleRate, attackMs, releaseMs float64) (*Envelope, error) {
	e := &Envelope{sampleRate: sampleRate}
	if err := e.SetTimes(attackMs, releaseMs); err != nil {
		return nil, err
	}

	return e, nil
}

// SetTimes updates attack and release without resetting the level.
func (e *Envelope) SetTimes(attackMs, releaseMs float64) error {
	if !validTime(e.sampleRate) {
		return fmt.Errorf("%w: sample rate %g", ErrInvalidTime, e.sampleRate)
	}

	if !validTime(attackMs) {
		return fmt.Errorf("%w: attack %g ms", ErrInvalidTime, attackMs)
	}

	if !validTime(releaseMs) {
		return fmt.Errorf("%w: release %g ms", ErrInvalidTime, releaseMs)
	}

	e.attackMs = attackMs
	e.releaseMs = releaseMs
	e.attackCoeff = 1 - Coefficient(attackMs, e.sampleRate)
	e.releaseCoeff = Coefficient(releaseMs, e.sampleRate)

	return nil
}

// Attack returns the attack time in milliseconds.
func (e *Envelope) Attack() float64 { return e.attackMs }

// Release returns the release time in milliseconds.
func (e *Envelope) Release() float64 { return e.releaseMs }

// Level returns the current envelope value.
func (e *Envelope) Level() float64 { return e.level }

// Tick follows |x| and returns the new level.
func (e *Envelope) Tick(x float64) float64 {
	x = math.Abs(x)
	if x > e.level {
		e.level += (x - e.level) * e.attackCoeff
	} else {
		e.level = x + (e.level-x)*e.releaseCoeff
	}

	return e.level
}

// Reset clears the level.
func (e *Envelope) Reset() {
	e.level = 0
}

func validTime(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
