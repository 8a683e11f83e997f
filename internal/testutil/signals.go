// Package testutil holds deterministic test signals and tolerance helpers
// shared by the DSP, host and plugin tests.
package testutil

import (
	"iter"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-hotmic/dsp/core"
)

// Sine generates a deterministic sine wave.
func Sine[T core.Sample](freqHz, sampleRate, amplitude float64, length int) []T {
	out := make([]T, length)

	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = T(amplitude * math.Sin(step*float64(i)))
	}

	return out
}

// Noise generates white noise with a fixed seed for reproducibility.
func Noise[T core.Sample](seed int64, amplitude float64, length int) []T {
	out := make([]T, length)

	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = T((rng.Float64()*2 - 1) * amplitude)
	}

	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse[T core.Sample](length, pos int) []T {
	out := make([]T, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}

	return out
}

// DC generates a constant-valued signal.
func DC[T core.Sample](value float64, length int) []T {
	out := make([]T, length)
	for i := range out {
		out[i] = T(value)
	}

	return out
}

// Vowel synthesizes a crude voiced sound: an impulse train at f0 driven
// through one two-pole resonator per formant frequency, normalized to peak.
func Vowel[T core.Sample](f0, sampleRate, peak float64, formants []float64, length int) []T {
	src := make([]float64, length)

	period := sampleRate / f0
	for next := 0.0; int(next) < length; next += period {
		src[int(next)] = 1
	}

	for _, fc := range formants {
		const bandwidth = 80.0

		r := math.Exp(-math.Pi * bandwidth / sampleRate)
		a1 := -2 * r * math.Cos(2*math.Pi*fc/sampleRate)
		a2 := r * r

		var y1, y2 float64
		for i, x := range src {
			y := x - a1*y1 - a2*y2
			y2, y1 = y1, y
			src[i] = y
		}
	}

	maxAbs := 0.0
	for _, v := range src {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}

	out := make([]T, length)
	if maxAbs == 0 {
		return out
	}

	for i, v := range src {
		out[i] = T(v / maxAbs * peak)
	}

	return out
}

// Blocks yields consecutive sub-slices of buf of at most size samples.
func Blocks[T any](buf []T, size int) iter.Seq2[int, []T] {
	return func(yield func(int, []T) bool) {
		if size <= 0 {
			return
		}

		for start := 0; start < len(buf); start += size {
			end := min(start+size, len(buf))
			if !yield(start, buf[start:end]) {
				return
			}
		}
	}
}
