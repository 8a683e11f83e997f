// Package spectral holds the STFT plugins: noise reduction by spectral
// subtraction, a neighbour contrast boost and a display spectrum. The
// processing plugins delay their output by the STFT latency and report it.
package spectral

import (
	"fmt"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/stft"
)

const (
	frameSec   = 0.02
	minFrame   = 64
	overlap    = 4
	powerFloor = 1e-20
)

// newEngine returns a sqrt-Hann engine with a frame of about 20 ms and a
// quarter-frame hop.
func newEngine(name string, sampleRate float64) (*stft.Engine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%s: invalid sample rate %g", name, sampleRate)
	}

	size := max(core.NextPowerOfTwo(int(sampleRate*frameSec)), minFrame)

	e, err := stft.New(size, size/overlap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return e, nil
}

// parts holds the real and imaginary split of one half spectrum.
type parts struct {
	re, im []float64
}

func newParts(n int) parts {
	return parts{re: make([]float64, n), im: make([]float64, n)}
}

func (p parts) load(bins []complex128) {
	for k, v := range bins {
		p.re[k] = real(v)
		p.im[k] = imag(v)
	}
}
