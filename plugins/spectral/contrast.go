package spectral

import (
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/stft"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Spectral contrast parameter indices.
const (
	ContrastParamAmount = iota
	ContrastParamWidth
)

const (
	contrastMinGain = 0.25
	contrastMaxGain = 4.0
)

// SpectralContrast raises bins above the mean of their neighbours and
// lowers bins below it, then restores the frame energy.
type SpectralContrast struct {
	plugin.Base

	engine  *stft.Engine
	spec    parts
	mag     []float64
	gain    []float64
	process stft.BinFunc
}

// NewSpectralContrast returns a contrast boost with a four-bin neighbourhood.
func NewSpectralContrast() *SpectralContrast {
	c := &SpectralContrast{
		Base: plugin.NewBase("spectral-contrast",
			plugin.NewParam("amount", "", 0, 1, 0.5),
			plugin.NewParam("width", "bins", 1, 16, 4),
		),
	}
	c.process = c.processBins

	return c
}

// Initialize implements plugin.Plugin.
func (c *SpectralContrast) Initialize(sampleRate float64, _ int) error {
	e, err := newEngine("spectral-contrast", sampleRate)
	if err != nil {
		return err
	}

	c.engine = e
	c.spec = newParts(e.Bins())
	c.mag = make([]float64, e.Bins())
	c.gain = make([]float64, e.Bins())

	return nil
}

// Latency implements plugin.LatencyReporter.
func (c *SpectralContrast) Latency() int {
	if c.engine == nil {
		return 0
	}

	return c.engine.Latency()
}

// Process implements plugin.Plugin.
func (c *SpectralContrast) Process(buf []float32) {
	c.engine.Process(buf, c.process)
}

func (c *SpectralContrast) processBins(bins []complex128) {
	amount := float64(c.At(ContrastParamAmount).Get())
	width := int(c.At(ContrastParamWidth).Get())

	c.spec.load(bins)
	vecmath.Magnitude(c.mag, c.spec.re, c.spec.im)

	before := vecmath.DotProduct(c.mag, c.mag)
	if before <= powerFloor || amount == 0 {
		return
	}

	n := len(c.mag)

	for k := range c.mag {
		lo, hi := max(k-width, 0), min(k+width, n-1)

		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += c.mag[j]
		}

		mean := sum / float64(hi-lo+1)

		g := 1.0
		if mean > 0 && c.mag[k] > 0 {
			g = math.Pow(c.mag[k]/mean, amount)
		}

		c.gain[k] = core.Clamp(g, contrastMinGain, contrastMaxGain)
	}

	vecmath.MulBlockInPlace(c.mag, c.gain)

	after := vecmath.DotProduct(c.mag, c.mag)
	if after <= powerFloor {
		return
	}

	vecmath.ScaleBlockInPlace(c.gain, math.Sqrt(before/after))

	for k, g := range c.gain {
		bins[k] *= complex(g, 0)
	}
}
