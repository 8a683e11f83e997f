package spectral

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/stft"
	"github.com/cwbudde/algo-hotmic/dsp/window"
	"github.com/cwbudde/algo-hotmic/host/meter"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Spectrum parameter indices.
const (
	SpectrumParamSmoothing = iota
)

// Power floor of the published spectrum, -140 dB.
const spectrumFloor = 1e-14

// Spectrum publishes a smoothed power spectrum in dB for display. Audio
// passes through untouched. Readers on other goroutines take the latest
// frame with [Spectrum.Snapshot].
type Spectrum struct {
	plugin.Base

	sampleRate float64
	engine     *stft.Engine
	spec       parts
	power      []float64
	smooth     []float64
	out        []float32
	frame      func([]complex128)

	published *meter.ArrayBuffer[float32]
}

// NewSpectrum returns a display spectrum.
func NewSpectrum() *Spectrum {
	s := &Spectrum{
		Base: plugin.NewBase("spectrum",
			plugin.NewParam("smoothing", "", 0, 0.99, 0.7),
		),
		published: meter.NewArrayBuffer[float32](0),
	}
	s.frame = s.onFrame

	return s
}

// Initialize implements plugin.Plugin. The frame is about 40 ms with a
// Hann analysis window.
func (s *Spectrum) Initialize(sampleRate float64, _ int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("spectrum: invalid sample rate %g", sampleRate)
	}

	size := max(core.NextPowerOfTwo(int(sampleRate*frameSec*2)), minFrame)

	e, err := stft.New(size, size/overlap, stft.WithWindows(window.TypeHann, window.TypeRectangular))
	if err != nil {
		return fmt.Errorf("spectrum: %w", err)
	}

	bins := e.Bins()
	s.sampleRate = sampleRate
	s.engine = e
	s.spec = newParts(bins)
	s.power = make([]float64, bins)
	s.smooth = make([]float64, bins)
	s.out = make([]float32, bins)
	s.published = meter.NewArrayBuffer[float32](bins)

	return nil
}

// Bins returns the number of published values.
func (s *Spectrum) Bins() int {
	return s.published.Len()
}

// BinFrequency returns the centre frequency of bin k.
func (s *Spectrum) BinFrequency(k int) float64 {
	if s.engine == nil {
		return 0
	}

	return s.engine.BinFrequency(k, s.sampleRate)
}

// Snapshot copies the latest spectrum in dB into dst. It is safe to call
// from any goroutine. seq is zero until the first frame completes.
func (s *Spectrum) Snapshot(dst []float32) (n int, seq uint64) {
	return s.published.Snapshot(dst)
}

// Process implements plugin.Plugin.
func (s *Spectrum) Process(buf []float32) {
	s.engine.Analyze(buf, s.frame)
}

// ProcessContext implements plugin.ContextProcessor. It also emits the
// latest spectrum to the capture sink.
func (s *Spectrum) ProcessContext(buf []float32, ctx *plugin.Context) {
	before := s.published.Published()
	s.engine.Analyze(buf, s.frame)

	if s.published.Published() != before {
		ctx.Emit("spectrum", s.out)
	}
}

func (s *Spectrum) onFrame(bins []complex128) {
	s.spec.load(bins)
	vecmath.Power(s.power, s.spec.re, s.spec.im)

	// A full-scale sine peaks at N/4 with a Hann window; scale it to 0 dB.
	n := float64(s.engine.Size())
	vecmath.ScaleBlockInPlace(s.power, 16/(n*n))

	a := float64(s.At(SpectrumParamSmoothing).Get())

	for k, p := range s.power {
		s.smooth[k] = a*s.smooth[k] + (1-a)*p
		s.out[k] = float32(core.LinearToDB(s.smooth[k], spectrumFloor) / 2)
	}

	s.published.PublishFrom(s.out)
}
