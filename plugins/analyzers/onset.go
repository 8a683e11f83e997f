package analyzers

import (
	"fmt"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/stft"
	"github.com/cwbudde/algo-hotmic/dsp/window"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Onset detector parameter indices.
const (
	OnsetParamSensitivity = iota
	OnsetParamAverageMs
)

const onsetFrameSec = 0.02

var onsetSignals = analysis.MaskOf(analysis.SpectralFlux, analysis.OnsetFlux)

// OnsetDetector computes the half-wave rectified spectral flux per STFT
// frame. OnsetFlux is the flux above a running average scaled by the
// sensitivity.
type OnsetDetector struct {
	plugin.Base

	engine *stft.Engine
	hopSec float64

	re, im []float64
	mag    []float64
	prev   []float64

	frameFlux  func([]complex128)
	blockFlux  float64
	blockOnset float64
	average    float64

	flux  float64
	onset float64
}

// NewOnsetDetector returns an onset detector.
func NewOnsetDetector() *OnsetDetector {
	o := &OnsetDetector{
		Base: plugin.NewBase("onset-detector",
			plugin.NewParam("sensitivity", "", 1, 5, 1.5),
			plugin.NewParam("average", "ms", 20, 2000, 250),
		),
	}
	o.frameFlux = o.onFrame

	return o
}

// Initialize implements plugin.Plugin.
func (o *OnsetDetector) Initialize(sampleRate float64, _ int) error {
	size := max(core.NextPowerOfTwo(int(sampleRate*onsetFrameSec)), 16)

	e, err := stft.New(size, size/4, stft.WithWindows(window.TypeHann, window.TypeRectangular))
	if err != nil {
		return fmt.Errorf("onset-detector: %w", err)
	}

	bins := e.Bins()
	o.engine = e
	o.hopSec = float64(e.Hop()) / sampleRate
	o.re = make([]float64, bins)
	o.im = make([]float64, bins)
	o.mag = make([]float64, bins)
	o.prev = make([]float64, bins)
	o.average = 0
	o.flux, o.onset = 0, 0

	return nil
}

// ProducedSignals implements plugin.SignalProducer.
func (*OnsetDetector) ProducedSignals() analysis.Mask { return onsetSignals }

// Flux returns the largest frame flux of the last block.
func (o *OnsetDetector) Flux() float64 { return o.flux }

// Onset returns the onset strength of the last block.
func (o *OnsetDetector) Onset() float64 { return o.onset }

// Process implements plugin.Plugin.
func (o *OnsetDetector) Process(buf []float32) {
	o.update(buf)
}

// ProcessContext implements plugin.ContextProcessor.
func (o *OnsetDetector) ProcessContext(buf []float32, ctx *plugin.Context) {
	o.update(buf)

	ctx.Writer.Fill(analysis.SpectralFlux, float32(o.flux))
	ctx.Writer.Fill(analysis.OnsetFlux, float32(o.onset))
}

func (o *OnsetDetector) update(buf []float32) {
	o.blockFlux, o.blockOnset = 0, 0
	o.engine.Analyze(buf, o.frameFlux)
	o.flux, o.onset = o.blockFlux, o.blockOnset
}

func (o *OnsetDetector) onFrame(bins []complex128) {
	for k, c := range bins {
		o.re[k] = real(c)
		o.im[k] = imag(c)
	}

	vecmath.Magnitude(o.mag, o.re, o.im)

	flux := 0.0
	for k, m := range o.mag {
		if d := m - o.prev[k]; d > 0 {
			flux += d
		}
	}

	flux /= float64(len(o.mag))
	copy(o.prev, o.mag)

	avgSec := float64(o.At(OnsetParamAverageMs).Get()) * 0.001
	alpha := min(o.hopSec/avgSec, 1)

	onset := max(flux-float64(o.At(OnsetParamSensitivity).Get())*o.average, 0)
	o.average += alpha * (flux - o.average)

	o.blockFlux = max(o.blockFlux, flux)
	o.blockOnset = max(o.blockOnset, onset)
}
