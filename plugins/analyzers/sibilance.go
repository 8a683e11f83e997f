package analyzers

import (
	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/filter/biquad"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Sibilance detector parameter indices.
const (
	SibilanceParamFrequency = iota
	SibilanceParamSilenceDB
)

// High-band share of the block energy mapped to fricative activity 0..1.
const (
	fricativeRatioLo = 0.2
	fricativeRatioHi = 0.6
)

var sibilanceSignals = analysis.MaskOf(analysis.SibilanceEnergy, analysis.FricativeActivity)

// SibilanceDetector splits off the band above a corner frequency with two
// cascaded highpass sections and reports its energy and its share of the
// block energy.
type SibilanceDetector struct {
	plugin.Base

	sampleRate float64
	seen       uint64
	hp         [2]*biquad.Section
	band       []float32

	energy   float64
	activity float64
}

// NewSibilanceDetector returns a detector with a 5 kHz corner.
func NewSibilanceDetector() *SibilanceDetector {
	return &SibilanceDetector{
		Base: plugin.NewBase("sibilance-detector",
			plugin.NewParam("frequency", "Hz", 2000, 10000, 5000),
			plugin.NewParam("silence", "dB", -90, -20, -60),
		),
	}
}

// Initialize implements plugin.Plugin.
func (s *SibilanceDetector) Initialize(sampleRate float64, blockSize int) error {
	s.sampleRate = sampleRate
	s.band = core.EnsureLen(s.band, blockSize)

	for i := range s.hp {
		s.hp[i] = biquad.NewSection(biquad.Passthrough)
	}

	s.seen, _ = s.Changed(0)
	s.design()

	return nil
}

func (s *SibilanceDetector) design() {
	c := biquad.Highpass(float64(s.At(SibilanceParamFrequency).Get()), biquad.DefaultQ, s.sampleRate)
	for _, hp := range s.hp {
		hp.SetCoefficients(c)
	}
}

// ProducedSignals implements plugin.SignalProducer.
func (*SibilanceDetector) ProducedSignals() analysis.Mask { return sibilanceSignals }

// Energy returns the high-band mean square of the last block.
func (s *SibilanceDetector) Energy() float64 { return s.energy }

// Activity returns the fricative activity of the last block.
func (s *SibilanceDetector) Activity() float64 { return s.activity }

// Process implements plugin.Plugin.
func (s *SibilanceDetector) Process(buf []float32) {
	s.update(buf)
}

// ProcessContext implements plugin.ContextProcessor.
func (s *SibilanceDetector) ProcessContext(buf []float32, ctx *plugin.Context) {
	s.update(buf)

	ctx.Writer.Fill(analysis.SibilanceEnergy, float32(s.energy))
	ctx.Writer.Fill(analysis.FricativeActivity, float32(s.activity))
}

func (s *SibilanceDetector) update(buf []float32) {
	if v, changed := s.Changed(s.seen); changed {
		s.seen = v
		s.design()
	}

	n := min(len(buf), len(s.band))
	band := s.band[:n]

	s.hp[0].ProcessBlockTo(band, buf[:n])
	s.hp[1].ProcessBlock(band)

	total := meanSquare32(buf[:n])
	s.energy = meanSquare32(band)
	s.activity = 0

	if core.LinearToDB(total, 1e-12)/2 < float64(s.At(SibilanceParamSilenceDB).Get()) {
		return
	}

	s.activity = smoothstep(s.energy/total, fricativeRatioLo, fricativeRatioHi)
}
