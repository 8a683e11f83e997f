package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/dynamics"
	"github.com/cwbudde/algo-hotmic/dsp/filter/biquad"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/meter"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// De-esser parameter indices.
const (
	DeEsserParamThresholdDB = iota
	DeEsserParamRatio
	DeEsserParamFrequency
	DeEsserParamRangeDB
)

const (
	deesserAttackMs  = 0.5
	deesserReleaseMs = 20.0
)

// DeEsser reduces the band above a corner frequency when it exceeds a
// threshold. The high band is the input minus its lowpass, so the two
// bands sum back to the input at unity gain. The detector follows the
// sibilance energy signal when a producer provides it and the de-esser's
// own band otherwise.
type DeEsser struct {
	plugin.Base

	sampleRate float64
	seen       uint64
	split      *biquad.Section
	env        *dynamics.Envelope
	curve      *dynamics.GainComputer
	rangeLin   float64
	band       []float32

	available analysis.Mask

	reduction *meter.Level
}

// NewDeEsser returns a de-esser with a 5 kHz split.
func NewDeEsser() *DeEsser {
	return &DeEsser{
		Base: plugin.NewBase("deesser",
			plugin.NewParam("threshold", "dB", -60, 0, -30),
			plugin.NewParam("ratio", "", 1, 20, 4),
			plugin.NewParam("frequency", "Hz", 2000, 10000, 5000),
			plugin.NewParam("range", "dB", -24, 0, -12),
		),
		reduction: &meter.Level{},
	}
}

// Initialize implements plugin.Plugin.
func (d *DeEsser) Initialize(sampleRate float64, blockSize int) error {
	env, err := dynamics.NewEnvelope(sampleRate, deesserAttackMs, deesserReleaseMs)
	if err != nil {
		return fmt.Errorf("deesser: %w", err)
	}

	curve, err := dynamics.NewGainComputer(float64(d.At(DeEsserParamThresholdDB).Get()), float64(d.At(DeEsserParamRatio).Get()), 0)
	if err != nil {
		return fmt.Errorf("deesser: %w", err)
	}

	d.sampleRate = sampleRate
	d.env, d.curve = env, curve
	d.split = biquad.NewSection(biquad.Passthrough)
	d.band = core.EnsureLen(d.band, blockSize)
	d.seen, _ = d.Changed(0)
	d.design()

	return nil
}

func (d *DeEsser) design() {
	d.split.SetCoefficients(biquad.Lowpass(float64(d.At(DeEsserParamFrequency).Get()), biquad.DefaultQ, d.sampleRate))
	_ = d.curve.Set(float64(d.At(DeEsserParamThresholdDB).Get()), float64(d.At(DeEsserParamRatio).Get()), 0)
	d.rangeLin = core.DBToLinear(float64(d.At(DeEsserParamRangeDB).Get()))
}

// RequiredSignals implements plugin.SignalConsumer.
func (*DeEsser) RequiredSignals() analysis.Mask {
	return analysis.MaskOf(analysis.SibilanceEnergy)
}

// SignalsAvailable implements plugin.SignalConsumer.
func (d *DeEsser) SignalsAvailable(m analysis.Mask) {
	d.available = m
}

// Meters implements plugin.Metered.
func (d *DeEsser) Meters() plugin.Meters {
	return plugin.Meters{Levels: map[string]*meter.Level{"gain-reduction": d.reduction}}
}

// Process implements plugin.Plugin.
func (d *DeEsser) Process(buf []float32) {
	d.run(buf, analysis.Source{}, 0)
}

// ProcessContext implements plugin.ContextProcessor.
func (d *DeEsser) ProcessContext(buf []float32, ctx *plugin.Context) {
	d.run(buf, ctx.Signals.Source(analysis.SibilanceEnergy), ctx.SampleTime)
}

func (d *DeEsser) run(buf []float32, energy analysis.Source, start int64) {
	if v, changed := d.Changed(d.seen); changed {
		d.seen = v
		d.design()
	}

	n := min(len(buf), len(d.band))
	low := d.band[:n]
	d.split.ProcessBlockTo(low, buf[:n])

	minGain := 1.0

	for i, x := range buf[:n] {
		high := x - low[i]

		detect := float64(high)
		if energy.Valid() {
			detect = math.Sqrt(max(float64(energy.ReadSample(start+int64(i))), 0))
		}

		g := max(d.curve.Gain(d.env.Tick(detect)), d.rangeLin)
		minGain = min(minGain, g)
		buf[i] = low[i] + high*float32(g)
	}

	d.reduction.Store(core.LinearToDB(minGain, 1e-6))
}
