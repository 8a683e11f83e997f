package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/dynamics"
	"github.com/cwbudde/algo-hotmic/host/meter"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Compressor parameter indices.
const (
	CompParamThresholdDB = iota
	CompParamRatio
	CompParamKneeDB
	CompParamAttackMs
	CompParamReleaseMs
	CompParamMakeupDB
)

// Compressor is a feed-forward peak compressor with a soft knee.
type Compressor struct {
	plugin.Base

	seen   uint64
	env    *dynamics.Envelope
	curve  *dynamics.GainComputer
	makeup float64

	reduction *meter.Level
	input     *meter.Peak
	output    *meter.Peak
}

// NewCompressor returns a compressor with vocal defaults.
func NewCompressor() *Compressor {
	return &Compressor{
		Base: plugin.NewBase("compressor",
			plugin.NewParam("threshold", "dB", -60, 0, -18),
			plugin.NewParam("ratio", "", 1, 20, 3),
			plugin.NewParam("knee", "dB", 0, 12, 6),
			plugin.NewParam("attack", "ms", 0.1, 100, 5),
			plugin.NewParam("release", "ms", 5, 1000, 80),
			plugin.NewParam("makeup", "dB", 0, 24, 0),
		),
		reduction: &meter.Level{},
		input:     &meter.Peak{},
		output:    &meter.Peak{},
	}
}

// Initialize implements plugin.Plugin.
func (c *Compressor) Initialize(sampleRate float64, _ int) error {
	env, err := dynamics.NewEnvelope(sampleRate, float64(c.At(CompParamAttackMs).Get()), float64(c.At(CompParamReleaseMs).Get()))
	if err != nil {
		return fmt.Errorf("compressor: %w", err)
	}

	curve, err := dynamics.NewGainComputer(
		float64(c.At(CompParamThresholdDB).Get()),
		float64(c.At(CompParamRatio).Get()),
		float64(c.At(CompParamKneeDB).Get()))
	if err != nil {
		return fmt.Errorf("compressor: %w", err)
	}

	c.env, c.curve = env, curve
	c.makeup = core.DBToLinear(float64(c.At(CompParamMakeupDB).Get()))
	c.seen, _ = c.Changed(0)

	return nil
}

// Meters implements plugin.Metered.
func (c *Compressor) Meters() plugin.Meters {
	return plugin.Meters{
		Levels: map[string]*meter.Level{"gain-reduction": c.reduction},
		Peaks:  map[string]*meter.Peak{"input": c.input, "output": c.output},
	}
}

// refresh applies parameter changes. Parameters are clamped to valid
// ranges, so the setters cannot fail.
func (c *Compressor) refresh() {
	v, changed := c.Changed(c.seen)
	if !changed {
		return
	}

	c.seen = v
	_ = c.env.SetTimes(float64(c.At(CompParamAttackMs).Get()), float64(c.At(CompParamReleaseMs).Get()))
	_ = c.curve.Set(
		float64(c.At(CompParamThresholdDB).Get()),
		float64(c.At(CompParamRatio).Get()),
		float64(c.At(CompParamKneeDB).Get()))
	c.makeup = core.DBToLinear(float64(c.At(CompParamMakeupDB).Get()))
}

// Process implements plugin.Plugin.
func (c *Compressor) Process(buf []float32) {
	c.refresh()
	c.input.Publish(float64(core.PeakAbs(buf)))

	minGain := 1.0

	for i, x := range buf {
		g := c.curve.Gain(c.env.Tick(float64(x)))
		minGain = min(minGain, g)
		buf[i] = float32(float64(x) * g * c.makeup)
	}

	c.reduction.Store(core.LinearToDB(minGain, 1e-6))
	c.output.Publish(float64(core.PeakAbs(buf)))
}
