// Package utility holds small plugins without analysis: a gain stage and a
// signal blocker.
package utility

import (
	"math"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/host/meter"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Gain parameter indices.
const (
	GainParamGain = iota
	GainParamMute
)

const gainRampSamples = 64

// Gain scales the signal by a gain in dB. Changes ramp over a few samples
// to avoid zipper noise.
type Gain struct {
	plugin.Base

	seen    uint64
	target  float32
	current float32

	output *meter.Peak
}

// NewGain returns a unity gain stage.
func NewGain() *Gain {
	return &Gain{
		Base: plugin.NewBase("gain",
			plugin.NewParam("gain", "dB", -60, 24, 0),
			plugin.NewParam("mute", "", 0, 1, 0),
		),
		current: 1,
		target:  1,
		output:  &meter.Peak{},
	}
}

// Initialize implements plugin.Plugin.
func (g *Gain) Initialize(float64, int) error {
	g.refresh()
	g.current = g.target

	return nil
}

// Meters implements plugin.Metered.
func (g *Gain) Meters() plugin.Meters {
	return plugin.Meters{Peaks: map[string]*meter.Peak{"output": g.output}}
}

func (g *Gain) refresh() {
	v, changed := g.Changed(g.seen)
	if !changed {
		return
	}

	g.seen = v

	if g.At(GainParamMute).Bool() {
		g.target = 0
		return
	}

	g.target = float32(core.DBToLinear(float64(g.At(GainParamGain).Get())))
}

// Process implements plugin.Plugin.
func (g *Gain) Process(buf []float32) {
	g.refresh()

	step := (g.target - g.current) / gainRampSamples
	peak := float32(0)

	for i, x := range buf {
		if g.current != g.target {
			g.current += step
			if (step > 0 && g.current > g.target) || (step < 0 && g.current < g.target) {
				g.current = g.target
			}
		}

		y := x * g.current
		buf[i] = y

		if a := float32(math.Abs(float64(y))); a > peak {
			peak = a
		}
	}

	g.output.Publish(float64(peak))
}
