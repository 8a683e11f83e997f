// Package dynamics holds the level-dependent gain plugins: a speech gate
// driven by the speech presence signal, a compressor and a de-esser that
// follows the sibilance energy signal when one is available.
package dynamics

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/dynamics"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/meter"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Speech gate parameter indices.
const (
	GateParamThreshold = iota
	GateParamFloorDB
	GateParamAttackMs
	GateParamReleaseMs
)

// SpeechGate attenuates the signal while speech presence is below a
// threshold. Without a presence producer it passes audio unchanged and
// reports that in its status.
type SpeechGate struct {
	plugin.Base

	sampleRate float64
	seen       uint64

	openCoeff  float64
	closeCoeff float64
	floorLin   float64
	gain       float64

	// present is written from SignalsAvailable and read by Status on any
	// goroutine.
	present atomic.Bool

	gainDB *meter.Level
	output *meter.Peak
}

// NewSpeechGate returns a gate with a -30 dB floor.
func NewSpeechGate() *SpeechGate {
	return &SpeechGate{
		Base: plugin.NewBase("speech-gate",
			plugin.NewParam("threshold", "", 0, 1, 0.5),
			plugin.NewParam("floor", "dB", -80, 0, -30),
			plugin.NewParam("attack", "ms", 0.5, 100, 5),
			plugin.NewParam("release", "ms", 5, 2000, 150),
		),
		gain:   1,
		gainDB: &meter.Level{},
		output: &meter.Peak{},
	}
}

// Initialize implements plugin.Plugin.
func (g *SpeechGate) Initialize(sampleRate float64, _ int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("speech-gate: invalid sample rate %g", sampleRate)
	}

	g.sampleRate = sampleRate
	g.seen, _ = g.Changed(0)
	g.refresh()
	g.gain = 1

	return nil
}

func (g *SpeechGate) refresh() {
	g.openCoeff = 1 - dynamics.Coefficient(float64(g.At(GateParamAttackMs).Get()), g.sampleRate)
	g.closeCoeff = 1 - dynamics.Coefficient(float64(g.At(GateParamReleaseMs).Get()), g.sampleRate)
	g.floorLin = core.DBToLinear(float64(g.At(GateParamFloorDB).Get()))
}

// RequiredSignals implements plugin.SignalConsumer.
func (*SpeechGate) RequiredSignals() analysis.Mask {
	return analysis.MaskOf(analysis.SpeechPresence)
}

// SignalsAvailable implements plugin.SignalConsumer.
func (g *SpeechGate) SignalsAvailable(m analysis.Mask) {
	g.present.Store(m.Has(analysis.SpeechPresence))
}

// Status implements plugin.StatusProvider.
func (g *SpeechGate) Status() string {
	if !g.present.Load() {
		return "no speech presence producer; gate open"
	}

	return ""
}

// Meters implements plugin.Metered.
func (g *SpeechGate) Meters() plugin.Meters {
	return plugin.Meters{
		Levels: map[string]*meter.Level{"gain": g.gainDB},
		Peaks:  map[string]*meter.Peak{"output": g.output},
	}
}

// Process implements plugin.Plugin. Without signals the gate stays open.
func (g *SpeechGate) Process(buf []float32) {
	g.output.Publish(float64(core.PeakAbs(buf)))
}

// ProcessContext implements plugin.ContextProcessor.
func (g *SpeechGate) ProcessContext(buf []float32, ctx *plugin.Context) {
	if v, changed := g.Changed(g.seen); changed {
		g.seen = v
		g.refresh()
	}

	src := ctx.Signals.Source(analysis.SpeechPresence)
	if !src.Valid() {
		g.Process(buf)
		return
	}

	threshold := g.At(GateParamThreshold).Get()

	for i, x := range buf {
		target, coeff := g.floorLin, g.closeCoeff
		if src.ReadSample(ctx.SampleTime+int64(i)) >= threshold {
			target, coeff = 1, g.openCoeff
		}

		g.gain += (target - g.gain) * coeff
		buf[i] = x * float32(g.gain)
	}

	g.gainDB.Store(core.LinearToDB(g.gain, 1e-6))
	g.output.Publish(float64(core.PeakAbs(buf)))
}
