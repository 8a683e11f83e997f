package spectral

import (
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/delay"
	"github.com/cwbudde/algo-hotmic/dsp/dynamics"
	"github.com/cwbudde/algo-hotmic/dsp/stft"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/meter"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Noise reduction parameter indices.
const (
	NoiseParamStrength = iota
	NoiseParamFloorDB
	NoiseParamAdaptMs
	NoiseParamMix
)

// Presence below this value lets the noise estimate learn.
const learnPresence = 0.5

// Without a presence signal the estimate falls with the adapt time and
// rises this many times slower, settling below the mean noise power.
const minimumRiseFactor = 4

// NoiseReduction removes a stationary noise estimate by spectral
// subtraction. When speech presence is available the estimate only learns
// while presence is low; otherwise it leans towards spectral minima.
type NoiseReduction struct {
	plugin.Base

	sampleRate float64
	engine     *stft.Engine
	dry        *delay.Fixed
	seen       uint64

	spec   parts
	power  []float64
	noise  []float64
	frames int

	strength float64
	floorLin float64
	learn    float64
	rise     float64
	mix      float32

	learning  bool
	available analysis.Mask
	process   stft.BinFunc
	wet       []float32

	reduction *meter.Level
}

// NewNoiseReduction returns a noise reduction with moderate defaults.
func NewNoiseReduction() *NoiseReduction {
	n := &NoiseReduction{
		Base: plugin.NewBase("noise-reduction",
			plugin.NewParam("strength", "", 0, 4, 2),
			plugin.NewParam("floor", "dB", -60, 0, -25),
			plugin.NewParam("adapt", "ms", 50, 5000, 1000),
			plugin.NewParam("mix", "", 0, 1, 1),
		),
		reduction: &meter.Level{},
	}
	n.process = n.processBins

	return n
}

// Initialize implements plugin.Plugin.
func (n *NoiseReduction) Initialize(sampleRate float64, blockSize int) error {
	e, err := newEngine("noise-reduction", sampleRate)
	if err != nil {
		return err
	}

	dry, err := delay.NewFixed(e.Latency())
	if err != nil {
		return err
	}

	bins := e.Bins()
	n.sampleRate = sampleRate
	n.engine = e
	n.dry = dry
	n.spec = newParts(bins)
	n.power = make([]float64, bins)
	n.noise = make([]float64, bins)
	n.wet = make([]float32, blockSize)
	n.frames = 0
	n.seen, _ = n.Changed(0)
	n.refresh()

	return nil
}

func (n *NoiseReduction) refresh() {
	hopRate := n.sampleRate / float64(n.engine.Hop())
	adapt := float64(n.At(NoiseParamAdaptMs).Get())

	n.strength = float64(n.At(NoiseParamStrength).Get())
	n.floorLin = core.DBToLinear(float64(n.At(NoiseParamFloorDB).Get()))
	n.learn = 1 - dynamics.Coefficient(adapt, hopRate)
	n.rise = 1 - dynamics.Coefficient(adapt*minimumRiseFactor, hopRate)
	n.mix = n.At(NoiseParamMix).Get()
}

// Latency implements plugin.LatencyReporter.
func (n *NoiseReduction) Latency() int {
	if n.engine == nil {
		return 0
	}

	return n.engine.Latency()
}

// RequiredSignals implements plugin.SignalConsumer.
func (*NoiseReduction) RequiredSignals() analysis.Mask {
	return analysis.MaskOf(analysis.SpeechPresence)
}

// SignalsAvailable implements plugin.SignalConsumer.
func (n *NoiseReduction) SignalsAvailable(m analysis.Mask) {
	n.available = m
}

// Meters implements plugin.Metered.
func (n *NoiseReduction) Meters() plugin.Meters {
	return plugin.Meters{Levels: map[string]*meter.Level{"reduction": n.reduction}}
}

// NoiseEstimate copies the per-bin noise power estimate into dst.
func (n *NoiseReduction) NoiseEstimate(dst []float64) int {
	return copy(dst, n.noise)
}

// Process implements plugin.Plugin.
func (n *NoiseReduction) Process(buf []float32) {
	n.learning = true
	n.run(buf)
}

// ProcessContext implements plugin.ContextProcessor.
func (n *NoiseReduction) ProcessContext(buf []float32, ctx *plugin.Context) {
	n.learning = true

	if src := ctx.Signals.Source(analysis.SpeechPresence); src.Valid() {
		sum := 0.0
		for i := range buf {
			sum += float64(src.ReadSample(ctx.SampleTime + int64(i)))
		}

		n.learning = len(buf) == 0 || sum/float64(len(buf)) < learnPresence
	}

	n.run(buf)
}

func (n *NoiseReduction) run(buf []float32) {
	if v, changed := n.Changed(n.seen); changed {
		n.seen = v
		n.refresh()
	}

	size := min(len(buf), len(n.wet))
	wet := n.wet[:size]
	copy(wet, buf[:size])
	n.engine.Process(wet, n.process)

	n.dry.ProcessInPlace(buf[:size])

	if n.mix >= 1 {
		copy(buf, wet)
		return
	}

	for i, w := range wet {
		buf[i] += (w - buf[i]) * n.mix
	}
}

func (n *NoiseReduction) processBins(bins []complex128) {
	n.spec.load(bins)
	vecmath.Power(n.power, n.spec.re, n.spec.im)

	presence := n.available.Has(analysis.SpeechPresence)

	switch {
	case n.frames == 0:
		copy(n.noise, n.power)
	case presence && n.learning:
		for k, p := range n.power {
			n.noise[k] += (p - n.noise[k]) * n.learn
		}
	case !presence:
		for k, p := range n.power {
			if p < n.noise[k] {
				n.noise[k] += (p - n.noise[k]) * n.learn
			} else {
				n.noise[k] += (p - n.noise[k]) * n.rise
			}
		}
	}

	n.frames++

	gainSum := 0.0

	for k, p := range n.power {
		g := 1.0
		if p > powerFloor {
			g = math.Sqrt(max(1-n.strength*n.noise[k]/p, 0))
		}

		g = max(g, n.floorLin)
		gainSum += g
		bins[k] *= complex(g, 0)
	}

	n.reduction.Store(core.LinearToDB(gainSum/float64(len(bins)), 1e-6))
}
