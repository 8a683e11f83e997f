package analyzers

import (
	"fmt"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/dynamics"
	"github.com/cwbudde/algo-hotmic/dsp/filter/biquad"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/meter"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Speech detector parameter indices.
const (
	SpeechParamThresholdDB = iota
	SpeechParamMarginDB
	SpeechParamAttackMs
	SpeechParamReleaseMs
)

const (
	speechHighpassHz   = 100.0
	speechFloorRiseDB  = 3.0 // per second
	speechTransitionDB = 6.0
	speechFloorMinDB   = -100.0
)

var speechSignals = analysis.MaskOf(analysis.SpeechPresence)

// SpeechDetector estimates speech presence from the band-limited block
// level against an adaptive noise floor. The presence track is smoothed
// per sample with separate attack and release.
type SpeechDetector struct {
	plugin.Base

	sampleRate float64
	hp         *biquad.Section
	env        *dynamics.Envelope
	seen       uint64

	band    []float32
	values  []float32
	floorDB float64
	primed  bool

	presence *meter.Level
	floor    *meter.Level
}

// NewSpeechDetector returns a detector with speech-oriented defaults.
func NewSpeechDetector() *SpeechDetector {
	return &SpeechDetector{
		Base: plugin.NewBase("speech-detector",
			plugin.NewParam("threshold", "dB", -80, -10, -50),
			plugin.NewParam("margin", "dB", 3, 30, 9),
			plugin.NewParam("attack", "ms", 1, 200, 10),
			plugin.NewParam("release", "ms", 10, 2000, 200),
		),
		presence: &meter.Level{},
		floor:    &meter.Level{},
	}
}

// Initialize implements plugin.Plugin.
func (s *SpeechDetector) Initialize(sampleRate float64, blockSize int) error {
	env, err := dynamics.NewEnvelope(sampleRate,
		float64(s.At(SpeechParamAttackMs).Get()),
		float64(s.At(SpeechParamReleaseMs).Get()))
	if err != nil {
		return fmt.Errorf("speech-detector: %w", err)
	}

	s.sampleRate = sampleRate
	s.env = env
	s.hp = biquad.NewSection(biquad.Highpass(speechHighpassHz, biquad.DefaultQ, sampleRate))
	s.band = core.EnsureLen(s.band, blockSize)
	s.values = core.EnsureLen(s.values, blockSize)
	s.floorDB = speechFloorMinDB
	s.primed = false
	s.seen, _ = s.Changed(0)

	return nil
}

// ProducedSignals implements plugin.SignalProducer.
func (*SpeechDetector) ProducedSignals() analysis.Mask { return speechSignals }

// Meters implements plugin.Metered.
func (s *SpeechDetector) Meters() plugin.Meters {
	return plugin.Meters{Levels: map[string]*meter.Level{
		"presence":    s.presence,
		"noise-floor": s.floor,
	}}
}

// Presence returns the last presence value.
func (s *SpeechDetector) Presence() float64 {
	return s.presence.Load()
}

// NoiseFloor returns the tracked noise floor in dB.
func (s *SpeechDetector) NoiseFloor() float64 {
	return s.floorDB
}

// Process implements plugin.Plugin.
func (s *SpeechDetector) Process(buf []float32) {
	s.update(buf)
}

// ProcessContext implements plugin.ContextProcessor.
func (s *SpeechDetector) ProcessContext(buf []float32, ctx *plugin.Context) {
	n := s.update(buf)
	ctx.Writer.WriteBlock(analysis.SpeechPresence, ctx.SampleTime, s.values[:n])
}

// update analyses buf and fills s.values with the presence per sample.
func (s *SpeechDetector) update(buf []float32) int {
	if v, changed := s.Changed(s.seen); changed {
		s.seen = v
		_ = s.env.SetTimes(float64(s.At(SpeechParamAttackMs).Get()), float64(s.At(SpeechParamReleaseMs).Get()))
	}

	n := min(len(buf), len(s.band))
	if n == 0 {
		return 0
	}

	s.hp.ProcessBlockTo(s.band[:n], buf[:n])
	level := core.LinearToDB(meanSquare32(s.band[:n]), 1e-10) / 2

	dt := float64(n) / s.sampleRate
	threshold := float64(s.At(SpeechParamThresholdDB).Get())
	margin := float64(s.At(SpeechParamMarginDB).Get())

	switch {
	case !s.primed:
		// Starting inside speech must not lift the floor above the threshold.
		s.floorDB = max(min(level, threshold-margin), speechFloorMinDB)
		s.primed = true
	case level < s.floorDB:
		s.floorDB = max(level, speechFloorMinDB)
	default:
		s.floorDB = min(s.floorDB+speechFloorRiseDB*dt, level)
	}

	gate := max(s.floorDB+margin, threshold)
	target := smoothstep(level, gate-speechTransitionDB/2, gate+speechTransitionDB/2)

	for i := range n {
		s.values[i] = float32(s.env.Tick(target))
	}

	s.presence.Store(float64(s.values[n-1]))
	s.floor.Store(s.floorDB)

	return n
}
