package analyzers

import (
	"fmt"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/pitch"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Pitch tracker parameter indices.
const (
	PitchParamThreshold = iota
	PitchParamSilenceDB
)

var pitchSignals = analysis.MaskOf(
	analysis.PitchHz,
	analysis.PitchConfidence,
	analysis.VoicingScore,
	analysis.VoicingState,
	analysis.HNR,
)

// PitchTracker runs YIN once per block over the most recent samples.
type PitchTracker struct {
	plugin.Base

	minHz, maxHz float64

	detector *pitch.Detector
	hist     history
	seen     uint64
	last     pitch.Result
}

// NewPitchTracker returns a tracker searching [minHz, maxHz].
func NewPitchTracker(minHz, maxHz float64) (*PitchTracker, error) {
	if minHz <= 0 || maxHz <= minHz {
		return nil, fmt.Errorf("%w: min=%g max=%g", pitch.ErrInvalidRange, minHz, maxHz)
	}

	return &PitchTracker{
		Base: plugin.NewBase("pitch-tracker",
			plugin.NewParam("threshold", "", 0.05, 0.5, pitch.DefaultThreshold),
			plugin.NewParam("silence", "dB", -90, -20, -55),
		),
		minHz: minHz,
		maxHz: maxHz,
	}, nil
}

// Initialize implements plugin.Plugin.
func (p *PitchTracker) Initialize(sampleRate float64, _ int) error {
	d, err := pitch.NewDetector(sampleRate, p.minHz, p.maxHz, float64(p.At(PitchParamThreshold).Get()))
	if err != nil {
		return fmt.Errorf("pitch-tracker: %w", err)
	}

	p.detector = d
	p.hist = newHistory(2 * d.MinFrameLength())

	return nil
}

// ProducedSignals implements plugin.SignalProducer.
func (*PitchTracker) ProducedSignals() analysis.Mask { return pitchSignals }

// Process implements plugin.Plugin.
func (p *PitchTracker) Process(buf []float32) {
	p.hist.push(buf)
}

// Last returns the result of the most recent detection.
func (p *PitchTracker) Last() pitch.Result {
	return p.last
}

// ProcessContext implements plugin.ContextProcessor.
func (p *PitchTracker) ProcessContext(buf []float32, ctx *plugin.Context) {
	p.hist.push(buf)

	want := wanted(ctx.Writer, pitchSignals)
	if want.IsEmpty() {
		return
	}

	if v, changed := p.Changed(p.seen); changed {
		p.seen = v
		p.detector.SetThreshold(float64(p.At(PitchParamThreshold).Get()))
	}

	frame := p.hist.frame()
	state := analysis.Unvoiced

	if core.LinearToDB(rms(frame), 1e-9) < float64(p.At(PitchParamSilenceDB).Get()) {
		p.last = pitch.Result{Aperiodicity: 1}
		state = analysis.Silence
	} else {
		p.last = p.detector.Detect(frame)
		if p.last.Voiced {
			state = analysis.Voiced
		}
	}

	w := ctx.Writer
	w.Fill(analysis.PitchHz, float32(p.last.Hz))
	w.Fill(analysis.PitchConfidence, float32(p.last.Confidence))
	w.Fill(analysis.VoicingScore, float32(1-p.last.Aperiodicity))
	w.Fill(analysis.VoicingState, state)
	w.Fill(analysis.HNR, float32(p.last.HNR()))
}
