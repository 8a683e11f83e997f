package analyzers

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/filter/biquad"
	"github.com/cwbudde/algo-hotmic/dsp/lpc"
	"github.com/cwbudde/algo-hotmic/dsp/window"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Formant tracker parameter indices.
const (
	FormantParamMaxHz = iota
	FormantParamSilenceDB
	FormantParamPreEmphasis
)

const (
	formantTargetRate = 10000.0
	formantFrameSec   = 0.025
	formantMinHz      = 90.0
)

var formantSignals = analysis.MaskOf(
	analysis.Formant1Hz,
	analysis.Formant2Hz,
	analysis.Formant3Hz,
	analysis.FormantConfidence,
)

var formantIDs = [3]analysis.SignalID{analysis.Formant1Hz, analysis.Formant2Hz, analysis.Formant3Hz}

// FormantTracker estimates the first three formants with Burg LPC on a
// decimated copy of the signal.
type FormantTracker struct {
	plugin.Base

	order int

	rate   float64
	decim  int
	phase  int
	filter [2]*biquad.Section

	hist     history
	frame    []float64
	win      []float64
	coeffs   []float64
	formants []lpc.Formant
	analyzer *lpc.Analyzer

	held [3]float64
}

// NewFormantTracker returns a tracker. order 0 picks 2 + rate/1000 for the
// decimated rate.
func NewFormantTracker(order int) (*FormantTracker, error) {
	if order < 0 {
		return nil, fmt.Errorf("%w: %d", lpc.ErrInvalidOrder, order)
	}

	return &FormantTracker{
		Base: plugin.NewBase("formant-tracker",
			plugin.NewParam("max-formant", "Hz", 3000, 6000, 5000),
			plugin.NewParam("silence", "dB", -90, -20, -50),
			plugin.NewParam("pre-emphasis", "", 0, 0.99, 0.97),
		),
		order: order,
	}, nil
}

// Initialize implements plugin.Plugin.
func (f *FormantTracker) Initialize(sampleRate float64, _ int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("formant-tracker: invalid sample rate %g", sampleRate)
	}

	f.decim = max(int(sampleRate/formantTargetRate), 1)
	f.rate = sampleRate / float64(f.decim)

	for i := range f.filter {
		f.filter[i] = biquad.NewSection(biquad.Passthrough)
		if f.decim > 1 {
			f.filter[i].SetCoefficients(biquad.Lowpass(0.45*f.rate, biquad.DefaultQ, sampleRate))
		}
	}

	order := f.order
	if order == 0 {
		order = 2 + int(f.rate/1000)
	}

	a, err := lpc.NewAnalyzer(order)
	if err != nil {
		return fmt.Errorf("formant-tracker: %w", err)
	}

	n := int(math.Round(formantFrameSec * f.rate))
	f.analyzer = a
	f.hist = newHistory(n)
	f.frame = make([]float64, n)
	f.win = window.Generate(window.TypeHamming, n)
	f.coeffs = make([]float64, order+1)
	f.formants = make([]lpc.Formant, 0, order)
	f.phase = 0
	f.held = [3]float64{}

	return nil
}

// ProducedSignals implements plugin.SignalProducer.
func (*FormantTracker) ProducedSignals() analysis.Mask { return formantSignals }

// DecimatedRate returns the analysis sample rate chosen at Initialize.
func (f *FormantTracker) DecimatedRate() float64 { return f.rate }

// Process implements plugin.Plugin.
func (f *FormantTracker) Process(buf []float32) {
	f.feed(buf)
}

func (f *FormantTracker) feed(buf []float32) {
	for _, x := range buf {
		y := float64(x)
		for _, s := range f.filter {
			y = s.ProcessSample(y)
		}

		f.phase++
		if f.phase >= f.decim {
			f.phase = 0
			f.hist.pushSample(y)
		}
	}
}

// ProcessContext implements plugin.ContextProcessor.
func (f *FormantTracker) ProcessContext(buf []float32, ctx *plugin.Context) {
	f.feed(buf)

	if wanted(ctx.Writer, formantSignals).IsEmpty() {
		return
	}

	found, confidence := f.analyze()

	for i, id := range formantIDs {
		if i < found {
			f.held[i] = f.formants[i].FrequencyHz
		}

		ctx.Writer.Fill(id, float32(f.held[i]))
	}

	ctx.Writer.Fill(analysis.FormantConfidence, float32(confidence))
}

// analyze runs LPC on the current frame and returns how many of the first
// three formants were found and a confidence for them.
func (f *FormantTracker) analyze() (int, float64) {
	copy(f.frame, f.hist.frame())

	if core.LinearToDB(rms(f.frame), 1e-9) < float64(f.At(FormantParamSilenceDB).Get()) {
		return 0, 0
	}

	if pe := float64(f.At(FormantParamPreEmphasis).Get()); pe > 0 {
		lpc.PreEmphasis(f.frame, pe, 0)
	}

	if err := window.Apply(f.frame, f.win); err != nil {
		return 0, 0
	}

	coeffs, err := f.analyzer.Burg(f.coeffs, f.frame)
	if err != nil {
		return 0, 0
	}

	f.formants, err = f.analyzer.Formants(f.formants[:0], coeffs, f.rate, formantMinHz, float64(f.At(FormantParamMaxHz).Get()))
	if err != nil {
		return 0, 0
	}

	found := min(len(f.formants), len(formantIDs))
	if found == 0 {
		return 0, 0
	}

	// Narrow resonances are more trustworthy than broad ones.
	sharp := 0.0
	for _, fm := range f.formants[:found] {
		sharp += 1 - math.Min(fm.BandwidthHz/1000, 1)
	}

	return found, sharp / float64(len(formantIDs))
}
