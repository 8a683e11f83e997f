// Package stft implements a streaming short-time Fourier transform with
// weighted overlap-add resynthesis.
//
// Audio is pushed sample by sample. Every hop samples the last size input
// samples are windowed, transformed and handed to a [BinProcessor]; the
// modified spectrum is transformed back, windowed again and accumulated
// into the output. An engine constructed from a COLA window pair with a
// no-op processor reproduces its input delayed by [Engine.Latency].
package stft

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

const (
	minSize              = 16
	defaultCOLATolerance = 1e-6
)

var (
	// ErrInvalidSize is returned for frame sizes that are not a power of two >= 16.
	ErrInvalidSize = errors.New("stft: invalid frame size")
	// ErrInvalidHop is returned for hops that do not divide the frame size.
	ErrInvalidHop = errors.New("stft: invalid hop")
	// ErrNotCOLA is returned when the window pair does not overlap-add to a constant.
	ErrNotCOLA = errors.New("stft: window pair is not constant-overlap-add")
)

// BinProcessor modifies the non-redundant half spectrum of one frame in
// place. bins has size/2+1 entries, DC first and Nyquist last.
type BinProcessor interface {
	ProcessBins(bins []complex128)
}

// BinFunc adapts a function to [BinProcessor].
type BinFunc func(bins []complex128)

// ProcessBins calls f(bins).
func (f BinFunc) ProcessBins(bins []complex128) {
	f(bins)
}

// Option configures an [Engine].
type Option func(*config)

type config struct {
	analysis  window.Type
	synthesis window.Type
	tolerance float64
}

// WithWindows selects the analysis and synthesis windows. The default pair
// is sqrt-Hann / sqrt-Hann.
func WithWindows(analysis, synthesis window.Type) Option {
	return func(c *config) {
		c.analysis = analysis
		c.synthesis = synthesis
	}
}

// WithCOLATolerance sets the relative ripple accepted by the COLA check.
func WithCOLATolerance(tol float64) Option {
	return func(c *config) {
		if tol > 0 {
			c.tolerance = tol
		}
	}
}

// Engine is a streaming STFT overlap-add processor. It is not safe for
// concurrent use.
type Engine struct {
	size int
	hop  int
	gain float64

	plan      *algofft.Plan[complex128]
	analysis  []float64
	synthesis []float64 // pre-scaled by 1/gain

	inRing  []float64
	outRing []float64
	pos     int
	count   int

	frame    []float64
	timeBuf  []complex128
	spectrum []complex128
}

// New constructs an engine with the given frame size and hop.
func New(size, hop int, opts ...Option) (*Engine, error) {
	if size < minSize || !core.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	if hop <= 0 || hop > size || size%hop != 0 {
		return nil, fmt.Errorf("%w: hop %d for size %d", ErrInvalidHop, hop, size)
	}

	cfg := config{
		analysis:  window.TypeSqrtHann,
		synthesis: window.TypeSqrtHann,
		tolerance: defaultCOLATolerance,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	analysis := window.Generate(cfg.analysis, size)
	synthesis := window.Generate(cfg.synthesis, size)

	ola, err := window.AnalyzeOverlapAdd(analysis, synthesis, hop)
	if err != nil {
		return nil, fmt.Errorf("stft: %w", err)
	}

	if !ola.COLA(cfg.tolerance) {
		return nil, fmt.Errorf("%w: %s/%s size=%d hop=%d ripple=%.3g",
			ErrNotCOLA, cfg.analysis, cfg.synthesis, size, hop, ola.Ripple)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("stft: fft plan: %w", err)
	}

	for i := range synthesis {
		synthesis[i] /= ola.Gain
	}

	return &Engine{
		size:      size,
		hop:       hop,
		gain:      ola.Gain,
		plan:      plan,
		analysis:  analysis,
		synthesis: synthesis,
		inRing:    make([]float64, size),
		outRing:   make([]float64, size),
		frame:     make([]float64, size),
		timeBuf:   make([]complex128, size),
		spectrum:  make([]complex128, size),
	}, nil
}

// Size returns the frame size.
func (e *Engine) Size() int { return e.size }

// Hop returns the hop size.
func (e *Engine) Hop() int { return e.hop }

// Bins returns the number of bins passed to a [BinProcessor].
func (e *Engine) Bins() int { return e.size/2 + 1 }

// Gain returns the overlap-add constant of the window pair.
func (e *Engine) Gain() float64 { return e.gain }

// Latency returns the delay in samples between input and output of Process.
func (e *Engine) Latency() int { return e.size - 1 }

// BinFrequency returns the centre frequency of bin k in Hz.
func (e *Engine) BinFrequency(k int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(e.size)
}

// Reset clears the input and output history.
func (e *Engine) Reset() {
	clear(e.inRing)
	clear(e.outRing)
	e.pos = 0
	e.count = 0
}

// Process runs buf through the engine in place. A nil processor leaves the
// spectrum untouched.
func (e *Engine) Process(buf []float32, proc BinProcessor) {
	for i, x := range buf {
		e.inRing[e.pos] = float64(x)

		e.count++
		if e.count == e.hop {
			e.count = 0
			e.analyze()

			if proc != nil {
				proc.ProcessBins(e.spectrum[:e.size/2+1])
			}

			e.synthesize()
		}

		buf[i] = float32(e.outRing[e.pos])
		e.outRing[e.pos] = 0

		e.pos++
		if e.pos == e.size {
			e.pos = 0
		}
	}
}

// Analyze pushes buf through the analysis stage only and calls fn with the
// half spectrum of every completed frame. buf is not modified. The bins
// slice is reused and must not be retained.
func (e *Engine) Analyze(buf []float32, fn func(bins []complex128)) {
	for _, x := range buf {
		e.inRing[e.pos] = float64(x)

		e.count++
		if e.count == e.hop {
			e.count = 0
			e.analyze()

			if fn != nil {
				fn(e.spectrum[:e.size/2+1])
			}
		}

		e.pos++
		if e.pos == e.size {
			e.pos = 0
		}
	}
}

// analyze windows the last size input samples, oldest first, and computes
// their spectrum.
func (e *Engine) analyze() {
	head := e.pos + 1
	n := copy(e.frame, e.inRing[head:])
	copy(e.frame[n:], e.inRing[:head])

	vecmath.MulBlockInPlace(e.frame, e.analysis)

	for i, v := range e.frame {
		e.timeBuf[i] = complex(v, 0)
	}

	// Only fails on length mismatch, which New rules out.
	_ = e.plan.Forward(e.spectrum, e.timeBuf)
}

func (e *Engine) synthesize() {
	half := e.size / 2

	e.spectrum[0] = complex(real(e.spectrum[0]), 0)
	e.spectrum[half] = complex(real(e.spectrum[half]), 0)

	for k := 1; k < half; k++ {
		v := e.spectrum[k]
		e.spectrum[e.size-k] = complex(real(v), -imag(v))
	}

	_ = e.plan.Inverse(e.timeBuf, e.spectrum)

	for i, v := range e.timeBuf {
		e.frame[i] = real(v)
	}

	vecmath.MulBlockInPlace(e.frame, e.synthesis)

	// Frame sample i leaves the output ring size-1 samples after it entered.
	tail := e.size - e.pos
	vecmath.AddBlockInPlace(e.outRing[e.pos:], e.frame[:tail])
	vecmath.AddBlockInPlace(e.outRing[:e.pos], e.frame[tail:])
}
