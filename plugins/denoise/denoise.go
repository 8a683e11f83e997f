// Package denoise wraps a frame-based noise suppression model as a plugin.
// The model itself is an external collaborator behind [FrameProcessor];
// models are made available by name through [Register].
package denoise

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

var (
	// ErrNoModel is returned by Initialize when no model is configured.
	ErrNoModel = errors.New("denoise: no inference model")
	// ErrUnknownModel is returned for names nobody registered.
	ErrUnknownModel = errors.New("denoise: unknown model")
	// ErrFrameSize is returned for models reporting a non-positive frame size.
	ErrFrameSize = errors.New("denoise: invalid model frame size")
)

// FrameProcessor suppresses noise in fixed-size frames. ProcessFrame writes
// the cleaned frame into dst and returns the probability that the frame
// holds speech.
type FrameProcessor interface {
	FrameSize() int
	ProcessFrame(dst, src []float32) (speech float32, err error)
}

// Loader creates a processor for a sample rate.
type Loader func(sampleRate float64) (FrameProcessor, error)

var (
	modelsMu sync.RWMutex
	models   = map[string]Loader{}
)

// Register makes a model loader available under name.
func Register(name string, l Loader) {
	modelsMu.Lock()
	defer modelsMu.Unlock()

	models[name] = l
}

// Models returns the registered model names, sorted.
func Models() []string {
	modelsMu.RLock()
	defer modelsMu.RUnlock()

	names := make([]string, 0, len(models))
	for n := range models {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Lookup returns the loader registered under name.
func Lookup(name string) (Loader, error) {
	modelsMu.RLock()
	defer modelsMu.RUnlock()

	l, ok := models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	return l, nil
}

// Denoiser parameter indices.
const (
	DenoiserParamMix = iota
)

var denoiserSignals = analysis.MaskOf(analysis.SpeechPresence)

// Denoiser runs audio through a [FrameProcessor] one frame at a time and
// publishes the model's speech probability as SpeechPresence. The output
// is delayed by one frame. When the model fails mid-stream the denoiser
// passes audio through with the same delay and reports the failure in its
// status.
type Denoiser struct {
	plugin.Base

	load  Loader
	model FrameProcessor

	in, out, dry []float32
	pos          int
	speech       float32
	values       []float32

	failure error
	// status mirrors failure for readers outside the audio goroutine.
	status atomic.Pointer[string]
}

// New returns a denoiser that loads its model with l at Initialize. A nil
// loader makes Initialize fail, which forces the instance to bypass.
func New(l Loader) *Denoiser {
	return &Denoiser{
		Base: plugin.NewBase("denoiser",
			plugin.NewParam("mix", "", 0, 1, 1),
		),
		load: l,
	}
}

// Initialize implements plugin.Plugin.
func (d *Denoiser) Initialize(sampleRate float64, blockSize int) error {
	if d.load == nil {
		return ErrNoModel
	}

	if err := d.closeModel(); err != nil {
		return err
	}

	model, err := d.load(sampleRate)
	if err != nil {
		return fmt.Errorf("denoise: load model: %w", err)
	}

	size := model.FrameSize()
	if size <= 0 {
		_ = closeIfCloser(model)
		return fmt.Errorf("%w: %d", ErrFrameSize, size)
	}

	d.model = model
	d.in = make([]float32, size)
	d.out = make([]float32, size)
	d.dry = make([]float32, size)
	d.values = make([]float32, blockSize)
	d.pos = 0
	d.speech = 0
	d.failure = nil
	d.status.Store(nil)

	return nil
}

// Latency implements plugin.LatencyReporter.
func (d *Denoiser) Latency() int {
	return len(d.in)
}

// ProducedSignals implements plugin.SignalProducer.
func (*Denoiser) ProducedSignals() analysis.Mask { return denoiserSignals }

// Status implements plugin.StatusProvider.
func (d *Denoiser) Status() string {
	if msg := d.status.Load(); msg != nil {
		return *msg
	}

	return ""
}

// Process implements plugin.Plugin.
func (d *Denoiser) Process(buf []float32) {
	d.run(buf)
}

// ProcessContext implements plugin.ContextProcessor.
func (d *Denoiser) ProcessContext(buf []float32, ctx *plugin.Context) {
	n := d.run(buf)
	ctx.Writer.WriteBlock(analysis.SpeechPresence, ctx.SampleTime, d.values[:n])
}

func (d *Denoiser) run(buf []float32) int {
	mix := d.At(DenoiserParamMix).Get()
	n := min(len(buf), len(d.values))

	for i, x := range buf[:n] {
		wet, dry := d.out[d.pos], d.dry[d.pos]
		d.in[d.pos] = x
		buf[i] = dry + (wet-dry)*mix

		d.pos++
		if d.pos == len(d.in) {
			d.pos = 0
			d.frame()
		}

		d.values[i] = d.speech
	}

	return n
}

func (d *Denoiser) frame() {
	copy(d.dry, d.in)

	if d.failure == nil {
		speech, err := d.model.ProcessFrame(d.out, d.in)
		if err == nil {
			d.speech = core.Clamp(speech, 0, 1)
			return
		}

		d.failure = err
		msg := "denoiser passing audio through: " + err.Error()
		d.status.Store(&msg)
	}

	copy(d.out, d.in)
	d.speech = 0
}

// Close implements plugin.Plugin and closes the model if it holds
// resources.
func (d *Denoiser) Close() error {
	return d.closeModel()
}

func (d *Denoiser) closeModel() error {
	if d.model == nil {
		return nil
	}

	err := closeIfCloser(d.model)
	d.model = nil

	return err
}

func closeIfCloser(m FrameProcessor) error {
	if c, ok := m.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
