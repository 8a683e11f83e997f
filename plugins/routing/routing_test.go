package routing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/engine"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

type pitchSource struct {
	plugin.Base
}

func (*pitchSource) Initialize(float64, int) error  { return nil }
func (*pitchSource) Process([]float32)              {}
func (*pitchSource) ProducedSignals() analysis.Mask { return analysis.MaskOf(analysis.PitchHz) }
func (*pitchSource) Latency() int                   { return 5 }

func (*pitchSource) ProcessContext(_ []float32, ctx *plugin.Context) {
	ctx.Writer.Fill(analysis.PitchHz, 220)
}

type pitchReader struct {
	plugin.Base

	value float32
	owner int
}

func (*pitchReader) Initialize(float64, int) error  { return nil }
func (*pitchReader) Process([]float32)              {}
func (*pitchReader) RequiredSignals() analysis.Mask { return analysis.MaskOf(analysis.PitchHz) }
func (*pitchReader) SignalsAvailable(analysis.Mask) {}

func (r *pitchReader) ProcessContext(_ []float32, ctx *plugin.Context) {
	r.value = ctx.Signals.ReadSample(analysis.PitchHz, ctx.SampleTime+3)
	r.owner, _ = ctx.Signals.Owner(analysis.PitchHz)
}

func newEngine(t *testing.T, channels int) *engine.Engine {
	t.Helper()

	e, err := engine.New(core.ApplyProcessorOptions(
		core.WithSampleRate(16000), core.WithBlockSize(32), core.WithChannels(channels)))
	require.NoError(t, err)

	return e
}

func ramp(n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(i) / float32(n)
	}

	return buf
}

func TestSendAndBusInput(t *testing.T) {
	t.Parallel()

	e := newEngine(t, 2)
	in := NewBusInput()
	reader := &pitchReader{Base: plugin.NewBase("reader")}

	send, err := NewSend(0)
	require.NoError(t, err)

	_, _ = e.AddPlugin(0, in)
	_, _ = e.AddPlugin(0, reader)
	_, _ = e.AddPlugin(1, &pitchSource{Base: plugin.NewBase("pitch")})
	_, _ = e.AddPlugin(1, send)
	require.NoError(t, e.Prepare())

	dst := make([]float32, 32)
	src := ramp(32)
	e.ProcessBlock([][]float32{dst, src})

	assert.Equal(t, src, dst)
	assert.InDelta(t, 220, reader.value, 1e-6)
	assert.Equal(t, 0, reader.owner)
	assert.Equal(t, 5, in.Latency())
	assert.Equal(t, 5, e.Latency(0))
	assert.Empty(t, in.Status())
}

func TestBusInputWithoutSenderIsSilent(t *testing.T) {
	t.Parallel()

	e := newEngine(t, 1)
	in := NewBusInput()
	_, _ = e.AddPlugin(0, in)
	require.NoError(t, e.Prepare())

	buf := ramp(32)
	e.ProcessBlock([][]float32{buf})

	assert.Equal(t, make([]float32, 32), buf)
	assert.Equal(t, "copy bus is stale", in.Status())
	assert.Zero(t, in.Latency())
}

func TestBusInputStatusWhileProcessing(t *testing.T) {
	t.Parallel()

	e := newEngine(t, 2)
	in := NewBusInput()

	send, err := NewSend(0)
	require.NoError(t, err)

	_, _ = e.AddPlugin(0, in)
	_, _ = e.AddPlugin(1, &pitchSource{Base: plugin.NewBase("pitch")})
	_, _ = e.AddPlugin(1, send)
	require.NoError(t, e.Prepare())

	done := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			select {
			case <-done:
				return
			default:
			}

			status, err := e.Status(0, 0)
			assert.NoError(t, err)
			assert.Empty(t, status)
			assert.Contains(t, []int{0, 5}, in.Latency())
			_ = e.Latency(0)
		}
	}()

	for range 200 {
		e.ProcessBlock([][]float32{make([]float32, 32), ramp(32)})
	}

	close(done)
	wg.Wait()

	assert.Equal(t, 5, in.Latency())
}

func TestDeviceInputReadsOtherChannel(t *testing.T) {
	t.Parallel()

	e := newEngine(t, 2)
	_, _ = e.AddPlugin(1, NewDeviceInput(0))
	require.NoError(t, e.Prepare())

	a, b := ramp(32), make([]float32, 32)
	e.ProcessBlock([][]float32{a, b})

	assert.Equal(t, a, b)
}

func TestSendValidation(t *testing.T) {
	t.Parallel()

	_, err := NewSend(-1)
	require.ErrorIs(t, err, ErrInvalidTarget)

	s, err := NewSend(3)
	require.NoError(t, err)

	caps := plugin.Inspect(s)
	assert.True(t, caps.Has(plugin.CapBusSender|plugin.CapContext))
	assert.Equal(t, 3, caps.SendTarget)

	caps = plugin.Inspect(NewBusInput())
	assert.Equal(t, plugin.InputBus, caps.Input)
	assert.Equal(t, analysis.All, caps.Produced)
}
