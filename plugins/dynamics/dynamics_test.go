package dynamics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/plugin"
	"github.com/cwbudde/algo-hotmic/internal/testutil"
)

// signalBlock prepares a store holding id at a constant value for one block
// and a context whose reader attributes id to slot 0.
func signalBlock(id analysis.SignalID, v float32, start int64, n int) *plugin.Context {
	store := analysis.NewStore(n)
	store.BeginBlock(start, n)
	store.Writer(0, analysis.All).Fill(id, v)

	table := analysis.NewProducerTable()
	table.Stamp(0, id.Bit())

	return &plugin.Context{
		SampleRate: 48000,
		SampleTime: start,
		Signals:    store.Reader(&table),
	}
}

func constant(n int, v float32) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = v
	}

	return buf
}

func TestSpeechGateFollowsPresence(t *testing.T) {
	t.Parallel()

	const block = 480

	g := NewSpeechGate()
	require.NoError(t, g.Initialize(48000, block))
	g.SignalsAvailable(analysis.MaskOf(analysis.SpeechPresence))
	assert.Empty(t, g.Status())

	var now int64

	var buf []float32

	for range 50 {
		buf = constant(block, 0.5)
		g.ProcessContext(buf, signalBlock(analysis.SpeechPresence, 1, now, block))
		now += block
	}

	assert.InDelta(t, 0.5, buf[block-1], 1e-3)
	assert.InDelta(t, 0, g.Meters().Levels["gain"].Load(), 0.1)

	for range 100 {
		buf = constant(block, 0.5)
		g.ProcessContext(buf, signalBlock(analysis.SpeechPresence, 0, now, block))
		now += block
	}

	assert.Less(t, g.Meters().Levels["gain"].Load(), -25.0)
	assert.Less(t, buf[block-1], float32(0.03))
}

func TestSpeechGateOpenWithoutProducer(t *testing.T) {
	t.Parallel()

	g := NewSpeechGate()
	require.NoError(t, g.Initialize(48000, 64))
	g.SignalsAvailable(analysis.None)
	assert.NotEmpty(t, g.Status())

	buf := constant(64, 0.25)
	g.ProcessContext(buf, &plugin.Context{SampleRate: 48000})
	assert.Equal(t, constant(64, 0.25), buf)
	assert.InDelta(t, 0.25, g.Meters().Peaks["output"].Poll(), 1e-6)

	caps := plugin.Inspect(g)
	assert.True(t, caps.Has(plugin.CapConsumer))
	assert.Equal(t, analysis.MaskOf(analysis.SpeechPresence), caps.Required)
}

func TestSpeechGateStatusWhileProcessing(t *testing.T) {
	t.Parallel()

	const block = 64

	g := NewSpeechGate()
	require.NoError(t, g.Initialize(48000, block))

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
				_ = g.Status()
			}
		}
	}()

	var now int64

	for i := range 200 {
		if i%2 == 0 {
			g.SignalsAvailable(analysis.MaskOf(analysis.SpeechPresence))
		} else {
			g.SignalsAvailable(analysis.None)
		}

		g.ProcessContext(constant(block, 0.5), signalBlock(analysis.SpeechPresence, 1, now, block))
		now += block
	}

	close(done)
	wg.Wait()

	assert.NotEmpty(t, g.Status())
}

func TestCompressorSteadyState(t *testing.T) {
	t.Parallel()

	c := NewCompressor()
	require.NoError(t, c.Initialize(48000, 256))

	var buf []float32
	for range 40 {
		buf = constant(256, 1)
		c.Process(buf)
	}

	// 0 dB in, -18 dB threshold, 3:1 gives -12 dB out.
	assert.InDelta(t, core.DBToLinear(-12), buf[255], 0.01)
	assert.InDelta(t, -12, c.Meters().Levels["gain-reduction"].Load(), 0.2)
	assert.InDelta(t, 1, c.Meters().Peaks["input"].Poll(), 1e-6)

	quiet := NewCompressor()
	require.NoError(t, quiet.Initialize(48000, 256))

	buf = constant(256, 0.01)
	quiet.Process(buf)
	assert.InDelta(t, 0.01, buf[255], 1e-6)
}

func TestCompressorParameterChange(t *testing.T) {
	t.Parallel()

	c := NewCompressor()
	require.NoError(t, c.Initialize(48000, 256))
	c.SetParameter(CompParamRatio, 1)
	c.SetParameter(CompParamMakeupDB, 6)

	buf := constant(256, 0.5)
	c.Process(buf)
	assert.InDelta(t, 0.5*core.DBToLinear(6), buf[255], 1e-4)
}

func TestDeEsserReducesHighBand(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000

	d := NewDeEsser()
	require.NoError(t, d.Initialize(sampleRate, 480))

	// 8 kHz has a period of six samples, so the sampled peak is below the
	// amplitude. Compare against the input's own peak.
	hiss := testutil.Sine[float32](8000, sampleRate, 0.5, sampleRate/4)
	hissPeak := float64(core.PeakAbs(hiss[len(hiss)-480:]))

	for _, b := range testutil.Blocks(hiss, 480) {
		d.Process(b)
	}

	assert.Less(t, float64(core.PeakAbs(hiss[len(hiss)-480:])), 0.5*hissPeak)
	assert.Less(t, d.Meters().Levels["gain-reduction"].Load(), -6.0)

	voice := NewDeEsser()
	require.NoError(t, voice.Initialize(sampleRate, 480))

	low := testutil.Sine[float32](200, sampleRate, 0.5, sampleRate/4)
	lowPeak := float64(core.PeakAbs(low[len(low)-480:]))

	for _, b := range testutil.Blocks(low, 480) {
		voice.Process(b)
	}

	assert.Greater(t, float64(core.PeakAbs(low[len(low)-480:])), 0.95*lowPeak)
}

func TestDeEsserUsesSibilanceEnergy(t *testing.T) {
	t.Parallel()

	const block = 480

	d := NewDeEsser()
	require.NoError(t, d.Initialize(48000, block))
	d.SignalsAvailable(analysis.MaskOf(analysis.SibilanceEnergy))

	hiss := testutil.Sine[float32](8000, 48000, 0.5, 20*block)
	want := append([]float32(nil), hiss[len(hiss)-block:]...)

	var now int64
	for _, b := range testutil.Blocks(hiss, block) {
		d.ProcessContext(b, signalBlock(analysis.SibilanceEnergy, 0, now, block))
		now += block
	}

	// A producer reporting no sibilance leaves the band alone.
	assert.InDelta(t, 0, d.Meters().Levels["gain-reduction"].Load(), 1e-9)
	testutil.RequireSliceNearlyEqual(t, hiss[len(hiss)-block:], want, 1e-6)
}
