package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/meter"
)

type plain struct {
	Base
}

func (plain) Initialize(float64, int) error { return nil }
func (plain) Process([]float32)             {}

type rich struct {
	plain

	available analysis.Mask
	out       meter.Peak
}

func (*rich) ProcessContext([]float32, *Context) {}
func (*rich) ProducedSignals() analysis.Mask {
	return analysis.MaskOf(analysis.PitchHz) | 1<<15
}
func (*rich) RequiredSignals() analysis.Mask     { return analysis.MaskOf(analysis.SpeechPresence) }
func (r *rich) SignalsAvailable(m analysis.Mask) { r.available = m }
func (*rich) BlockedSignals() analysis.Mask      { return analysis.MaskOf(analysis.HNR) }
func (*rich) InputKind() InputKind               { return InputBus }
func (*rich) Status() string                     { return "" }
func (*rich) SendTarget() int                    { return 2 }
func (*rich) Latency() int                       { return 63 }
func (r *rich) Meters() Meters {
	return Meters{Peaks: map[string]*meter.Peak{"out": &r.out}}
}

func TestInspectPlain(t *testing.T) {
	t.Parallel()

	caps := Inspect(plain{Base: NewBase("plain")})
	assert.Equal(t, Capability(0), caps.Flags)
	assert.Equal(t, -1, caps.SendTarget)
	assert.Nil(t, caps.Context)
	assert.Equal(t, "none", caps.Flags.String())
}

func TestInspectRich(t *testing.T) {
	t.Parallel()

	r := &rich{plain: plain{Base: NewBase("rich")}}
	caps := Inspect(r)

	assert.True(t, caps.Has(CapContext|CapProducer|CapConsumer|CapBlocker|CapInput|CapStatus|CapBusSender|CapLatency|CapMeters))
	assert.Contains(t, caps.Meters.Peaks, "out")
	assert.Equal(t, analysis.MaskOf(analysis.PitchHz), caps.Produced, "bits beyond the signal set are dropped")
	assert.Equal(t, analysis.MaskOf(analysis.SpeechPresence), caps.Required)
	assert.Equal(t, analysis.MaskOf(analysis.HNR), caps.Blocked)
	assert.Equal(t, InputBus, caps.Input)
	assert.Equal(t, 2, caps.SendTarget)
	assert.Equal(t, 63, caps.Latency.Latency())

	caps.Consumer.SignalsAvailable(analysis.All)
	assert.Equal(t, analysis.All, r.available)
	assert.Contains(t, caps.Flags.String(), "bus-sender")
}

func TestParamClampAndNaN(t *testing.T) {
	t.Parallel()

	p := NewParam("gain", "dB", -24, 24, 0)
	p.Set(40)
	assert.InDelta(t, 24, p.Get(), 0)

	p.Set(-3)
	p.Set(float32(nan()))
	assert.InDelta(t, -3, p.Get(), 0)

	p.Reset()
	assert.InDelta(t, 0, p.Get(), 0)
	assert.False(t, p.Bool())
}

func TestParamSetStateRoundTrip(t *testing.T) {
	t.Parallel()

	a := NewParamSet(
		NewParam("threshold", "dB", -60, 0, -20),
		NewParam("ratio", "", 1, 20, 4),
		NewParam("enabled", "", 0, 1, 1),
	)

	a.SetParameter(0, -30)
	a.SetParameter(1, 8)
	a.SetParameter(7, 1) // ignored

	state := a.State()
	require.Len(t, state, 12)

	b := NewParamSet(
		NewParam("threshold", "dB", -60, 0, -20),
		NewParam("ratio", "", 1, 20, 4),
		NewParam("enabled", "", 0, 1, 1),
	)
	b.SetState(state)

	for i := range a.Len() {
		assert.InDelta(t, a.At(i).Get(), b.At(i).Get(), 0)
	}

	assert.Equal(t, 1, b.Index("ratio"))
	assert.Equal(t, -1, b.Index("missing"))
	assert.Nil(t, b.At(3))
}

func TestParamSetShortAndMalformedState(t *testing.T) {
	t.Parallel()

	s := NewParamSet(
		NewParam("a", "", 0, 10, 1),
		NewParam("b", "", 0, 10, 2),
	)
	s.SetParameter(1, 7)

	// One full field plus a stray byte: only the first field applies.
	w := NewStateWriter(1)
	w.Float(5)
	s.SetState(append(w.Bytes(), 0xff))

	assert.InDelta(t, 5, s.At(0).Get(), 0)
	assert.InDelta(t, 7, s.At(1).Get(), 0)

	s.SetState(nil)
	assert.InDelta(t, 5, s.At(0).Get(), 0)
	assert.InDelta(t, 7, s.At(1).Get(), 0)
}

func TestParamSetChanged(t *testing.T) {
	t.Parallel()

	s := NewParamSet(NewParam("a", "", 0, 1, 0))

	v, changed := s.Changed(0)
	assert.False(t, changed)

	s.SetParameter(0, 1)

	v2, changed := s.Changed(v)
	assert.True(t, changed)

	_, changed = s.Changed(v2)
	assert.False(t, changed)
}

func TestStateReaderDefaults(t *testing.T) {
	t.Parallel()

	w := NewStateWriter(3)
	w.Float(1.5)
	w.Bool(true)
	w.Float(float32(nan()))

	r := NewStateReader(w.Bytes())
	assert.Equal(t, 3, r.Remaining())
	assert.InDelta(t, 1.5, r.Next(0), 0)
	assert.True(t, r.NextBool(false))
	assert.InDelta(t, 9, r.Next(9), 0, "non-finite field falls back")
	assert.InDelta(t, 4, r.Next(4), 0, "exhausted reader falls back")
	assert.False(t, r.NextBool(false))
}

func TestContextEmit(t *testing.T) {
	t.Parallel()

	var got []string

	ctx := &Context{Channel: 1, Slot: 2}
	ctx.Emit("ignored", nil)

	ctx.Capture = captureFunc(func(ch, slot int, key string, values []float32) {
		got = append(got, key)
		assert.Equal(t, 1, ch)
		assert.Equal(t, 2, slot)
		assert.Len(t, values, 2)
	})
	ctx.Emit("spectrum", []float32{1, 2})

	assert.Equal(t, []string{"spectrum"}, got)
}

type captureFunc func(ch, slot int, key string, values []float32)

func (f captureFunc) Capture(ch, slot int, key string, values []float32) { f(ch, slot, key, values) }
