package engine

import (
	"errors"
	"sync/atomic"

	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/copybus"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

type stage struct {
	plugin.Base

	initErr error
	calls   int
}

func newStage(name string) *stage {
	return &stage{Base: plugin.NewBase(name, plugin.NewParam("gain", "", 0, 4, 1))}
}

func (s *stage) Initialize(float64, int) error { return s.initErr }

func (s *stage) Process(buf []float32) {
	s.calls++

	g := s.At(0).Get()
	for i := range buf {
		buf[i] *= g
	}
}

// producer fills its signals with a constant.
type producer struct {
	*stage

	produced analysis.Mask
	value    float32
}

func newProducer(value float32, ids ...analysis.SignalID) *producer {
	return &producer{stage: newStage("producer"), produced: analysis.MaskOf(ids...), value: value}
}

func (p *producer) ProducedSignals() analysis.Mask { return p.produced }

func (p *producer) ProcessContext(buf []float32, ctx *plugin.Context) {
	p.Process(buf)

	for id := range ctx.Writer.AllowedSignals().IDs() {
		ctx.Writer.Fill(id, p.value)
	}
}

type blocker struct {
	*stage

	blocked analysis.Mask
}

func newBlocker(ids ...analysis.SignalID) *blocker {
	return &blocker{stage: newStage("blocker"), blocked: analysis.MaskOf(ids...)}
}

func (b *blocker) BlockedSignals() analysis.Mask { return b.blocked }

// consumer records what it saw of its required signals.
type consumer struct {
	*stage

	required      analysis.Mask
	notifications []analysis.Mask
	seen          float32
	owner         int
}

func newConsumer(ids ...analysis.SignalID) *consumer {
	return &consumer{stage: newStage("consumer"), required: analysis.MaskOf(ids...), owner: analysis.NoProducer}
}

func (c *consumer) RequiredSignals() analysis.Mask { return c.required }

func (c *consumer) SignalsAvailable(m analysis.Mask) {
	c.notifications = append(c.notifications, m)
}

func (c *consumer) ProcessContext(buf []float32, ctx *plugin.Context) {
	c.Process(buf)

	for id := range c.required.IDs() {
		start, _ := ctx.Signals.Window()
		c.seen = ctx.Signals.ReadSample(id, start)
		c.owner, _ = ctx.Signals.Owner(id)

		break
	}
}

// sender copies the channel audio and signals to another channel's bus.
type sender struct {
	*stage

	target int
}

func newSender(target int) *sender {
	return &sender{stage: newStage("sender"), target: target}
}

func (s *sender) SendTarget() int { return s.target }

func (s *sender) ProcessContext(buf []float32, ctx *plugin.Context) {
	bus := ctx.Routing.CopyBus(s.target)
	if bus == nil {
		return
	}

	bus.Write(buf, copybus.WriteInfo{
		Clock:      ctx.SampleClock,
		SampleTime: ctx.SampleTime,
		Latency:    ctx.Latency,
		Signals:    ctx.Signals.Available(),
		Tracks:     ctx.Signals,
	})
}

// receiver replaces the channel audio with its copy bus.
type receiver struct {
	*stage

	last copybus.ReadResult
}

func newReceiver() *receiver {
	return &receiver{stage: newStage("receiver")}
}

func (r *receiver) InputKind() plugin.InputKind { return plugin.InputBus }

func (r *receiver) ProcessContext(buf []float32, ctx *plugin.Context) {
	r.last = ctx.Routing.CopyBus(ctx.Channel).Read(buf, ctx.SampleClock)
}

type panicker struct {
	*stage

	after  int
	closed atomic.Bool
}

func (p *panicker) Process(buf []float32) {
	p.calls++
	if p.calls > p.after {
		for i := range buf {
			buf[i] = 99
		}

		panic("boom")
	}
}

func (p *panicker) Close() error {
	p.closed.Store(true)
	return errors.New("close failed")
}

type delayed struct {
	*stage

	latency int
}

func (d *delayed) Latency() int { return d.latency }

type statusStage struct {
	*stage
}

func (statusStage) Status() string { return "model missing" }

// crashingProducer produces like producer until its call count reaches
// after, then panics.
type crashingProducer struct {
	*producer

	after int
}

func (c *crashingProducer) ProcessContext(buf []float32, ctx *plugin.Context) {
	if c.calls >= c.after {
		panic("model crashed")
	}

	c.producer.ProcessContext(buf, ctx)
}
