package routing

import (
	"sync/atomic"

	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/copybus"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// BusInput replaces the channel audio with the copy bus of its channel and
// re-emits the signals carried on it. A stale bus gives silence.
type BusInput struct {
	plugin.Base

	// latency and stale are read by Latency and Status from other
	// goroutines.
	latency atomic.Int64
	stale   atomic.Bool
}

// NewBusInput returns a copy-bus input.
func NewBusInput() *BusInput {
	return &BusInput{Base: plugin.NewBase("bus-input")}
}

// Initialize implements plugin.Plugin.
func (*BusInput) Initialize(float64, int) error { return nil }

// Process implements plugin.Plugin. Without a context the bus cannot be
// read, so the block is silenced.
func (b *BusInput) Process(buf []float32) {
	clear(buf)
}

// InputKind implements plugin.InputSource.
func (*BusInput) InputKind() plugin.InputKind { return plugin.InputBus }

// ProducedSignals implements plugin.SignalProducer. Which signals are
// actually written depends on what the sender carried.
func (*BusInput) ProducedSignals() analysis.Mask { return analysis.All }

// Latency implements plugin.LatencyReporter with the latency of the sender
// chain for the last block.
func (b *BusInput) Latency() int { return int(b.latency.Load()) }

// Status implements plugin.StatusProvider.
func (b *BusInput) Status() string {
	if b.stale.Load() {
		return "copy bus is stale"
	}

	return ""
}

// ProcessContext implements plugin.ContextProcessor.
func (b *BusInput) ProcessContext(buf []float32, ctx *plugin.Context) {
	var bus *copybus.Bus
	if ctx.Routing != nil {
		bus = ctx.Routing.CopyBus(ctx.Channel)
	}

	if bus == nil {
		clear(buf)
		b.latency.Store(0)
		b.stale.Store(false)

		return
	}

	res := bus.Read(buf, ctx.SampleClock)
	b.latency.Store(int64(res.Latency))

	if !res.Fresh {
		b.stale.Store(true)

		return
	}

	b.stale.Store(false)

	for id := range res.Mask.Intersect(ctx.Writer.AllowedSignals()).IDs() {
		ctx.Writer.WriteBlock(id, ctx.SampleTime, bus.Signal(id))
	}
}

// DeviceInput replaces the channel audio with the device input of another
// channel.
type DeviceInput struct {
	plugin.Base

	source int
}

// NewDeviceInput returns an input reading device channel source.
func NewDeviceInput(source int) *DeviceInput {
	return &DeviceInput{Base: plugin.NewBase("device-input"), source: source}
}

// Initialize implements plugin.Plugin.
func (*DeviceInput) Initialize(float64, int) error { return nil }

// Process implements plugin.Plugin. The channel already holds its own
// device input.
func (*DeviceInput) Process([]float32) {}

// InputKind implements plugin.InputSource.
func (*DeviceInput) InputKind() plugin.InputKind { return plugin.InputDevice }

// ProcessContext implements plugin.ContextProcessor.
func (d *DeviceInput) ProcessContext(buf []float32, ctx *plugin.Context) {
	if ctx.Routing == nil {
		return
	}

	ctx.Routing.ReadInput(d.source, buf)
}
