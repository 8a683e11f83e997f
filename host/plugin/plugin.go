// Package plugin defines the contract between the host engine and the
// effects it runs: the plugin interface, optional capability interfaces,
// the per-block context, parameters and the persisted state layout.
package plugin

import (
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/copybus"
	"github.com/cwbudde/algo-hotmic/host/meter"
)

// Plugin is implemented by every effect. Process is called on the audio
// goroutine only; SetParameter may be called from any goroutine.
type Plugin interface {
	Name() string
	// Initialize prepares the plugin for blocks of at most blockSize samples.
	// An error demotes the instance to forced bypass.
	Initialize(sampleRate float64, blockSize int) error
	Process(buf []float32)
	SetParameter(index int, value float32)
	State() []byte
	SetState(data []byte)
	Close() error
}

// ContextProcessor is implemented by plugins that need signals or routing.
// The engine calls ProcessContext instead of Process. ctx is reused across
// calls and must not be retained.
type ContextProcessor interface {
	ProcessContext(buf []float32, ctx *Context)
}

// SignalProducer declares the signals a plugin can write.
type SignalProducer interface {
	ProducedSignals() analysis.Mask
}

// SignalConsumer declares the signals a plugin reads. SignalsAvailable is
// called on the audio goroutine whenever the attributed set of the channel
// changes.
type SignalConsumer interface {
	RequiredSignals() analysis.Mask
	SignalsAvailable(available analysis.Mask)
}

// SignalBlocker declares signals whose attribution the plugin suppresses
// for the rest of its channel.
type SignalBlocker interface {
	BlockedSignals() analysis.Mask
}

// InputKind tells where an input plugin takes its audio from.
type InputKind int

const (
	InputDevice InputKind = iota
	InputBus
)

func (k InputKind) String() string {
	if k == InputBus {
		return "bus"
	}

	return "device"
}

// InputSource is implemented by plugins that replace the channel audio
// with an input.
type InputSource interface {
	InputKind() InputKind
}

// StatusProvider reports a human-readable degraded-state message, or "".
type StatusProvider interface {
	Status() string
}

// BusSender is implemented by plugins that write the copy bus of another
// channel. SendTarget returns the destination channel, or -1.
type BusSender interface {
	SendTarget() int
}

// LatencyReporter reports the processing delay in samples. It is queried
// after Initialize.
type LatencyReporter interface {
	Latency() int
}

// Meters lists the meters a plugin publishes, keyed by a short name.
type Meters struct {
	Peaks  map[string]*meter.Peak
	Levels map[string]*meter.Level
}

// Metered is implemented by plugins that publish meters. The engine
// registers them in its bank when the plugin is added.
type Metered interface {
	Meters() Meters
}

// Routing is the cross-channel surface available to plugins.
// [copybus.Router] implements it.
type Routing interface {
	ChannelCount() int
	CopyBus(ch int) *copybus.Bus
	ReadInput(ch int, dst []float32) bool
}

// CaptureSink receives per-block data for visualization. Implementations
// must not block.
type CaptureSink interface {
	Capture(channel, slot int, key string, values []float32)
}

// Context is the block-scoped view handed to a [ContextProcessor].
type Context struct {
	Channel     int
	Slot        int
	SampleClock uint64
	SampleTime  int64
	SampleRate  float64
	// Requested is the set of signals consumed downstream of the channel.
	Requested analysis.Mask
	// Latency is the accumulated latency of the slots before this one.
	Latency int
	Routing Routing
	Writer  *analysis.Writer
	Signals analysis.Reader
	Capture CaptureSink
}

// Emit forwards values to the capture sink if one is attached.
func (c *Context) Emit(key string, values []float32) {
	if c.Capture != nil {
		c.Capture.Capture(c.Channel, c.Slot, key, values)
	}
}
