package copybus

import "github.com/cwbudde/algo-hotmic/dsp/core"

// Router gives plugins access to the copy buses and the device inputs of
// the current block.
type Router struct {
	buses  []*Bus
	inputs [][]float32
}

// NewRouter returns a router with one bus per channel.
func NewRouter(channels, maxBlockSize int) *Router {
	channels = max(channels, 0)

	r := &Router{
		buses:  make([]*Bus, channels),
		inputs: make([][]float32, channels),
	}

	for i := range r.buses {
		r.buses[i] = New(maxBlockSize)
	}

	return r
}

// ChannelCount returns the number of channels.
func (r *Router) ChannelCount() int {
	return len(r.buses)
}

// CopyBus returns the bus of channel ch, or nil for unknown channels.
func (r *Router) CopyBus(ch int) *Bus {
	if ch < 0 || ch >= len(r.buses) {
		return nil
	}

	return r.buses[ch]
}

// SetInput registers the device input of channel ch for the current block.
// The slice is borrowed until the next call.
func (r *Router) SetInput(ch int, buf []float32) {
	if ch >= 0 && ch < len(r.inputs) {
		r.inputs[ch] = buf
	}
}

// ReadInput copies the device input of channel ch into dst, zero-padded.
// Unknown channels or channels without input zero dst and return false.
func (r *Router) ReadInput(ch int, dst []float32) bool {
	if ch < 0 || ch >= len(r.inputs) || r.inputs[ch] == nil {
		clear(dst)
		return false
	}

	core.CopyPadded(dst, r.inputs[ch])

	return true
}
