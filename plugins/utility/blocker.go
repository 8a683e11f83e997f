package utility

import (
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// Blocker passes audio through and hides a fixed set of signals from the
// rest of its channel, whether their producer runs before or after it.
type Blocker struct {
	plugin.Base

	blocked analysis.Mask
}

// NewBlocker returns a blocker for mask.
func NewBlocker(mask analysis.Mask) *Blocker {
	return &Blocker{Base: plugin.NewBase("signal-blocker"), blocked: mask & analysis.All}
}

// Initialize implements plugin.Plugin.
func (*Blocker) Initialize(float64, int) error { return nil }

// Process implements plugin.Plugin.
func (*Blocker) Process([]float32) {}

// BlockedSignals implements plugin.SignalBlocker.
func (b *Blocker) BlockedSignals() analysis.Mask { return b.blocked }
