// Package routing holds the plugins that move audio between channels: a
// copy-bus sender, a copy-bus input and a device input.
package routing

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-hotmic/host/copybus"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

var ErrInvalidTarget = errors.New("routing: invalid target channel")

// Send copies the channel audio and its attributed signals to the copy bus
// of another channel. The audio of its own channel passes unchanged.
type Send struct {
	plugin.Base

	target int
}

// NewSend returns a sender to channel target.
func NewSend(target int) (*Send, error) {
	if target < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}

	return &Send{Base: plugin.NewBase("copy-send"), target: target}, nil
}

// Initialize implements plugin.Plugin.
func (*Send) Initialize(float64, int) error { return nil }

// Process implements plugin.Plugin. Without a context there is nowhere to
// send to.
func (*Send) Process([]float32) {}

// SendTarget implements plugin.BusSender.
func (s *Send) SendTarget() int { return s.target }

// ProcessContext implements plugin.ContextProcessor.
func (s *Send) ProcessContext(buf []float32, ctx *plugin.Context) {
	if ctx.Routing == nil {
		return
	}

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
