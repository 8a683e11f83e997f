package engine

import (
	"fmt"

	"github.com/cwbudde/algo-hotmic/dsp/core"
)

// ProcessBlock runs one block on every channel in place. bufs[ch] is the
// device input and the output of channel ch; a missing or nil entry runs
// the channel on silence (typical for channels fed by a copy bus). The
// block length is the shortest non-nil buffer, clamped to the configured
// block size. Nothing escapes as an error or panic.
func (e *Engine) ProcessBlock(bufs [][]float32) {
	if !e.prepared {
		return
	}

	n := e.blockLength(bufs)

	for i, c := range e.channels {
		in := c.input[:n]

		if i < len(bufs) && bufs[i] != nil {
			copy(in, bufs[i][:n])
		} else {
			clear(in)
		}

		e.router.SetInput(i, in)
	}

	e.clock++

	for _, idx := range e.order {
		c := e.channels[idx]

		buf := c.scratch[:n]
		if idx < len(bufs) && bufs[idx] != nil {
			buf = bufs[idx][:n]
		} else {
			clear(buf)
		}

		e.processChannel(c, buf)
	}

	e.sampleTime += int64(n)
}

func (e *Engine) blockLength(bufs [][]float32) int {
	n := -1

	for _, b := range bufs {
		if b != nil && (n < 0 || len(b) < n) {
			n = len(b)
		}
	}

	if n < 0 || n > e.cfg.BlockSize {
		n = e.cfg.BlockSize
	}

	return n
}

func (e *Engine) processChannel(c *channel, buf []float32) {
	c.store.BeginBlock(e.sampleTime, len(buf))
	c.attr.BeginBlock()

	latency := 0

	for _, s := range c.slots {
		e.applyPendingState(c, s)

		if s.bypass.Load() {
			c.attr.Release(s.index)
			continue
		}

		if s.caps.Consumer != nil {
			e.notifyAvailable(c, s)
		}

		s.writer.Begin(s.caps.Produced & c.requested)

		s.ctx.SampleClock = e.clock
		s.ctx.SampleTime = e.sampleTime
		s.ctx.Requested = c.requested
		s.ctx.Latency = latency
		s.ctx.Signals = c.store.Reader(c.attr.Table())

		if !e.runSlot(c, s, buf) {
			c.attr.Release(s.index)
			continue
		}

		c.attr.Reconcile(s.index, s.writer.Produced(), c.requested, s.caps.Blocked)

		if s.caps.Latency != nil {
			latency += max(s.caps.Latency.Latency(), 0)
		}
	}

	c.latency.Store(int64(latency))
	e.publishAttribution(c)
	c.output.Publish(float64(core.PeakAbs(buf)))
}

// runSlot runs one plugin on buf. A panic restores the input of the slot,
// demotes the plugin and reports false.
func (e *Engine) runSlot(c *channel, s *slot, buf []float32) (ok bool) {
	dry := c.dry[:len(buf)]
	copy(dry, buf)

	defer func() {
		if r := recover(); r != nil {
			copy(buf, dry)
			e.demote(c, s, fmt.Sprintf("process panicked: %v", r))

			ok = false
		}
	}()

	if s.caps.Context != nil {
		s.caps.Context.ProcessContext(buf, &s.ctx)
	} else {
		s.plugin.Process(buf)
	}

	return true
}
