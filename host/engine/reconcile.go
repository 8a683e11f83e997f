package engine

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

// schedule orders channels so every copy-bus sender runs before the
// channel it sends to. Ties keep channel index order.
func (e *Engine) schedule() ([]int, error) {
	n := len(e.channels)
	indegree := make([]int, n)
	edges := make([][]int, n)

	for _, c := range e.channels {
		for _, s := range c.slots {
			target := s.caps.SendTarget
			if target < 0 {
				continue
			}

			if target >= n {
				return nil, fmt.Errorf("%w: channel %d slot %d (%s) sends to %d",
					ErrInvalidRoute, c.index, s.index, s.plugin.Name(), target)
			}

			if target == c.index {
				return nil, fmt.Errorf("%w: channel %d sends to itself", ErrCyclicRouting, c.index)
			}

			edges[c.index] = append(edges[c.index], target)
			indegree[target]++
		}
	}

	queue := make([]int, 0, n)
	for i := range n {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, n)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)

		for _, next := range edges[cur] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != n {
		var stuck []int

		for i, d := range indegree {
			if d > 0 {
				stuck = append(stuck, i)
			}
		}

		return nil, fmt.Errorf("%w: channels %v", ErrCyclicRouting, stuck)
	}

	return order, nil
}

// computeRequested walks the order backwards. A channel must produce what
// its own consumers need, what was requested explicitly, and everything
// requested on the channels it sends to.
func (e *Engine) computeRequested() {
	for i := len(e.order) - 1; i >= 0; i-- {
		c := e.channels[e.order[i]]

		req := c.extra
		for _, s := range c.slots {
			req |= s.caps.Required

			if s.caps.SendTarget >= 0 {
				req |= e.channels[s.caps.SendTarget].requested
			}
		}

		c.requested = req & analysis.All
	}
}

// warnRouting logs topologies that run but are probably not intended.
func (e *Engine) warnRouting() {
	senders := make([]int, len(e.channels))

	for _, c := range e.channels {
		for _, s := range c.slots {
			if s.caps.SendTarget >= 0 {
				senders[s.caps.SendTarget]++
			}
		}
	}

	for _, c := range e.channels {
		if senders[c.index] > 1 {
			e.log.Warn("several senders share a copy bus; the last one wins",
				slog.Int("channel", c.index),
				slog.Int("senders", senders[c.index]))
		}

		for _, s := range c.slots {
			if s.caps.Has(plugin.CapInput) && s.caps.Input == plugin.InputBus && senders[c.index] == 0 {
				e.log.Warn("bus input without sender reads silence",
					slog.Int("channel", c.index),
					slog.Int("slot", s.index),
					slog.String("plugin", s.plugin.Name()))
			}
		}
	}
}

// notifyAvailable tells a consumer which of its required signals have a
// producer, when that set changed since the last call.
func (e *Engine) notifyAvailable(c *channel, s *slot) {
	available := c.attr.Table().Attributed() & s.caps.Required
	if s.notified && available == s.available {
		return
	}

	s.available = available
	s.notified = true
	s.caps.Consumer.SignalsAvailable(available)
}

// publishAttribution hands the reconciled table to other goroutines when
// it changed.
func (e *Engine) publishAttribution(c *channel) {
	table := c.attr.Table()
	if c.snapshots.Published() > 0 && table.Equal(&c.published[0]) {
		return
	}

	c.published[0] = *table
	c.snapshots.PublishFrom(c.published)
}
