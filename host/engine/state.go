package engine

import "fmt"

// applyPendingState hands state queued by SetState to the plugin. It runs
// on the audio goroutine between slots, so SetState never overlaps Process.
func (e *Engine) applyPendingState(c *channel, s *slot) {
	p := s.pending.Swap(nil)
	if p == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.demote(c, s, fmt.Sprintf("set state panicked: %v", r))
		}
	}()

	s.plugin.SetState(*p)
}
