// Package meter publishes telemetry from the audio goroutine to monitoring
// goroutines without locks. Every meter has a single writer and any number
// of readers.
package meter

import (
	"math"
	"sync/atomic"
)

// atomicFloat64 stores a float64 in an atomic.Uint64.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat64) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

func (f *atomicFloat64) Swap(v float64) float64 {
	return math.Float64frombits(f.bits.Swap(math.Float64bits(v)))
}

func (f *atomicFloat64) CompareAndSwap(old, v float64) bool {
	return f.bits.CompareAndSwap(math.Float64bits(old), math.Float64bits(v))
}

// Peak holds the largest value published since the last poll.
type Peak struct {
	v atomicFloat64
}

// Publish raises the stored peak to v if v is larger. NaN is ignored.
func (p *Peak) Publish(v float64) {
	if math.IsNaN(v) {
		return
	}

	for {
		cur := p.v.Load()
		if v <= cur {
			return
		}

		if p.v.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Poll returns the peak since the previous poll and resets it to zero.
func (p *Peak) Poll() float64 {
	return p.v.Swap(0)
}

// Peek returns the current peak without resetting it.
func (p *Peak) Peek() float64 {
	return p.v.Load()
}

// Level holds the latest published value.
type Level struct {
	v atomicFloat64
}

// Store publishes v.
func (l *Level) Store(v float64) {
	l.v.Store(v)
}

// Load returns the latest published value.
func (l *Level) Load() float64 {
	return l.v.Load()
}
