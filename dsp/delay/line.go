// Package delay provides integer sample delay lines used to align dry
// signals with latency-introducing processing.
package delay

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is returned for non-positive line sizes or out-of-range delays.
var ErrInvalidSize = errors.New("delay: invalid size")

// Line is a circular float32 delay line with a fixed capacity.
type Line struct {
	buffer   []float32
	writePos int
}

// New returns a delay line able to hold delays up to size-1 samples.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	return &Line{buffer: make([]float32, size)}, nil
}

// Len returns the internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write writes one sample.
func (d *Line) Write(sample float32) {
	d.buffer[d.writePos] = sample

	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read returns the sample written delay writes ago. Read(1) is the most
// recent sample. Delays beyond the capacity wrap.
func (d *Line) Read(delay int) float32 {
	size := len(d.buffer)
	if size == 0 {
		return 0
	}

	readPos := ((d.writePos-delay)%size + size) % size

	return d.buffer[readPos]
}

// Reset clears line state.
func (d *Line) Reset() {
	clear(d.buffer)
	d.writePos = 0
}

// Fixed delays a stream by a constant number of samples. A zero delay is a
// pass-through.
type Fixed struct {
	line  *Line
	delay int
}

// NewFixed returns a fixed delay of the given number of samples.
func NewFixed(delay int) (*Fixed, error) {
	if delay < 0 {
		return nil, fmt.Errorf("%w: negative delay %d", ErrInvalidSize, delay)
	}

	if delay == 0 {
		return &Fixed{}, nil
	}

	line, err := New(delay)
	if err != nil {
		return nil, err
	}

	return &Fixed{line: line, delay: delay}, nil
}

// Delay returns the configured delay in samples.
func (f *Fixed) Delay() int {
	return f.delay
}

// Tick pushes one sample and returns the sample from delay samples ago.
func (f *Fixed) Tick(x float32) float32 {
	if f.line == nil {
		return x
	}

	// With size == delay, the slot about to be overwritten is the oldest.
	y := f.line.buffer[f.line.writePos]
	f.line.Write(x)

	return y
}

// ProcessTo writes src delayed into dst. dst and src may alias.
func (f *Fixed) ProcessTo(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = f.Tick(src[i])
	}
}

// ProcessInPlace delays buf in place.
func (f *Fixed) ProcessInPlace(buf []float32) {
	f.ProcessTo(buf, buf)
}

// Reset clears the delay memory.
func (f *Fixed) Reset() {
	if f.line != nil {
		f.line.Reset()
	}
}
