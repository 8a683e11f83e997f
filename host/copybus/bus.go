// Package copybus carries one block of audio and analysis signals from a
// sending channel to a bus-input plugin on another channel.
//
// Freshness is decided only by sample clock equality: a reader whose clock
// differs from the clock of the last write gets silence. Nothing blocks.
package copybus

import (
	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/host/analysis"
)

// TrackSource exposes the current block values of each signal.
// [analysis.Store] implements it.
type TrackSource interface {
	Track(id analysis.SignalID) []float32
}

// WriteInfo describes the block being written.
type WriteInfo struct {
	Clock      uint64
	SampleTime int64
	Latency    int
	// Signals names the tracks valid for the block; only those are copied.
	Signals analysis.Mask
	Tracks  TrackSource
}

// ReadResult describes a read.
type ReadResult struct {
	// Fresh is true when the bus was written in the reader's cycle.
	Fresh      bool
	Latency    int
	SampleTime int64
	Mask       analysis.Mask
	// Length is the number of audio samples the writer stored.
	Length int
}

// Bus is the mailbox of one destination channel. It is written and read on
// the audio goroutine only.
type Bus struct {
	audio  []float32
	tracks [analysis.SignalCount][]float32

	length     int
	mask       analysis.Mask
	clock      uint64
	sampleTime int64
	latency    int
}

// New returns a bus for blocks of up to maxBlockSize samples. Its clock is
// zero, so it reads stale until the first write.
func New(maxBlockSize int) *Bus {
	maxBlockSize = max(maxBlockSize, 1)

	b := &Bus{audio: make([]float32, maxBlockSize)}

	backing := make([]float32, analysis.SignalCount*maxBlockSize)
	for i := range b.tracks {
		b.tracks[i] = backing[i*maxBlockSize : (i+1)*maxBlockSize : (i+1)*maxBlockSize]
	}

	return b
}

// Capacity returns the maximum block size.
func (b *Bus) Capacity() int {
	return len(b.audio)
}

// Clock returns the clock of the last write.
func (b *Bus) Clock() uint64 {
	return b.clock
}

// Write stores a copy of buf and of the signal tracks named by
// info.Signals. Audio beyond the capacity is dropped.
func (b *Bus) Write(buf []float32, info WriteInfo) {
	b.length = copy(b.audio, buf)
	b.clock = info.Clock
	b.sampleTime = info.SampleTime
	b.latency = info.Latency
	b.mask = analysis.None

	if info.Tracks == nil {
		return
	}

	for id := range info.Signals.IDs() {
		n := copy(b.tracks[id][:b.length], info.Tracks.Track(id))
		clear(b.tracks[id][n:b.length])
		b.mask |= id.Bit()
	}
}

// Read copies the stored audio into dst when the bus was written at clock.
// The copy is truncated or zero-padded to len(dst). A stale bus zeroes dst
// and reports latency 0 and no signals.
func (b *Bus) Read(dst []float32, clock uint64) ReadResult {
	if clock == 0 || clock != b.clock {
		clear(dst)
		return ReadResult{}
	}

	core.CopyPadded(dst, b.audio[:b.length])

	return ReadResult{
		Fresh:      true,
		Latency:    b.latency,
		SampleTime: b.sampleTime,
		Mask:       b.mask,
		Length:     b.length,
	}
}

// Signal returns the carried values of id for the last write, or nil when
// id was not carried.
func (b *Bus) Signal(id analysis.SignalID) []float32 {
	if !b.mask.Has(id) {
		return nil
	}

	return b.tracks[id][:b.length]
}
