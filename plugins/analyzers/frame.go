// Package analyzers holds the plugins that produce analysis signals: pitch,
// formants, speech presence, sibilance and onsets. They pass audio through
// unchanged and compute only the signals the engine allows them to write.
package analyzers

import (
	"math"

	"github.com/cwbudde/algo-hotmic/host/analysis"
)

// history keeps the most recent samples of a stream, oldest first.
type history struct {
	buf []float64
}

func newHistory(n int) history {
	return history{buf: make([]float64, max(n, 1))}
}

func (h *history) push(src []float32) {
	n := len(h.buf)
	if len(src) >= n {
		for i, x := range src[len(src)-n:] {
			h.buf[i] = float64(x)
		}

		return
	}

	copy(h.buf, h.buf[len(src):])

	tail := h.buf[n-len(src):]
	for i, x := range src {
		tail[i] = float64(x)
	}
}

func (h *history) pushSample(x float64) {
	copy(h.buf, h.buf[1:])
	h.buf[len(h.buf)-1] = x
}

func (h *history) frame() []float64 {
	return h.buf
}

func (h *history) reset() {
	clear(h.buf)
}

func rms(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}

	sum := 0.0
	for _, x := range buf {
		sum += x * x
	}

	return math.Sqrt(sum / float64(len(buf)))
}

func meanSquare32(buf []float32) float64 {
	if len(buf) == 0 {
		return 0
	}

	sum := 0.0
	for _, x := range buf {
		sum += float64(x) * float64(x)
	}

	return sum / float64(len(buf))
}

// smoothstep maps x from [lo, hi] onto [0, 1] with zero slope at both ends.
func smoothstep(x, lo, hi float64) float64 {
	if hi <= lo {
		if x >= hi {
			return 1
		}

		return 0
	}

	t := math.Min(math.Max((x-lo)/(hi-lo), 0), 1)

	return t * t * (3 - 2*t)
}

// wanted returns the signals of produced the writer accepts this block.
func wanted(w *analysis.Writer, produced analysis.Mask) analysis.Mask {
	return w.AllowedSignals() & produced
}
