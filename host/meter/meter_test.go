package meter

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeakPollSemantics(t *testing.T) {
	t.Parallel()

	var p Peak

	for _, v := range []float64{0.2, 0.9, 0.5} {
		p.Publish(v)
	}

	assert.InDelta(t, 0.9, p.Poll(), 0)
	assert.InDelta(t, 0.0, p.Poll(), 0)
}

func TestPeakIgnoresNaNAndSmaller(t *testing.T) {
	t.Parallel()

	var p Peak

	p.Publish(0.3)
	p.Publish(math.NaN())
	p.Publish(-1)
	assert.InDelta(t, 0.3, p.Peek(), 0)
	assert.InDelta(t, 0.3, p.Peek(), 0, "Peek does not reset")
}

func TestPeakConcurrentPublish(t *testing.T) {
	t.Parallel()

	var (
		p  Peak
		wg sync.WaitGroup
	)

	for g := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 1000 {
				p.Publish(float64(g*1000 + i))
			}
		}()
	}

	wg.Wait()

	assert.InDelta(t, 7999, p.Poll(), 0)
}

func TestLevel(t *testing.T) {
	t.Parallel()

	var l Level

	assert.InDelta(t, 0, l.Load(), 0)
	l.Store(-6.5)
	l.Store(-3)
	assert.InDelta(t, -3, l.Load(), 0)
}

func TestArrayBufferSnapshot(t *testing.T) {
	t.Parallel()

	b := NewArrayBuffer[float32](4)
	require.Equal(t, 4, b.Len())

	dst := make([]float32, 4)
	n, seq := b.Snapshot(dst)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(0), seq)
	assert.Equal(t, []float32{0, 0, 0, 0}, dst)

	b.Publish(func(buf []float32) {
		for i := range buf {
			buf[i] = float32(i + 1)
		}
	})

	b.Publish(func(buf []float32) {
		for i := range buf {
			buf[i] = float32(10 * (i + 1))
		}
	})

	n, seq = b.Snapshot(dst)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(2), seq)
	assert.Equal(t, []float32{10, 20, 30, 40}, dst)

	b.PublishFrom([]float32{7, 8})
	n, seq = b.Snapshot(dst)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(3), seq)
	assert.Equal(t, []float32{7, 8, 3, 4}, dst, "back buffer keeps the values of two publications ago")

	b.PublishFrom([]float32{10, 20, 30, 40})

	short := make([]float32, 2)
	n, _ = b.Snapshot(short)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{10, 20}, short)
}

func TestBank(t *testing.T) {
	t.Parallel()

	bank := NewBank()
	p := bank.Peak("ch0/gain/peak")
	assert.Same(t, p, bank.Peak("ch0/gain/peak"))

	bank.Level("ch0/comp/gr").Store(-4)
	bank.Peak("a").Publish(1)

	var names []string
	bank.EachPeak(func(name string, _ *Peak) {
		names = append(names, name)
	})
	assert.Equal(t, []string{"a", "ch0/gain/peak"}, names)

	bank.EachLevel(func(name string, l *Level) {
		assert.Equal(t, "ch0/comp/gr", name)
		assert.InDelta(t, -4, l.Load(), 0)
	})
}
