package meter

import "sync/atomic"

// ArrayBuffer publishes fixed-length arrays through two buffers. The writer
// fills the back buffer and flips the front index; a reader loads the index
// once and copies from the buffer it names.
type ArrayBuffer[T any] struct {
	bufs  [2][]T
	front atomic.Uint32
	seq   atomic.Uint64
}

// NewArrayBuffer returns a buffer of arrays of n elements.
func NewArrayBuffer[T any](n int) *ArrayBuffer[T] {
	n = max(n, 0)

	return &ArrayBuffer[T]{bufs: [2][]T{make([]T, n), make([]T, n)}}
}

// Len returns the array length.
func (b *ArrayBuffer[T]) Len() int {
	return len(b.bufs[0])
}

// Publish lets fill populate the back buffer, then makes it the front.
// Only one goroutine may publish.
func (b *ArrayBuffer[T]) Publish(fill func(dst []T)) {
	back := 1 - b.front.Load()
	fill(b.bufs[back])
	b.front.Store(back)
	b.seq.Add(1)
}

// PublishFrom copies src into the back buffer, then makes it the front.
// Only one goroutine may publish.
func (b *ArrayBuffer[T]) PublishFrom(src []T) {
	back := 1 - b.front.Load()
	copy(b.bufs[back], src)
	b.front.Store(back)
	b.seq.Add(1)
}

// Snapshot copies the front buffer into dst and returns the number of
// elements copied together with the publication count it belongs to.
func (b *ArrayBuffer[T]) Snapshot(dst []T) (n int, seq uint64) {
	seq = b.seq.Load()
	front := b.front.Load()

	return copy(dst, b.bufs[front]), seq
}

// Published returns how many times Publish completed.
func (b *ArrayBuffer[T]) Published() uint64 {
	return b.seq.Load()
}
