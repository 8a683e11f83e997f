package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen[T Sample](buf []T, n int) []T {
	if n <= 0 {
		return buf[:0]
	}

	if cap(buf) >= n {
		return buf[:n]
	}

	return make([]T, n)
}

// CopyPadded copies src into dst, truncating when src is longer and
// zero-filling the tail when it is shorter. It returns the number of
// samples taken from src.
func CopyPadded[T Sample](dst, src []T) int {
	n := copy(dst, src)
	clear(dst[n:])

	return n
}

// PeakAbs returns the largest absolute sample value in buf.
func PeakAbs(buf []float32) float32 {
	var peak float32

	for _, v := range buf {
		if v < 0 {
			v = -v
		}

		if v > peak {
			peak = v
		}
	}

	return peak
}
