package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/cwbudde/algo-hotmic/dsp/core"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual[T core.Sample](t testing.TB, got, want []T, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		diff := math.Abs(float64(got[i]) - float64(want[i]))
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite[T core.Sample](t testing.TB, data []T) {
	t.Helper()

	for i, v := range data {
		if !core.IsFinite(float64(v)) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsDiff returns the maximum absolute difference between two slices.
func MaxAbsDiff[T core.Sample](a, b []T) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}

	maxDiff := 0.0
	for i := range a {
		maxDiff = math.Max(maxDiff, math.Abs(float64(a[i])-float64(b[i])))
	}

	return maxDiff, nil
}

// RMS returns the root-mean-square of data.
func RMS[T core.Sample](data []T) float64 {
	if len(data) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range data {
		sum += float64(v) * float64(v)
	}

	return math.Sqrt(sum / float64(len(data)))
}
