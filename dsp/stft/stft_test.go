package stft

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-hotmic/dsp/window"
	"github.com/cwbudde/algo-hotmic/internal/testutil"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		size, hop int
		opts      []Option
		want      error
	}{
		{name: "too small", size: 8, hop: 4, want: ErrInvalidSize},
		{name: "not power of two", size: 100, hop: 50, want: ErrInvalidSize},
		{name: "hop does not divide", size: 64, hop: 24, want: ErrInvalidHop},
		{name: "zero hop", size: 64, hop: 0, want: ErrInvalidHop},
		{name: "hann pair at half overlap", size: 64, hop: 32, opts: []Option{WithWindows(window.TypeHann, window.TypeHann)}, want: ErrNotCOLA},
		{name: "rect pair at half overlap", size: 64, hop: 32, opts: []Option{WithWindows(window.TypeRectangular, window.TypeRectangular)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.size, tt.hop, tt.opts...)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				return
			}

			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestImpulseIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                string
		size, hop           int
		analysis, synthesis window.Type
	}{
		{name: "sqrt-hann 50%", size: 512, hop: 256, analysis: window.TypeSqrtHann, synthesis: window.TypeSqrtHann},
		{name: "sqrt-hann 75%", size: 256, hop: 64, analysis: window.TypeSqrtHann, synthesis: window.TypeSqrtHann},
		{name: "hann pair 75%", size: 128, hop: 32, analysis: window.TypeHann, synthesis: window.TypeHann},
		{name: "hann analysis rect synthesis 50%", size: 64, hop: 32, analysis: window.TypeHann, synthesis: window.TypeRectangular},
		{name: "rect no overlap", size: 32, hop: 32, analysis: window.TypeRectangular, synthesis: window.TypeRectangular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, err := New(tt.size, tt.hop, WithWindows(tt.analysis, tt.synthesis))
			if err != nil {
				t.Fatal(err)
			}

			for _, pos := range []int{0, 3, tt.hop + 1, 2*tt.size + 5} {
				e.Reset()

				length := pos + e.Latency() + tt.size
				buf := testutil.Impulse[float32](length, pos)
				e.Process(buf, nil)

				want := testutil.Impulse[float32](length, pos+e.Latency())
				testutil.RequireSliceNearlyEqual(t, buf, want, 1e-5)
			}
		})
	}
}

func TestNoiseIdentityAcrossBlocks(t *testing.T) {
	t.Parallel()

	e, err := New(256, 64)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.Noise[float32](7, 0.5, 4096)
	out := make([]float32, len(in))
	copy(out, in)

	// Odd block size so frame boundaries fall mid-block.
	for _, block := range testutil.Blocks(out, 37) {
		e.Process(block, BinFunc(func([]complex128) {}))
	}

	lat := e.Latency()
	testutil.RequireSliceNearlyEqual(t, out[lat:], in[:len(in)-lat], 1e-5)
}

func TestZeroedBinsSilence(t *testing.T) {
	t.Parallel()

	e, err := New(64, 16)
	if err != nil {
		t.Fatal(err)
	}

	buf := testutil.Sine[float32](1000, 48000, 1, 1024)
	e.Process(buf, BinFunc(func(bins []complex128) {
		clear(bins)
	}))

	if rms := testutil.RMS(buf); rms > 1e-9 {
		t.Fatalf("expected silence, rms=%v", rms)
	}
}

func TestAnalyzeFindsSinePeak(t *testing.T) {
	t.Parallel()

	const (
		size       = 1024
		sampleRate = 48000.0
	)

	e, err := New(size, size/2)
	if err != nil {
		t.Fatal(err)
	}

	freq := e.BinFrequency(64, sampleRate)
	buf := testutil.Sine[float32](freq, sampleRate, 1, 4*size)
	orig := append([]float32(nil), buf...)

	frames := 0
	e.Analyze(buf, func(bins []complex128) {
		frames++

		if len(bins) != e.Bins() {
			t.Fatalf("bins = %d, want %d", len(bins), e.Bins())
		}

		peak, best := 0.0, -1
		for k, b := range bins {
			if m := cmplx.Abs(b); m > peak {
				peak, best = m, k
			}
		}

		if frames > 2 && best != 64 {
			t.Fatalf("frame %d: peak bin %d, want 64", frames, best)
		}
	})

	if frames != 8 {
		t.Fatalf("frames = %d, want 8", frames)
	}

	testutil.RequireSliceNearlyEqual(t, buf, orig, 0)
}

func TestGainMatchesWindowPair(t *testing.T) {
	t.Parallel()

	e, err := New(256, 64, WithWindows(window.TypeHann, window.TypeHann))
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(e.Gain()-1.5) > 1e-9 {
		t.Fatalf("gain = %v, want 1.5", e.Gain())
	}

	if e.Latency() < e.Size()-e.Hop() {
		t.Fatalf("latency %d below size-hop", e.Latency())
	}
}

func BenchmarkProcess(b *testing.B) {
	e, err := New(1024, 256)
	if err != nil {
		b.Fatal(err)
	}

	buf := testutil.Noise[float32](1, 0.5, 480)
	proc := BinFunc(func([]complex128) {})

	b.ReportAllocs()

	for b.Loop() {
		e.Process(buf, proc)
	}
}
