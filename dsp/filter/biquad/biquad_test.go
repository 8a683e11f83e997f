package biquad

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-hotmic/internal/testutil"
)

const sampleRate = 48000.0

// magnitudeDB evaluates |H(f)| in dB from the closed-form squared response.
func magnitudeDB(c Coefficients, freqHz float64) float64 {
	cw := 2 * math.Cos(2*math.Pi*freqHz/sampleRate)

	num := (c.B0-c.B2)*(c.B0-c.B2) + c.B1*c.B1 + (c.B1*(c.B0+c.B2)+c.B0*c.B2*cw)*cw
	den := (1-c.A2)*(1-c.A2) + c.A1*c.A1 + (c.A1*(c.A2+1)+cw*c.A2)*cw

	return 10 * math.Log10(num/den)
}

func TestDesignMagnitudes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		coeffs Coefficients
		freq   float64
		wantDB float64
		tol    float64
	}{
		{name: "lowpass dc", coeffs: Lowpass(1000, DefaultQ, sampleRate), freq: 1, wantDB: 0, tol: 0.01},
		{name: "lowpass cutoff", coeffs: Lowpass(1000, DefaultQ, sampleRate), freq: 1000, wantDB: -3.01, tol: 0.05},
		{name: "highpass cutoff", coeffs: Highpass(4000, DefaultQ, sampleRate), freq: 4000, wantDB: -3.01, tol: 0.05},
		{name: "highpass near nyquist", coeffs: Highpass(4000, DefaultQ, sampleRate), freq: 23000, wantDB: 0, tol: 0.05},
		{name: "lowpass stopband", coeffs: Lowpass(1000, DefaultQ, sampleRate), freq: 10000, wantDB: -42.74, tol: 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := magnitudeDB(tt.coeffs, tt.freq)
			if math.Abs(got-tt.wantDB) > tt.tol {
				t.Fatalf("magnitude = %.4f dB, want %.4f", got, tt.wantDB)
			}
		})
	}
}

func TestInvalidFrequencyPassthrough(t *testing.T) {
	t.Parallel()

	for _, c := range []Coefficients{
		Lowpass(0, 1, sampleRate),
		Highpass(30000, 1, sampleRate),
		Lowpass(1000, 1, 0),
		Highpass(math.NaN(), 1, sampleRate),
	} {
		if c != Passthrough {
			t.Fatalf("expected passthrough, got %+v", c)
		}
	}
}

func TestBlockMatchesSample(t *testing.T) {
	t.Parallel()

	c := Highpass(2000, 1.5, sampleRate)
	in := testutil.Noise[float32](3, 0.5, 512)

	ref := NewSection(c)
	want := make([]float32, len(in))

	for i, x := range in {
		want[i] = float32(ref.ProcessSample(float64(x)))
	}

	s := NewSection(c)
	got := append([]float32(nil), in...)

	for _, block := range testutil.Blocks(got, 100) {
		s.ProcessBlock(block)
	}

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-6)
}

func TestResetClearsState(t *testing.T) {
	t.Parallel()

	s := NewSection(Lowpass(500, DefaultQ, sampleRate))
	s.ProcessBlock(testutil.DC[float32](1, 64))
	s.Reset()

	if y := s.ProcessSample(0); y != 0 {
		t.Fatalf("expected 0 after reset, got %v", y)
	}
}

func TestSilenceSettlesToExactZero(t *testing.T) {
	t.Parallel()

	s := NewSection(Lowpass(500, DefaultQ, sampleRate))
	s.ProcessBlock(testutil.Impulse[float32](64, 0))

	silence := make([]float32, 4096)
	for range 100 {
		s.ProcessBlock(silence)
	}

	if s.d0 != 0 || s.d1 != 0 {
		t.Fatalf("state = %g, %g, want exact zero", s.d0, s.d1)
	}
}
