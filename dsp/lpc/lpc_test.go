package lpc

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-hotmic/internal/testutil"
)

func resonance(freq, bw, sampleRate float64) []float64 {
	theta := 2 * math.Pi * freq / sampleRate
	r := math.Exp(-math.Pi * bw / sampleRate)

	return []float64{1, -2 * r * math.Cos(theta), r * r}
}

func convolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}

	return out
}

func TestFormantsFromResonators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		coeffs     []float64
		sampleRate float64
		want       []Formant
	}{
		{
			name:       "single 500 Hz",
			coeffs:     resonance(500, 80, 16000),
			sampleRate: 16000,
			want:       []Formant{{500, 80}},
		},
		{
			name:       "500 and 2000 Hz",
			coeffs:     convolve(resonance(500, 100, 16000), resonance(2000, 300, 16000)),
			sampleRate: 16000,
			want:       []Formant{{500, 100}, {2000, 300}},
		},
		{
			name:       "narrow 2500 Hz",
			coeffs:     resonance(2500, 5, 12000),
			sampleRate: 12000,
			want:       []Formant{{2500, 5}},
		},
		{
			name:       "too broad",
			coeffs:     resonance(1000, 4000, 16000),
			sampleRate: 16000,
		},
		{
			name:       "above 0.9 nyquist",
			coeffs:     resonance(7500, 100, 16000),
			sampleRate: 16000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Formants(tt.coeffs, tt.sampleRate, 90, 8000)
			if err != nil {
				t.Fatal(err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}

			for i := range got {
				if math.Abs(got[i].FrequencyHz-tt.want[i].FrequencyHz) > 1e-6 ||
					math.Abs(got[i].BandwidthHz-tt.want[i].BandwidthHz) > 1e-6 {
					t.Fatalf("formant %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBurgRecoversAR2(t *testing.T) {
	t.Parallel()

	want := resonance(1000, 200, 8000)
	drive := testutil.Noise[float64](11, 1, 8192)
	x := make([]float64, len(drive))

	for n := range x {
		x[n] = drive[n]
		if n >= 1 {
			x[n] -= want[1] * x[n-1]
		}

		if n >= 2 {
			x[n] -= want[2] * x[n-2]
		}
	}

	got, err := Burg(x, 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 0.05 {
			t.Fatalf("coefficients = %v, want %v", got, want)
		}
	}
}

func TestBurgRecoversAR4(t *testing.T) {
	t.Parallel()

	const sampleRate = 10000.0

	want := convolve(resonance(700, 80, sampleRate), resonance(1800, 120, sampleRate))
	drive := testutil.Noise[float64](3, 1, 1<<16)
	x := make([]float64, len(drive))

	for n := range x {
		x[n] = drive[n]
		for k := 1; k < len(want) && k <= n; k++ {
			x[n] -= want[k] * x[n-k]
		}
	}

	got, err := Burg(x[4096:], 4)
	if err != nil {
		t.Fatal(err)
	}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 0.05 {
			t.Fatalf("coefficients = %v, want %v", got, want)
		}
	}

	formants, err := Formants(got, sampleRate, 90, 5000)
	if err != nil {
		t.Fatal(err)
	}

	if len(formants) != 2 {
		t.Fatalf("formants = %+v, want two", formants)
	}

	for i, target := range []float64{700, 1800} {
		if math.Abs(formants[i].FrequencyHz-target) > 15 {
			t.Fatalf("formant %d = %v Hz, want %v", i, formants[i].FrequencyHz, target)
		}
	}
}

func TestBurgResonantNoiseFormants(t *testing.T) {
	t.Parallel()

	const sampleRate = 10000.0

	poly := convolve(resonance(700, 80, sampleRate), resonance(1800, 120, sampleRate))
	drive := testutil.Noise[float64](5, 1, 4096)
	x := make([]float64, len(drive))

	for n := range x {
		x[n] = drive[n]
		for k := 1; k < len(poly) && k <= n; k++ {
			x[n] -= poly[k] * x[n-k]
		}
	}

	a, err := NewAnalyzer(10)
	if err != nil {
		t.Fatal(err)
	}

	coeffs, err := a.Burg(nil, x[2048:])
	if err != nil {
		t.Fatal(err)
	}

	formants, err := a.Formants(nil, coeffs, sampleRate, 90, 5000)
	if err != nil {
		t.Fatal(err)
	}

	for _, target := range []float64{700, 1800} {
		found := false

		for _, f := range formants {
			if math.Abs(f.FrequencyHz-target) < 25 {
				found = true
			}
		}

		if !found {
			t.Fatalf("no formant near %v Hz in %+v", target, formants)
		}
	}
}

func TestBurgSilenceAndOrder(t *testing.T) {
	t.Parallel()

	coeffs, err := Burg(make([]float64, 64), 4)
	if err != nil {
		t.Fatal(err)
	}

	if coeffs[0] != 1 {
		t.Fatalf("a[0] = %v, want 1", coeffs[0])
	}

	for _, c := range coeffs[1:] {
		if c != 0 {
			t.Fatalf("silence should leave coefficients at zero, got %v", coeffs)
		}
	}

	if _, err := Burg(make([]float64, 4), 4); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}

	if _, err := NewAnalyzer(0); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
}

func TestPreEmphasis(t *testing.T) {
	t.Parallel()

	buf := []float64{1, 1, 1}
	last := PreEmphasis(buf, 0.5, 0)

	if buf[0] != 1 || buf[1] != 0.5 || buf[2] != 0.5 || last != 1 {
		t.Fatalf("unexpected %v last=%v", buf, last)
	}
}
