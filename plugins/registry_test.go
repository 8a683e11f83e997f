package plugins

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/config"
	"github.com/cwbudde/algo-hotmic/internal/testutil"
	"github.com/cwbudde/algo-hotmic/plugins/denoise"
)

const vocalChain = `
sample_rate: 48000
block_size: 480
channels:
  - request: [pitch-hz]
    plugins:
      - type: speech-detector
      - type: pitch-tracker
        options: {min-hz: "80", max-hz: "400"}
      - type: sibilance-detector
      - type: noise-reduction
        params: {strength: 1}
      - type: speech-gate
      - type: deesser
      - type: compressor
        params: {threshold: -24, ratio: 4}
      - type: copy-send
        options: {target: "1"}
      - type: signal-blocker
        options: {signals: "pitch-hz"}
      - type: gain
        params: {gain: -3}
  - plugins:
      - type: bus-input
      - type: onset-detector
      - type: formant-tracker
      - type: spectral-contrast
      - type: spectrum
      - type: denoiser
`

func TestDefaultRegistryTypes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"bus-input", "compressor", "copy-send", "deesser", "denoiser",
		"device-input", "formant-tracker", "gain", "noise-reduction",
		"onset-detector", "pitch-tracker", "sibilance-detector",
		"signal-blocker", "spectral-contrast", "spectrum", "speech-detector",
		"speech-gate",
	}, DefaultRegistry().Types())
}

func TestVocalChain(t *testing.T) {
	t.Parallel()

	doc, err := config.Load(strings.NewReader(vocalChain))
	require.NoError(t, err)

	e, err := config.Build(doc, DefaultRegistry())
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Close() })

	assert.Equal(t, []int{0, 1}, e.Order())
	assert.True(t, e.Requested(0).Has(analysis.SpeechPresence))
	assert.True(t, e.Requested(0).Has(analysis.SibilanceEnergy))

	vowel := testutil.Vowel[float32](150, 48000, 0.5, []float64{700, 1200, 2600}, 48000)

	for _, b := range testutil.Blocks(vowel, 480) {
		e.ProcessBlock([][]float32{b, nil})
	}

	testutil.RequireFinite(t, vowel)
	assert.Equal(t, 1023, e.Latency(0))
	assert.Equal(t, 1023+1023, e.Latency(1))

	for _, s := range e.Slots(0) {
		assert.False(t, s.Bypassed, s.Name)
		assert.Empty(t, s.Status, s.Name)
	}

	slots := e.Slots(1)
	require.Len(t, slots, 6)
	assert.Equal(t, "denoiser", slots[5].Name)
	assert.True(t, slots[5].Bypassed)
	assert.Contains(t, slots[5].Status, denoise.ErrNoModel.Error())

	table, err := e.Attribution(0)
	require.NoError(t, err)

	_, ok := table.Owner(analysis.PitchHz)
	assert.False(t, ok, "blocked downstream of the tracker")

	slot, ok := table.Owner(analysis.SpeechPresence)
	assert.True(t, ok)
	assert.Equal(t, 0, slot)
}

func TestFactoryOptionErrors(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()

	for _, tc := range []struct {
		typ  string
		opts config.Options
	}{
		{"copy-send", config.Options{"target": "x"}},
		{"copy-send", nil},
		{"pitch-tracker", config.Options{"min-hz": "500", "max-hz": "100"}},
		{"formant-tracker", config.Options{"order": "-1"}},
		{"signal-blocker", config.Options{"signals": "nope"}},
		{"denoiser", config.Options{"model": "missing"}},
	} {
		p, err := r.Lookup(tc.typ)(config.Context{SampleRate: 48000, BlockSize: 480, Channels: 1, Options: tc.opts})
		require.Error(t, err, tc.typ)
		assert.Nil(t, p, tc.typ)
	}
}
