package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/engine"
	"github.com/cwbudde/algo-hotmic/host/plugin"
)

type gain struct {
	plugin.Base

	closed bool
}

func (*gain) Initialize(float64, int) error { return nil }

func (g *gain) Process(buf []float32) {
	v := g.At(0).Get()
	for i := range buf {
		buf[i] *= v
	}
}

func (g *gain) Close() error {
	g.closed = true
	return nil
}

type send struct {
	gain

	target int
}

func (s *send) SendTarget() int { return s.target }

func testRegistry(created *[]*gain) *Registry {
	r := NewRegistry()
	r.MustRegister("gain", func(Context) (plugin.Plugin, error) {
		g := &gain{Base: plugin.NewBase("gain", plugin.NewParam("gain", "", 0, 4, 1), plugin.NewParam("mix", "", 0, 1, 1))}
		*created = append(*created, g)

		return g, nil
	})
	r.MustRegister("send", func(ctx Context) (plugin.Plugin, error) {
		target, err := ctx.Options.Int("target", -1)
		if err != nil {
			return nil, err
		}

		return &send{gain: gain{Base: plugin.NewBase("send")}, target: target}, nil
	})

	return r
}

const topology = `
sample_rate: 16000
block_size: 160
channels:
  - request: [speech-presence, pitch-hz]
    plugins:
      - type: gain
        params: {gain: 2}
      - type: send
        options: {target: "1"}
  - plugins:
      - type: gain
        state: [0.5, 0.25]
`

func TestLoadAndBuild(t *testing.T) {
	t.Parallel()

	doc, err := Load(strings.NewReader(topology))
	require.NoError(t, err)
	assert.InDelta(t, 16000, doc.SampleRate, 0)
	assert.Equal(t, 160, doc.BlockSize)
	require.Len(t, doc.Channels, 2)

	var created []*gain

	e, err := Build(doc, testRegistry(&created))
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Close() })

	assert.Equal(t, 2, e.Config().Channels)
	assert.Equal(t, []int{0, 1}, e.Order())
	assert.Equal(t, analysis.MaskOf(analysis.SpeechPresence, analysis.PitchHz), e.Requested(0))

	require.Len(t, created, 2)
	assert.InDelta(t, 2, created[0].At(0).Get(), 1e-6)
	assert.InDelta(t, 0.5, created[1].At(0).Get(), 1e-6)
	assert.InDelta(t, 0.25, created[1].At(1).Get(), 1e-6)
}

func TestLoadDefaultsAndValidation(t *testing.T) {
	t.Parallel()

	doc, err := Load(strings.NewReader("channels:\n  - plugins: []\n"))
	require.NoError(t, err)
	assert.InDelta(t, 48000, doc.SampleRate, 0)
	assert.Equal(t, 480, doc.BlockSize)

	_, err = Load(strings.NewReader("channels: []\n"))
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Load(strings.NewReader("channels:\n  - request: [nope]\n"))
	require.ErrorIs(t, err, ErrInvalidDocument)
	require.ErrorIs(t, err, analysis.ErrUnknownSignal)

	_, err = Load(strings.NewReader("channels:\n  - plugins: [{params: {a: 1}}]\n"))
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Load(strings.NewReader("chanels: []\n"))
	require.Error(t, err)
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	var created []*gain

	reg := testRegistry(&created)

	unknown := &Document{Channels: []Channel{{Plugins: []Plugin{{Type: "gain"}, {Type: "reverb"}}}}}
	_, err := Build(unknown, reg)
	require.ErrorIs(t, err, ErrUnknownPlugin)
	require.Len(t, created, 1)
	assert.True(t, created[0].closed, "plugins created before the error are closed")

	badParam := &Document{Channels: []Channel{{Plugins: []Plugin{{Type: "gain", Params: map[string]float64{"drive": 1}}}}}}
	_, err = Build(badParam, reg)
	require.ErrorIs(t, err, ErrUnknownParam)

	cycle := &Document{Channels: []Channel{
		{Plugins: []Plugin{{Type: "send", Options: Options{"target": "1"}}}},
		{Plugins: []Plugin{{Type: "send", Options: Options{"target": "0"}}}},
	}}
	_, err = Build(cycle, reg)
	require.ErrorIs(t, err, engine.ErrCyclicRouting)

	badOption := &Document{Channels: []Channel{{Plugins: []Plugin{{Type: "send", Options: Options{"target": "x"}}}}}}
	_, err = Build(badOption, reg)
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	f := func(Context) (plugin.Plugin, error) { return nil, nil }

	require.NoError(t, r.Register("b", f))
	require.NoError(t, r.Register("a", f))
	require.Error(t, r.Register("a", f))
	require.Error(t, r.Register("", f))
	require.Error(t, r.Register("c", nil))
	assert.Panics(t, func() { r.MustRegister("a", f) })

	assert.NotNil(t, r.Lookup("a"))
	assert.Nil(t, r.Lookup("zzz"))
	assert.Equal(t, []string{"a", "b"}, r.Types())
}

func TestOptions(t *testing.T) {
	t.Parallel()

	o := Options{"n": "3", "f": "0.5", "m": "pitch-hz|hnr", "s": "x"}

	n, err := o.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = o.Int("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	f, err := o.Float("f", 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 0)

	m, err := o.Mask("m", analysis.None)
	require.NoError(t, err)
	assert.Equal(t, analysis.MaskOf(analysis.PitchHz, analysis.HNR), m)

	_, err = o.Mask("s", analysis.None)
	require.Error(t, err)

	assert.Equal(t, "x", o.String("s", ""))
	assert.Equal(t, "d", o.String("missing", "d"))
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "topo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(topology), 0o600))

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Channels, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
