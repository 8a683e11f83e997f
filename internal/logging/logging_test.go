package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestModuleJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := Module(New(Config{Level: "debug", Format: "json", Output: &buf}), "engine")
	log.Debug("prepared", slog.Int("channels", 2))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "engine", rec["module"])
	assert.Equal(t, "prepared", rec["msg"])
	assert.InDelta(t, 2, rec["channels"], 0)
}

func TestLevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := New(Config{Level: "warn", Output: &buf})
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNilModuleDiscards(t *testing.T) {
	t.Parallel()

	log := Module(nil, "x")
	require.NotNil(t, log)
	log.Error("dropped")
	assert.False(t, Discard().Enabled(t.Context(), slog.LevelError))
}
