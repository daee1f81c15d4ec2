package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Output: &buf, Service: "user-accounts"})
	log.Info().Str("username", "alice").Msg("user registered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "user-accounts", entry["service"])
	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, "user registered", entry["message"])
	assert.Contains(t, entry, "caller")
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Output: &buf})

	log.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_IndependentInstances(t *testing.T) {
	var a, b bytes.Buffer
	logA := New(Options{Output: &a})
	logB := New(Options{Output: &b, Level: "error"})
	logA.Info().Msg("to a")
	logB.Info().Msg("to b")

	assert.Contains(t, a.String(), "to a")
	assert.Empty(t, b.String())
}

func TestLevelFrom(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, levelFrom(in), "input %q", in)
	}
}
