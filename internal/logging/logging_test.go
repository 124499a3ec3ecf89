package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{" WARNING ", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"", zapcore.InfoLevel, false},
		{"loud", zapcore.InfoLevel, false},
	}
	for _, tc := range cases {
		got, ok := parseLevel(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestDefaultConfig(t *testing.T) {
	rt := defaultConfig(ProfileRuntime)
	assert.Equal(t, "json", rt.Encoding)
	assert.Equal(t, zapcore.InfoLevel, rt.Level.Level())

	tc := defaultConfig(ProfileTest)
	assert.Equal(t, "console", tc.Encoding)
	assert.Equal(t, zapcore.DebugLevel, tc.Level.Level())
}

func TestNew(t *testing.T) {
	logger, err := New(Options{Level: "warn", Format: "console", Service: "muster"})
	require.NoError(t, err)
	defer func() { _ = logger.Sync() }()

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
