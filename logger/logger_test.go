package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/poolctl/logger"
)

func TestLogLevelIsValid(t *testing.T) {
	assert.True(t, logger.LogLevelDebug.IsValid())
	assert.True(t, logger.LogLevelInfo.IsValid())
	assert.True(t, logger.LogLevelWarning.IsValid())
	assert.True(t, logger.LogLevelError.IsValid())
	assert.False(t, logger.LogLevel("trace").IsValid())
	assert.False(t, logger.LogLevel("").IsValid())
}

func TestNewWithWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer

	log, err := logger.NewWithWriter(logger.LogLevelWarning, &buf)
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Msg("hidden")
	log.Warn().Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNewWithInvalidLevel(t *testing.T) {
	_, err := logger.NewWithWriter(logger.LogLevel("loud"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_log_level")
}

func TestNopDiscards(t *testing.T) {
	log := logger.Nop()
	log.Error().Msg("nowhere")
}
