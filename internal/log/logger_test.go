package log_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/meenmo/quantlib/internal/config"
	"github.com/meenmo/quantlib/internal/log"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	logger, err := log.NewLogger(config.LoggingConfig{Level: "DEBUG", Encoding: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = log.NewLogger(config.Default().Logging)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewLoggerRejectsLevel(t *testing.T) {
	t.Parallel()

	_, err := log.NewLogger(config.LoggingConfig{Level: "loud", Encoding: "json"})
	require.Error(t, err)
}
