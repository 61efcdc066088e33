package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, Level("").Level())
	assert.Equal(t, zapcore.InfoLevel, Level("chatty").Level())
	assert.Equal(t, zapcore.DebugLevel, Level(" DEBUG ").Level())
	assert.Equal(t, zapcore.WarnLevel, Level("warn").Level())
}

func TestNewLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	logger, err := NewLogger(FormatJSON, false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = NewLogger(FormatConsole, true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
