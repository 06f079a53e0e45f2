package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, l)

	l.Named("test").Debug("hello", zap.String("k", "v"))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger("chatty")
	assert.Error(t, err)
}

func TestZeroLoggerIsSafe(t *testing.T) {
	var l Logger
	assert.NotPanics(t, func() {
		l.Info("ignored")
		l.Warn("ignored")
		l.Error("ignored", zap.Int("n", 1))
		_ = l.Sync()
	})
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Debug("ignored")
		l.Info("ignored")
		l.Warn("ignored")
		l.Error("ignored")
		l.Named("child").Info("ignored")
		_ = l.Sync()
	})
}
