package logger

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope(t *testing.T) {
	attr := Scope("catalog.tables")
	assert.Equal(t, "scope", attr.Key)
	assert.Equal(t, "catalog.tables", attr.Value.String())
}

func TestError(t *testing.T) {
	err := errors.New("connection refused")
	attr := Error(err)
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.Nil(t, Error(nil).Value.Any())
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level    string
		enabled  slog.Level
		disabled slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"WARNING", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"", slog.LevelInfo, slog.LevelDebug},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run("LOG_LEVEL="+tt.level, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			log := NewLogger()
			require.NotNil(t, log)
			assert.True(t, log.Enabled(nil, tt.enabled))
			assert.False(t, log.Enabled(nil, tt.disabled))
		})
	}
}

func TestNewLoggerProduction(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("LOG_LEVEL", "")

	log := NewLogger()
	require.NotNil(t, log)
	assert.True(t, log.Enabled(nil, slog.LevelInfo))
}
