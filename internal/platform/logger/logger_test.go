package logger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrofit/coach-api/internal/config"
	"github.com/macrofit/coach-api/internal/platform/logger"
)

func TestSetup_ValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{Port: 8080, LogLevel: level})
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := logger.Setup(config.ServerConfig{Port: 8080, LogLevel: "shouty"})
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
}

func TestContextCarriage(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		ctx := logger.WithLogger(context.Background(), custom)
		assert.Same(t, custom, logger.FromContext(ctx))
	})

	t.Run("missing logger falls back to default", func(t *testing.T) {
		t.Parallel()
		assert.NotNil(t, logger.FromContext(context.Background()))
	})

	t.Run("missing logger uses provided default", func(t *testing.T) {
		t.Parallel()
		def := slog.New(slog.NewTextHandler(io.Discard, nil))
		assert.Same(t, def, logger.FromContextOrDefault(context.Background(), def))
	})

	t.Run("nil logger is a no-op", func(t *testing.T) {
		t.Parallel()
		ctx := logger.WithLogger(context.Background(), nil)
		assert.NotNil(t, logger.FromContext(ctx))
	})
}
