package cli

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv(config.FileEnv, "")
	t.Setenv("TOKEN_STORE", "memory")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.TokenStore)

	logger := SetupLogger(cfg)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.Equal(t, "cli", logger.Component())
}

func TestLoadAndValidateConfigRejectsBadValues(t *testing.T) {
	t.Setenv(config.FileEnv, "")
	t.Setenv("TOKEN_STORE", "redis")

	_, err := LoadAndValidateConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token store 'redis'")
}

func TestSignalContextCancel(t *testing.T) {
	cfg := &config.Config{LogLevel: "error", LogFormat: "text"}
	ctx, cancel := SignalContext(context.Background(), SetupLogger(cfg))
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
