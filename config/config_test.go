package config

import (
	"testing"
	"time"

	"zonebot/internal/adapters/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsTestnet)
	assert.Equal(t, "demo", cfg.AccountType)
	assert.Equal(t, DefaultPreset, cfg.PresetName)
	assert.Equal(t, "always", cfg.TradingCalendar)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 32*time.Second, cfg.MaxReconnectDelay)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IS_TESTNET", "false")
	t.Setenv("PRESET_NAME", "gold-m1-zone")
	t.Setenv("TRADING_CALENDAR", "asia-london")
	t.Setenv("TRADING_TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_RECONNECT_ATTEMPTS", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.IsTestnet)
	assert.Equal(t, "live", cfg.AccountType)
	assert.Equal(t, "gold-m1-zone", cfg.PresetName)
	assert.Equal(t, "asia-london", cfg.TradingCalendar)
	assert.Equal(t, time.UTC, cfg.TradingTimezone)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 3, cfg.MaxReconnectAttempts)
}

func TestLoadConfig_AggregatesErrors(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_API_SECRET", "")
	t.Setenv("MAX_RECONNECT_ATTEMPTS", "many")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BINANCE_API_KEY must be set")
	assert.Contains(t, err.Error(), "BINANCE_API_SECRET must be set")
	assert.Contains(t, err.Error(), "invalid MAX_RECONNECT_ATTEMPTS")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}
