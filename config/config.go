package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"zonebot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration that is not part of a strategy preset.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Account label written to the journal ("demo" or "live")
	AccountType string

	// Strategy selection
	PresetFile string // Optional YAML file with extra presets
	PresetName string

	// Trading window
	TradingCalendar string
	TradingTimezone *time.Location

	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string          // "json" or "console"

	// Connection Settings
	ReconnectDelay       time.Duration
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	defaultAccount := "live"
	if cfg.IsTestnet {
		defaultAccount = "demo"
	}
	cfg.AccountType = strings.ToLower(getEnv("ACCOUNT_TYPE", defaultAccount))
	if cfg.AccountType != "demo" && cfg.AccountType != "live" {
		errs = append(errs, "ACCOUNT_TYPE must be 'demo' or 'live'")
	}

	// Strategy selection
	cfg.PresetFile = getEnv("PRESET_FILE", "")
	cfg.PresetName = getEnv("PRESET_NAME", DefaultPreset)

	// Trading window
	cfg.TradingCalendar = getEnv("TRADING_CALENDAR", "always")
	tz := getEnv("TRADING_TIMEZONE", "Local")
	cfg.TradingTimezone, err = time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRADING_TIMEZONE: %v", err))
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/journal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "json"))
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		errs = append(errs, "LOG_FORMAT must be 'json' or 'console'")
	}

	// Connection Settings
	reconnectDelaySeconds, err := getEnvAsIntRequired("RECONNECT_DELAY_SECONDS", 1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RECONNECT_DELAY_SECONDS: %v", err))
	} else if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	maxDelaySeconds := getEnvAsInt("MAX_RECONNECT_DELAY_SECONDS", 32)
	if maxDelaySeconds < reconnectDelaySeconds {
		errs = append(errs, "MAX_RECONNECT_DELAY_SECONDS must not be below RECONNECT_DELAY_SECONDS")
	}
	cfg.MaxReconnectDelay = time.Duration(maxDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts, err = getEnvAsIntRequired("MAX_RECONNECT_ATTEMPTS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_RECONNECT_ATTEMPTS: %v", err))
	} else if cfg.MaxReconnectAttempts <= 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS must be positive")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
