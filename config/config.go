// Package config loads runtime settings from the environment and strategy
// presets from YAML.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"quant-systemv1/internal/store/sqldb"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Storage
	DBDriver string
	DBDSN    string

	// Cache and publishing. An empty RedisAddr disables Redis.
	RedisAddr     string
	RedisPassword string
	PanelCacheTTL time.Duration

	// Observability
	MetricsAddr string
	LogLevel    string

	// Selection delivery
	GatewayAddr      string // WebSocket feed for `quant serve`
	NotifyWebhookURL string
	TelegramBotToken string
	TelegramChatID   string

	// Execution
	Workers      int
	StrategyFile string // empty uses the embedded presets
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		DBDriver: getEnv("QUANT_DB_DRIVER", sqldb.DriverSQLite),
		DBDSN:    getEnv("QUANT_DB_DSN", "data/quant.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		PanelCacheTTL: getEnvDuration("PANEL_CACHE_TTL", 24*time.Hour),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		GatewayAddr:      getEnv("GATEWAY_ADDR", ":9090"),
		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		Workers:      getEnvInt("QUANT_WORKERS", 8),
		StrategyFile: getEnv("QUANT_STRATEGY_FILE", ""),
	}
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("config: ignoring invalid integer", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("config: ignoring invalid duration", "key", key, "value", v)
		return fallback
	}
	return d
}
