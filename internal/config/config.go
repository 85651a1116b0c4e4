// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config представляет конфигурацию приложения
type Config struct {
	// Database
	DatabaseURL string

	// Telegram
	BotToken      string
	AdminUsername string

	// Health
	HealthPort         string
	HealthCheckEnabled bool

	// Logging
	LogLevel string

	// Timezone используется, пока пользователь не выбрал свой пояс
	Timezone string

	// RakebackPercent процент рейкбека по умолчанию для новых пользователей
	RakebackPercent decimal.Decimal

	// App Data Directory
	AppDataDir string

	// Import
	ImportConfig ImportConfig

	// Fetch
	FetchConfig FetchConfig

	// Rate limit
	RateLimitConfig RateLimitConfig

	// DebounceInterval минимальный интервал между одинаковыми командами
	DebounceInterval time.Duration
}

// ImportConfig представляет конфигурацию импорта выгрузок
type ImportConfig struct {
	MaxDocumentSize int64
	Workers         int
	QueueSize       int
	Timeout         time.Duration
}

// FetchConfig представляет конфигурацию загрузки файлов
type FetchConfig struct {
	UserAgent   string
	Timeout     time.Duration
	RetryConfig RetryConfig
}

// RetryConfig представляет конфигурацию retry механизма
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// RateLimitConfig представляет конфигурацию ограничения частоты запросов
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл если он существует
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:        getEnv("DB_DSN", ""),
		BotToken:           getEnv("BOT_TOKEN", ""),
		AdminUsername:      getEnv("ADMIN_USERNAME", ""),
		HealthPort:         getEnv("HEALTH_PORT", "8080"),
		HealthCheckEnabled: getEnvBool("HEALTH_CHECK_ENABLED", true),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Timezone:           getEnv("TIMEZONE", "UTC"),
		RakebackPercent:    getEnvDecimal("RAKEBACK_PERCENT", decimal.NewFromInt(30)),
		AppDataDir:         getEnv("APP_DATA_DIR", "./data"),
		ImportConfig: ImportConfig{
			MaxDocumentSize: int64(getEnvInt("MAX_DOCUMENT_SIZE", 20<<20)),
			Workers:         getEnvInt("IMPORT_WORKERS", 2),
			QueueSize:       getEnvInt("IMPORT_QUEUE_SIZE", 32),
			Timeout:         getEnvDuration("IMPORT_TIMEOUT", 2*time.Minute),
		},
		FetchConfig: FetchConfig{
			UserAgent: getEnv("FETCH_USER_AGENT", "pokerstats-bot/1.0"),
			Timeout:   getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
			RetryConfig: RetryConfig{
				MaxRetries:        getEnvInt("FETCH_MAX_RETRIES", 3),
				InitialDelay:      getEnvDuration("FETCH_INITIAL_DELAY", 1*time.Second),
				MaxDelay:          getEnvDuration("FETCH_MAX_DELAY", 30*time.Second),
				BackoffMultiplier: getEnvFloat("FETCH_BACKOFF_MULTIPLIER", 2.0),
			},
		},
		RateLimitConfig: RateLimitConfig{
			Enabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		DebounceInterval: getEnvDuration("DEBOUNCE_INTERVAL", time.Second),
	}

	// Валидация обязательных полей
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// GetAppDataDir возвращает директорию данных приложения
func (c *Config) GetAppDataDir() string {
	return c.AppDataDir
}

// Validate проверяет конфигурацию, общую для бота и CLI
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	if c.RakebackPercent.IsNegative() || c.RakebackPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("RAKEBACK_PERCENT must be between 0 and 100")
	}

	if c.HealthCheckEnabled {
		port, err := strconv.Atoi(c.HealthPort)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid HEALTH_PORT %q", c.HealthPort)
		}
	}

	if c.ImportConfig.MaxDocumentSize <= 0 {
		return fmt.Errorf("MAX_DOCUMENT_SIZE must be positive")
	}

	if c.ImportConfig.Workers <= 0 || c.ImportConfig.QueueSize <= 0 {
		return fmt.Errorf("IMPORT_WORKERS and IMPORT_QUEUE_SIZE must be positive")
	}

	if c.FetchConfig.RetryConfig.MaxRetries < 0 {
		return fmt.Errorf("FETCH_MAX_RETRIES must be non-negative")
	}

	if c.RateLimitConfig.Enabled && (c.RateLimitConfig.Requests <= 0 || c.RateLimitConfig.Window <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}

	return nil
}

// ValidateBot проверяет поля, нужные только Telegram боту
func (c *Config) ValidateBot() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	return nil
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как time.Duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool получает переменную окружения как bool
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDecimal получает переменную окружения как decimal
func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
