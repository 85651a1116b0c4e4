package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:        "postgres://localhost/poker",
		HealthPort:         "8080",
		HealthCheckEnabled: true,
		Timezone:           "UTC",
		RakebackPercent:    decimal.NewFromInt(30),
		ImportConfig: ImportConfig{
			MaxDocumentSize: 1 << 20,
			Workers:         2,
			QueueSize:       8,
		},
		FetchConfig: FetchConfig{
			RetryConfig: RetryConfig{
				MaxRetries:        3,
				InitialDelay:      time.Second,
				MaxDelay:          30 * time.Second,
				BackoffMultiplier: 2.0,
			},
		},
		RateLimitConfig: RateLimitConfig{Enabled: true, Requests: 10, Window: time.Minute},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "invalid health check port", mutate: func(c *Config) { c.HealthPort = "70000" }, wantErr: true},
		{name: "port ignored when health disabled", mutate: func(c *Config) {
			c.HealthCheckEnabled = false
			c.HealthPort = "nope"
		}},
		{name: "unknown timezone", mutate: func(c *Config) { c.Timezone = "Mars/Base" }, wantErr: true},
		{name: "rakeback above 100", mutate: func(c *Config) { c.RakebackPercent = decimal.NewFromInt(120) }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.ImportConfig.Workers = 0 }, wantErr: true},
		{name: "zero document size", mutate: func(c *Config) { c.ImportConfig.MaxDocumentSize = 0 }, wantErr: true},
		{name: "rate limit without window", mutate: func(c *Config) { c.RateLimitConfig.Window = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateBot(t *testing.T) {
	cfg := validConfig()
	assert.Error(t, cfg.ValidateBot())

	cfg.BotToken = "test-token"
	assert.NoError(t, cfg.ValidateBot())
}

// safeSetEnv безопасно устанавливает переменную окружения
func safeSetEnv(t *testing.T, key, value string) {
	t.Helper()
	original, existed := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("Failed to set env var %s: %v", key, err)
	}
	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, original)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// safeUnsetEnv безопасно удаляет переменную окружения
func safeUnsetEnv(t *testing.T, key string) {
	t.Helper()
	original, existed := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("Failed to unset env var %s: %v", key, err)
	}
	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, original)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing required env var", func(t *testing.T) {
		safeUnsetEnv(t, "DB_DSN")
		_, err := Load()
		if err == nil {
			t.Error("Load() should fail when DB_DSN is missing")
		}
	})

	t.Run("valid config", func(t *testing.T) {
		safeSetEnv(t, "DB_DSN", "postgres://localhost/poker")
		safeSetEnv(t, "TIMEZONE", "UTC")
		safeSetEnv(t, "RAKEBACK_PERCENT", "42.5")
		safeSetEnv(t, "IMPORT_WORKERS", "4")
		safeSetEnv(t, "FETCH_TIMEOUT", "5s")
		safeSetEnv(t, "HEALTH_PORT", "9090")

		config, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		assert.Equal(t, "postgres://localhost/poker", config.DatabaseURL)
		assert.True(t, config.RakebackPercent.Equal(decimal.RequireFromString("42.5")))
		assert.Equal(t, 4, config.ImportConfig.Workers)
		assert.Equal(t, 5*time.Second, config.FetchConfig.Timeout)
		assert.Equal(t, "9090", config.HealthPort)
	})

	t.Run("malformed numbers fall back to defaults", func(t *testing.T) {
		safeSetEnv(t, "DB_DSN", "postgres://localhost/poker")
		safeSetEnv(t, "TIMEZONE", "UTC")
		safeSetEnv(t, "HEALTH_PORT", "8080")
		safeSetEnv(t, "IMPORT_QUEUE_SIZE", "many")
		safeSetEnv(t, "RAKEBACK_PERCENT", "lots")

		config, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		assert.Equal(t, 32, config.ImportConfig.QueueSize)
		assert.True(t, config.RakebackPercent.Equal(decimal.NewFromInt(30)))
	})
}
