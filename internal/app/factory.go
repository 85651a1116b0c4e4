// Package app содержит фабрику компонентов приложения.
package app

import (
	"context"
	"fmt"
	"os"

	"pokerstats/internal/config"
	"pokerstats/internal/external/fetcher"
	"pokerstats/internal/external/telegram"
	"pokerstats/internal/health"
	"pokerstats/internal/middleware"
	"pokerstats/internal/service"
	"pokerstats/internal/storage"
	"pokerstats/internal/worker"

	"go.uber.org/zap"
)

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config *config.Config
	logger *zap.Logger
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(config *config.Config, logger *zap.Logger) *ComponentFactory {
	if logger == nil {
		panic("Logger cannot be nil")
	}
	if config == nil {
		logger.Fatal("Config cannot be nil")
	}

	return &ComponentFactory{
		config: config,
		logger: logger,
	}
}

// CreateDatabase создает подключение к базе данных и готовит схему
func (f *ComponentFactory) CreateDatabase(ctx context.Context) (*storage.Postgres, error) {
	if f.config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := storage.NewPostgres(ctx, f.config.DatabaseURL, storage.DefaultOptions(), f.logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	f.logger.Info("Database connection created successfully")
	return db, nil
}

// CreateTelegramClient создает клиент Telegram
func (f *ComponentFactory) CreateTelegramClient() (*telegram.Client, error) {
	if f.config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	client, err := telegram.NewClient(f.config.BotToken, f.logger.Named("telegram"))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	f.logger.Info("Telegram client created successfully")
	return client, nil
}

// CreateFetcher создает загрузчик файлов выгрузки
func (f *ComponentFactory) CreateFetcher() *fetcher.Fetcher {
	retry := f.config.FetchConfig.RetryConfig
	return fetcher.New(fetcher.Config{
		UserAgent:   f.config.FetchConfig.UserAgent,
		Timeout:     f.config.FetchConfig.Timeout,
		MaxBodySize: f.config.ImportConfig.MaxDocumentSize,
		RetryConfig: fetcher.RetryConfig{
			MaxRetries:        retry.MaxRetries,
			InitialDelay:      retry.InitialDelay,
			MaxDelay:          retry.MaxDelay,
			BackoffMultiplier: retry.BackoffMultiplier,
		},
	}, f.logger.Named("fetcher"))
}

// CreateWorkerPool создает пул воркеров импорта
func (f *ComponentFactory) CreateWorkerPool() *worker.Pool {
	return worker.NewWorkerPool(f.config.ImportConfig.Workers, f.config.ImportConfig.QueueSize, f.logger.Named("worker"))
}

// CreateServices создает все сервисы
func (f *ComponentFactory) CreateServices(db *storage.Postgres) (*service.Services, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	services := service.NewServices(db, f.config, f.logger)
	f.logger.Info("Services created successfully")
	return services, nil
}

// CreateMiddleware создает middleware
func (f *ComponentFactory) CreateMiddleware(notifier middleware.Notifier) *middleware.Middleware {
	middlewareManager := middleware.New(f.config, notifier, f.logger.Named("middleware"))
	f.logger.Info("Middleware created successfully",
		zap.Bool("rate_limit", f.config.RateLimitConfig.Enabled),
		zap.Duration("debounce", f.config.DebounceInterval))
	return middlewareManager
}

// CreateHealthServer создает сервер health check
func (f *ComponentFactory) CreateHealthServer(db *storage.Postgres, pool *worker.Pool) (*health.Server, error) {
	if !f.config.HealthCheckEnabled {
		f.logger.Info("Health check server is disabled")
		return nil, nil
	}

	if f.config.HealthPort == "" {
		return nil, fmt.Errorf("health port is required when health check is enabled")
	}

	server := health.NewServer(f.config.HealthPort, db, pool, f.logger.Named("health"))
	f.logger.Info("Health check server created", zap.String("port", f.config.HealthPort))
	return server, nil
}

// CreateAppDataDirectory создает директорию данных приложения
func (f *ComponentFactory) CreateAppDataDirectory() error {
	dataDir := f.config.GetAppDataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		f.logger.Error("Failed to create app data directory", zap.String("dir", dataDir), zap.Error(err))
		return fmt.Errorf("failed to create app data directory: %w", err)
	}
	f.logger.Info("App data directory ready", zap.String("dir", dataDir))
	return nil
}

// CreateBot создает полный экземпляр бота со всеми зависимостями
func (f *ComponentFactory) CreateBot(ctx context.Context) (*Bot, error) {
	if err := f.ValidateConfig(); err != nil {
		return nil, err
	}

	if err := f.CreateAppDataDirectory(); err != nil {
		return nil, fmt.Errorf("failed to create app data directory: %w", err)
	}

	db, err := f.CreateDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	services, err := f.CreateServices(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create services: %w", err)
	}

	tgClient, err := f.CreateTelegramClient()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	pool := f.CreateWorkerPool()

	healthServer, err := f.CreateHealthServer(db, pool)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create health server: %w", err)
	}

	bot, err := NewBot(f.config, f.logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot.db = db
	bot.telegram = tgClient
	bot.health = healthServer
	bot.services = services
	bot.pool = pool
	bot.fetcher = f.CreateFetcher()
	bot.middleware = f.CreateMiddleware(tgClient.GetBotAPI())

	f.logger.Info("Bot created successfully with all dependencies")
	return bot, nil
}

// ValidateConfig проверяет конфигурацию на корректность
func (f *ComponentFactory) ValidateConfig() error {
	if f.config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := f.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := f.config.ValidateBot(); err != nil {
		return fmt.Errorf("invalid bot config: %w", err)
	}

	f.logger.Info("Configuration validation passed")
	return nil
}
