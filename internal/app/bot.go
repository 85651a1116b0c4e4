// Package app содержит основную логику приложения.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

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

const (
	maxRestartAttempts     = 10
	restartDelay           = 10 * time.Second
	maxRestartDelay        = 5 * time.Minute
	middlewareCleanupEvery = 5 * time.Minute
	shutdownTimeout        = 30 * time.Second
)

// Bot представляет основную логику бота
type Bot struct {
	config     *config.Config
	logger     *zap.Logger
	db         *storage.Postgres
	telegram   *telegram.Client
	health     *health.Server
	services   *service.Services
	middleware *middleware.Middleware
	pool       *worker.Pool
	fetcher    *fetcher.Fetcher
	stopOnce   sync.Once
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewBot создает новый экземпляр бота
func NewBot(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bot{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// NewBotWithFactory создает бота со всеми зависимостями
func NewBotWithFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	factory := NewComponentFactory(cfg, logger)
	return factory.CreateBot(ctx)
}

// Start запускает бота и блокируется до остановки
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	b.pool.Start()

	if b.health != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.health.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				b.logger.Error("Health check server failed", zap.Error(err))
			}
		}()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(middlewareCleanupEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				b.middleware.Cleanup()
			case <-b.ctx.Done():
				return
			}
		}
	}()

	b.logger.Info("Bot started successfully")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-b.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	restartAttempts := 0
	for {
		err := b.runUpdateLoop(ctx)
		if ctx.Err() != nil {
			b.logger.Info("Update loop stopped due to context cancellation")
			return ctx.Err()
		}
		if err == nil {
			restartAttempts = 0
			continue
		}

		restartAttempts++
		b.logger.Error("Update loop error",
			zap.Error(err),
			zap.Int("restart_attempt", restartAttempts),
			zap.Int("max_attempts", maxRestartAttempts))

		if restartAttempts > maxRestartAttempts {
			return fmt.Errorf("max restart attempts reached: %w", err)
		}

		delay := time.Duration(restartAttempts) * restartDelay
		if delay > maxRestartDelay {
			delay = maxRestartDelay
		}

		b.logger.Info("Waiting before restart", zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Stop останавливает бота: новые обновления не принимаются, начатые импорты дорабатывают
func (b *Bot) Stop() error {
	var stopErr error
	b.stopOnce.Do(func() {
		b.logger.Info("Stopping bot gracefully")
		b.cancel()

		if b.health != nil {
			if err := b.health.Stop(); err != nil {
				b.logger.Error("Failed to stop health check server", zap.Error(err))
			}
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			b.pool.Stop()
			b.wg.Wait()
		}()

		select {
		case <-done:
			b.logger.Info("All goroutines stopped successfully")
		case <-time.After(shutdownTimeout):
			b.logger.Warn("Graceful shutdown timeout exceeded, forcing stop")
		}

		if err := b.db.Close(); err != nil {
			b.logger.Error("Failed to close database connection", zap.Error(err))
			stopErr = err
		}

		b.logger.Info("Bot stopped successfully")
	})
	return stopErr
}

// runUpdateLoop запускает цикл обработки обновлений
func (b *Bot) runUpdateLoop(ctx context.Context) error {
	b.logger.Info("Starting update loop")
	router := NewRouter(b.services, b.config, b.telegram.GetBotAPI(), b.fetcher, b.pool, b.middleware, b.logger)
	return b.telegram.Start(ctx, router)
}
