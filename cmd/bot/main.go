// Package main запускает Telegram-бота статистики турниров PokerCraft.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pokerstats/internal/app"
	"pokerstats/internal/config"
	"pokerstats/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewConsole("info").Fatal("Failed to load configuration", zap.Error(err))
	}

	log := logger.New(cfg.LogLevel, cfg.GetAppDataDir())
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bot, err := app.NewBotWithFactory(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	err = bot.Start(ctx)
	if stopErr := bot.Stop(); stopErr != nil {
		log.Error("Failed to stop bot cleanly", zap.Error(stopErr))
	}

	if err != nil && ctx.Err() == nil {
		log.Error("Bot stopped with error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Bot stopped successfully")
}
