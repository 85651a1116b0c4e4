// Package main содержит CLI для импорта выгрузок PokerCraft и просмотра статистики без бота.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pokerstats/internal/config"
	"pokerstats/internal/service"
	"pokerstats/internal/storage"
	"pokerstats/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// openStore открывает хранилище, в тестах подменяется на SQLite
var openStore = func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.Postgres, error) {
	db, err := storage.NewPostgres(ctx, cfg.DatabaseURL, storage.Options{MaxRetries: 1}, log.Named("storage"))
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// app собирает зависимости одной команды CLI
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *storage.Postgres
	services *service.Services
}

func setup(ctx context.Context, logLevel string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	log := logger.NewConsole(logLevel)

	db, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		services: service.NewServices(db, cfg, log),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("Failed to close database", zap.Error(err))
	}
	_ = a.log.Sync()
}

func newRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Import PokerCraft tournament history and show stats",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default from LOG_LEVEL)")

	withApp := func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), logLevel)
			if err != nil {
				return err
			}
			defer a.close()
			return run(cmd, a, args)
		}
	}

	root.AddCommand(
		newImportCommand(withApp),
		newStatsCommand(withApp),
		newUsersCommand(withApp),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
