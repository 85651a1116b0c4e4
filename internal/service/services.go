package service

import (
	"pokerstats/internal/config"
	"pokerstats/internal/parser"
	"pokerstats/internal/storage"

	"go.uber.org/zap"
)

// Services содержит все сервисы приложения
type Services struct {
	Settings *SettingsService
	Import   *ImportService
	Stats    *StatsService
}

// NewServices создает все сервисы
func NewServices(db *storage.Postgres, cfg *config.Config, logger *zap.Logger) *Services {
	settings := NewSettingsService(
		db.GetUserRepository(),
		cfg.Timezone,
		cfg.RakebackPercent,
		cfg.AdminUsername,
		logger.Named("settings"),
	)

	historyParser := parser.New(logger.Named("parser"))

	return &Services{
		Settings: settings,
		Import:   NewImportService(historyParser, db.GetTournamentRepository(), settings, logger.Named("import")),
		Stats:    NewStatsService(db.GetTournamentRepository(), settings, logger.Named("stats")),
	}
}
