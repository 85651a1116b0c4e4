package service

import (
	"context"
	"fmt"

	"pokerstats/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// StatsOptions задает параметры расчета рейкбека
type StatsOptions struct {
	// IncludeRakeback переключает основной ROI на ROI с рейкбеком
	IncludeRakeback bool
	// RakebackPercent переопределяет процент из настроек пользователя
	RakebackPercent decimal.NullDecimal
}

// Stats представляет итоговую статистику по выборке турниров
type Stats struct {
	model.TournamentAggregate

	RakebackPercent    decimal.Decimal `json:"rakebackPercentage"`
	IncludeRakeback    bool            `json:"includeRakeback"`
	RakebackReceived   decimal.Decimal `json:"rakebackReceived"`
	ResultWithRakeback decimal.Decimal `json:"finalResultWithRakeback"`
	BaseROI            decimal.Decimal `json:"baseRoi"`
	ROIWithRakeback    decimal.Decimal `json:"roiWithRakeback"`
	AvgKnockoutPrice   decimal.Decimal `json:"avgKnockoutPrice"`
	OutOfMoney         int             `json:"noItm"`
}

// ROI возвращает основной ROI с учетом переключателя рейкбека
func (s *Stats) ROI() decimal.Decimal {
	if s.IncludeRakeback {
		return s.ROIWithRakeback
	}
	return s.BaseROI
}

// Result возвращает основной итог с учетом переключателя рейкбека
func (s *Stats) Result() decimal.Decimal {
	if s.IncludeRakeback {
		return s.ResultWithRakeback
	}
	return s.NetProfit
}

// ComputeStats считает производные показатели из сумм
func ComputeStats(agg model.TournamentAggregate, rakebackPercent decimal.Decimal, includeRakeback bool) Stats {
	rakeback := agg.Commission.Mul(rakebackPercent).Div(hundred).Round(2)
	withRakeback := agg.NetProfit.Add(rakeback)

	stats := Stats{
		TournamentAggregate: agg,
		RakebackPercent:     rakebackPercent,
		IncludeRakeback:     includeRakeback,
		RakebackReceived:    rakeback,
		ResultWithRakeback:  withRakeback,
		BaseROI:             ratioPercent(agg.NetProfit, agg.Buyins),
		ROIWithRakeback:     ratioPercent(withRakeback, agg.Buyins),
		AvgKnockoutPrice:    decimal.Zero,
		OutOfMoney:          agg.Tournaments - agg.ITM,
	}
	if agg.KnockoutsMoney > 0 {
		stats.AvgKnockoutPrice = agg.Bounties.Div(decimal.NewFromInt(int64(agg.KnockoutsMoney))).Round(2)
	}
	return stats
}

// ratioPercent возвращает part/total*100 с округлением до сотых, 0 при нулевом total
func ratioPercent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred).Round(2)
}

// StatsService считает статистику и отдает историю турниров
type StatsService struct {
	tournaments model.TournamentRepository
	settings    *SettingsService
	logger      *zap.Logger
}

// NewStatsService создает новый сервис статистики
func NewStatsService(tournaments model.TournamentRepository, settings *SettingsService, logger *zap.Logger) *StatsService {
	return &StatsService{
		tournaments: tournaments,
		settings:    settings,
		logger:      logger,
	}
}

// Stats считает статистику по фильтру
func (s *StatsService) Stats(ctx context.Context, filter model.TournamentFilter, opts StatsOptions) (*Stats, error) {
	agg, err := s.tournaments.Aggregate(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	percent := opts.RakebackPercent.Decimal
	if !opts.RakebackPercent.Valid {
		percent = s.settings.Rakeback(ctx, filter.UserID)
	}

	stats := ComputeStats(*agg, percent, opts.IncludeRakeback)

	s.logger.Debug("Stats computed",
		zap.Int64("user_id", filter.UserID),
		zap.Int("tournaments", stats.Tournaments),
		zap.String("net_profit", stats.NetProfit.String()),
		zap.Bool("include_rakeback", opts.IncludeRakeback))

	return &stats, nil
}

// History возвращает страницу турниров по фильтру
func (s *StatsService) History(ctx context.Context, filter model.TournamentFilter, page model.PageRequest) (model.Page[model.Tournament], error) {
	page = page.Normalize()
	items, total, err := s.tournaments.List(ctx, filter, page)
	if err != nil {
		return model.Page[model.Tournament]{}, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return model.NewPage(items, total, page), nil
}

// Reset удаляет все турниры пользователя
func (s *StatsService) Reset(ctx context.Context, userID int64) (int64, error) {
	deleted, err := s.tournaments.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset tournaments: %w", err)
	}
	return deleted, nil
}
