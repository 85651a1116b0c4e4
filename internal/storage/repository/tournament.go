// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"fmt"
	"time"

	"pokerstats/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// TournamentRepository реализует интерфейс для работы с турнирами
type TournamentRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewTournamentRepository создает новый репозиторий турниров
func NewTournamentRepository(db *bun.DB, logger *zap.Logger) *TournamentRepository {
	return &TournamentRepository{
		db:     db,
		logger: logger,
	}
}

// InsertIfAbsent сохраняет турнир. Возвращает false, если турнир с таким хэшем
// у пользователя уже есть.
func (r *TournamentRepository) InsertIfAbsent(ctx context.Context, t *model.Tournament) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, fmt.Errorf("invalid tournament: %w", err)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.NewInsert().
		Model(t).
		On("CONFLICT (user_id, tournament_hash) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to insert tournament: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

// List возвращает страницу турниров и общее число подходящих записей
func (r *TournamentRepository) List(ctx context.Context, filter model.TournamentFilter, page model.PageRequest) ([]model.Tournament, int, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	page = page.Normalize()

	direction := "ASC"
	if page.SortDesc {
		direction = "DESC"
	}

	var tournaments []model.Tournament
	q := r.db.NewSelect().Model(&tournaments)
	q = applyFilter(q, filter).
		OrderExpr("t.? "+direction, bun.Ident(string(page.SortField))).
		OrderExpr("t.id " + direction).
		Limit(page.Limit).
		Offset(page.Offset())

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tournaments: %w", err)
	}

	return tournaments, total, nil
}

// Aggregate считает суммы по выборке турниров
func (r *TournamentRepository) Aggregate(ctx context.Context, filter model.TournamentFilter) (*model.TournamentAggregate, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	agg := new(model.TournamentAggregate)
	q := r.db.NewSelect().
		Model((*model.Tournament)(nil)).
		ColumnExpr("COUNT(*) AS tournaments").
		ColumnExpr("COALESCE(SUM(t.buyin_total), 0) AS buyins").
		ColumnExpr("COALESCE(SUM(t.buyin_commission), 0) AS commission").
		ColumnExpr("COALESCE(SUM(t.prize_total), 0) AS prizes").
		ColumnExpr("COALESCE(SUM(t.prize_bounty), 0) AS bounties").
		ColumnExpr("COALESCE(SUM(t.net_profit), 0) AS net_profit").
		ColumnExpr("COALESCE(SUM(t.kills), 0) AS knockouts").
		ColumnExpr("COALESCE(SUM(t.kills_money), 0) AS knockouts_money").
		ColumnExpr("COALESCE(SUM(t.kills_nomoney), 0) AS knockouts_nomoney").
		ColumnExpr("COALESCE(SUM(CASE WHEN t.is_top_bounty THEN 1 ELSE 0 END), 0) AS top_bounties").
		ColumnExpr("COALESCE(SUM(CASE WHEN t.finish_place = 1 THEN 1 ELSE 0 END), 0) AS first_places").
		ColumnExpr("COALESCE(SUM(CASE WHEN t.finish_place BETWEEN 1 AND 3 THEN 1 ELSE 0 END), 0) AS top3").
		ColumnExpr("COALESCE(SUM(CASE WHEN t.finish_place BETWEEN 1 AND 10 THEN 1 ELSE 0 END), 0) AS top10").
		ColumnExpr("COALESCE(SUM(CASE WHEN t.finish_place > 10 THEN 1 ELSE 0 END), 0) AS out_of_top10").
		ColumnExpr("COALESCE(SUM(CASE WHEN t.prize_total > 0 THEN 1 ELSE 0 END), 0) AS itm")

	if err := applyFilter(q, filter).Scan(ctx, agg); err != nil {
		return nil, fmt.Errorf("failed to aggregate tournaments: %w", err)
	}

	// SQLite суммирует numeric во float, приводим к центам
	agg.Buyins = agg.Buyins.Round(2)
	agg.Commission = agg.Commission.Round(2)
	agg.Prizes = agg.Prizes.Round(2)
	agg.Bounties = agg.Bounties.Round(2)
	agg.NetProfit = agg.NetProfit.Round(2)

	return agg, nil
}

// CountByUser возвращает число турниров пользователя
func (r *TournamentRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*model.Tournament)(nil)).
		Where("t.user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return count, nil
}

// DeleteByUser удаляет все турниры пользователя
func (r *TournamentRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*model.Tournament)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tournaments: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	r.logger.Info("Deleted user tournaments", zap.Int64("user_id", userID), zap.Int64("deleted", deleted))
	return deleted, nil
}

// applyFilter добавляет условия фильтра к запросу
func applyFilter(q *bun.SelectQuery, f model.TournamentFilter) *bun.SelectQuery {
	q = q.Where("t.user_id = ?", f.UserID)

	if f.Buyin.Valid {
		q = q.Where("t.buyin_total = ?", f.Buyin.Decimal)
	}

	switch f.Place {
	case model.PlaceITM:
		q = q.Where("t.prize_total > 0")
	case model.PlaceNoITM:
		q = q.Where("t.prize_total = 0")
	case model.PlaceTop4_6:
		q = q.Where("t.finish_place BETWEEN 4 AND 6")
	}
	if f.FinishPlace > 0 {
		q = q.Where("t.finish_place = ?", f.FinishPlace)
	}

	if !f.From.IsZero() {
		q = q.Where("t.start_time >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("t.start_time <= ?", f.To.UTC())
	}
	if f.Weekday != nil {
		q = q.Where("t.weekday = ?", *f.Weekday)
	}

	if f.ClockFrom != "" && f.ClockTo != "" {
		if f.ClockFrom <= f.ClockTo {
			q = q.Where("t.start_clock BETWEEN ? AND ?", f.ClockFrom, f.ClockTo)
		} else {
			// Окно через полночь, например 22:00-02:00
			q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
				return sq.Where("t.start_clock >= ?", f.ClockFrom).WhereOr("t.start_clock <= ?", f.ClockTo)
			})
		}
	}

	return q
}
