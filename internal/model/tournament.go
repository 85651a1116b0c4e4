// Package model содержит модели данных.
//
// Группа: ENTITIES - Основные сущности
// Содержит: Tournament, TournamentFilter, TournamentAggregate, TournamentRepository
package model

import (
	"context"
	"time"

	"pokerstats/internal/parser"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Tournament представляет сохраненный турнир пользователя
type Tournament struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID         int64     `bun:"user_id,notnull" json:"user_id"`
	TournamentHash string    `bun:"tournament_hash,notnull" json:"tournament_hash"`
	ImportBatch    string    `bun:"import_batch" json:"import_batch"`
	StartTime      time.Time `bun:"start_time,notnull" json:"start_time"`
	StartClock     string    `bun:"start_clock,notnull" json:"start_clock"` // Время старта HH:MM в поясе пользователя
	Weekday        int       `bun:"weekday,notnull" json:"weekday"`

	BuyinTotal      decimal.Decimal `bun:"buyin_total,type:numeric(12,2),notnull" json:"buyin_total"`
	BuyinPrizePool  decimal.Decimal `bun:"buyin_prize_pool,type:numeric(12,2),notnull" json:"buyin_prize_pool"`
	BuyinCommission decimal.Decimal `bun:"buyin_commission,type:numeric(12,2),notnull" json:"buyin_commission"`
	BuyinBounty     decimal.Decimal `bun:"buyin_bounty,type:numeric(12,2),notnull" json:"buyin_bounty"`

	FinishPlace int             `bun:"finish_place,notnull" json:"finish_place"`
	PrizeTotal  decimal.Decimal `bun:"prize_total,type:numeric(12,2),notnull" json:"prize_total"`
	PrizePlace  decimal.Decimal `bun:"prize_place,type:numeric(12,2),notnull" json:"prize_place"`
	PrizeBounty decimal.Decimal `bun:"prize_bounty,type:numeric(12,2),notnull" json:"prize_bounty"`

	Kills        int `bun:"kills,notnull" json:"kills"`
	KillsMoney   int `bun:"kills_money,notnull" json:"kills_money"`
	KillsNoMoney int `bun:"kills_nomoney,notnull" json:"kills_nomoney"`

	Duration        string `bun:"duration" json:"duration"`
	DurationSeconds int    `bun:"duration_seconds,notnull" json:"duration_seconds"`

	NetProfit   decimal.Decimal `bun:"net_profit,type:numeric(12,2),notnull" json:"net_profit"`
	IsTopBounty bool            `bun:"is_top_bounty,notnull" json:"is_top_bounty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// NewTournament создает турнир пользователя из разобранной строки истории
func NewTournament(userID int64, batch string, rec parser.Record) *Tournament {
	clock := ""
	if len(rec.LocalStartTime) >= 5 {
		clock = rec.LocalStartTime[len(rec.LocalStartTime)-5:]
	}

	return &Tournament{
		UserID:          userID,
		TournamentHash:  rec.TournamentHash,
		ImportBatch:     batch,
		StartTime:       rec.StartTime.UTC(),
		StartClock:      clock,
		Weekday:         rec.Weekday,
		BuyinTotal:      rec.BuyinTotal,
		BuyinPrizePool:  rec.BuyinPrizePool,
		BuyinCommission: rec.BuyinCommission,
		BuyinBounty:     rec.BuyinBounty,
		FinishPlace:     rec.FinishPlace,
		PrizeTotal:      rec.PrizeTotal,
		PrizePlace:      rec.PrizePlace,
		PrizeBounty:     rec.PrizeBounty,
		Kills:           rec.Kills,
		KillsMoney:      rec.KillsMoney,
		KillsNoMoney:    rec.KillsNoMoney,
		Duration:        rec.Duration,
		DurationSeconds: rec.DurationSeconds,
		NetProfit:       rec.NetProfit,
		IsTopBounty:     rec.IsTopBounty,
	}
}

// Validate проверяет валидность турнира перед сохранением
func (t *Tournament) Validate() error {
	var errors ValidationErrors

	errors.add(ValidatePositiveInt("user_id", t.UserID))
	if len(t.TournamentHash) != 64 {
		errors = append(errors, ValidationError{Field: "tournament_hash", Message: "must be a 64-character hex digest"})
	}
	if t.StartTime.IsZero() {
		errors = append(errors, ValidationError{Field: "start_time", Message: "is required"})
	}
	if t.Weekday < 0 || t.Weekday > 6 {
		errors = append(errors, ValidationError{Field: "weekday", Message: "must be between 0 and 6"})
	}
	errors.add(ValidateClock("start_clock", t.StartClock))
	errors.add(ValidateNonNegativeDecimal("buyin_total", t.BuyinTotal))
	errors.add(ValidateNonNegativeDecimal("prize_total", t.PrizeTotal))
	errors.add(ValidateNonNegativeInt("finish_place", t.FinishPlace))
	errors.add(ValidateNonNegativeInt("kills", t.Kills))

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// TournamentFilter описывает условия выборки турниров пользователя
type TournamentFilter struct {
	UserID      int64
	Buyin       decimal.NullDecimal
	Place       PlaceFilter
	FinishPlace int       // Точное место, 0 - без фильтра
	From        time.Time // Нижняя граница start_time, нулевое значение - без границы
	To          time.Time
	Weekday     *int
	ClockFrom   string // Окно времени старта HH:MM в поясе пользователя
	ClockTo     string
}

// Validate проверяет валидность фильтра
func (f TournamentFilter) Validate() error {
	var errors ValidationErrors

	errors.add(ValidatePositiveInt("user_id", f.UserID))
	if !f.Place.IsValid() {
		errors = append(errors, ValidationError{Field: "place", Message: "must be one of: itm, no_itm, top4-6 or a number"})
	}
	errors.add(ValidateNonNegativeInt("finish_place", f.FinishPlace))
	if f.Weekday != nil && (*f.Weekday < 0 || *f.Weekday > 6) {
		errors = append(errors, ValidationError{Field: "weekday", Message: "must be between 0 and 6"})
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		errors = append(errors, ValidationError{Field: "to", Message: "must not be before from"})
	}
	errors.add(ValidateClock("clock_from", f.ClockFrom))
	errors.add(ValidateClock("clock_to", f.ClockTo))
	if (f.ClockFrom == "") != (f.ClockTo == "") {
		errors = append(errors, ValidationError{Field: "clock", Message: "both ends of the time window are required"})
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// TournamentAggregate содержит суммы по выборке турниров
type TournamentAggregate struct {
	Tournaments      int             `bun:"tournaments" json:"totalTournaments"`
	Buyins           decimal.Decimal `bun:"buyins" json:"totalBuyins"`
	Commission       decimal.Decimal `bun:"commission" json:"totalCommission"`
	Prizes           decimal.Decimal `bun:"prizes" json:"totalPrizes"`
	Bounties         decimal.Decimal `bun:"bounties" json:"totalBounties"`
	NetProfit        decimal.Decimal `bun:"net_profit" json:"finalResult"`
	Knockouts        int             `bun:"knockouts" json:"totalKnockouts"`
	KnockoutsMoney   int             `bun:"knockouts_money" json:"knockoutsWithPrize"`
	KnockoutsNoMoney int             `bun:"knockouts_nomoney" json:"emptyKnockouts"`
	TopBounties      int             `bun:"top_bounties" json:"topBounties"`
	FirstPlaces      int             `bun:"first_places" json:"first"`
	Top3             int             `bun:"top3" json:"top3"`
	Top10            int             `bun:"top10" json:"top10"`
	OutOfTop10       int             `bun:"out_of_top10" json:"outOfMoney"`
	ITM              int             `bun:"itm" json:"itm"`
}

// TournamentRepository определяет интерфейс для работы с турнирами
type TournamentRepository interface {
	// InsertIfAbsent сохраняет турнир, если у пользователя еще нет турнира с таким хэшем
	InsertIfAbsent(ctx context.Context, t *Tournament) (bool, error)
	List(ctx context.Context, filter TournamentFilter, page PageRequest) ([]Tournament, int, error)
	Aggregate(ctx context.Context, filter TournamentFilter) (*TournamentAggregate, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
