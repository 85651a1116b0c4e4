package parser

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record представляет нормализованный турнир из одной строки истории
type Record struct {
	TournamentHash string    `json:"tournament_hash"`
	StartTime      time.Time `json:"start_time"`
	// LocalStartTime время старта в поясе пользователя в виде "YYYY-MM-DD HH:MM"
	LocalStartTime string `json:"local_start_time"`
	Weekday        int    `json:"weekday"`

	BuyinTotal      decimal.Decimal `json:"buyin_total"`
	BuyinPrizePool  decimal.Decimal `json:"buyin_prize_pool"`
	BuyinCommission decimal.Decimal `json:"buyin_commission"`
	BuyinBounty     decimal.Decimal `json:"buyin_bounty"`

	FinishPlace int             `json:"finish_place"`
	PrizeTotal  decimal.Decimal `json:"prize_total"`
	PrizePlace  decimal.Decimal `json:"prize_place"`
	PrizeBounty decimal.Decimal `json:"prize_bounty"`

	Kills        int `json:"kills"`
	KillsMoney   int `json:"kills_money"`
	KillsNoMoney int `json:"kills_nomoney"`

	Duration        string `json:"duration"`
	DurationSeconds int    `json:"duration_seconds"`

	NetProfit   decimal.Decimal `json:"net_profit"`
	IsTopBounty bool            `json:"is_top_bounty"`
}

// IsITM сообщает, принес ли турнир деньги
func (r Record) IsITM() bool {
	return r.PrizeTotal.IsPositive()
}
