// Package keyboard строит inline клавиатуры Telegram-бота.
package keyboard

import (
	"fmt"
	"strings"

	"pokerstats/internal/parser"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Префиксы callback data
const (
	statsPrefix   = "st"
	historyPrefix = "hi"
	allBuyins     = "all"
)

// StatsState состояние экрана статистики, закодированное в кнопках
type StatsState struct {
	Buyin           decimal.NullDecimal
	IncludeRakeback bool
}

// HistoryState состояние экрана истории
type HistoryState struct {
	Page  int
	Buyin decimal.NullDecimal
}

// Manager строит клавиатуры и разбирает callback data
type Manager struct {
	tiers []decimal.Decimal
	title cases.Caser
}

// NewManager создает менеджер клавиатур
func NewManager() *Manager {
	return &Manager{
		tiers: parser.TierBuyins(),
		title: cases.Title(language.Russian),
	}
}

// StatsKeyboard строит клавиатуру фильтра по бай-ину и переключателя рейкбека
func (m *Manager) StatsKeyboard(state StatsState) tgbotapi.InlineKeyboardMarkup {
	var tierRow []tgbotapi.InlineKeyboardButton
	for _, tier := range m.tiers {
		label := "$" + tier.String()
		if state.Buyin.Valid && state.Buyin.Decimal.Equal(tier) {
			label = "• " + label
		}
		tierRow = append(tierRow, tgbotapi.NewInlineKeyboardButtonData(label,
			encodeStats(StatsState{Buyin: decimal.NewNullDecimal(tier), IncludeRakeback: state.IncludeRakeback})))
	}

	allLabel := m.title.String("все бай-ины")
	if !state.Buyin.Valid {
		allLabel = "• " + allLabel
	}

	rakebackLabel := "Рейкбек: выкл"
	if state.IncludeRakeback {
		rakebackLabel = "Рейкбек: вкл"
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tierRow,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(allLabel,
				encodeStats(StatsState{IncludeRakeback: state.IncludeRakeback})),
			tgbotapi.NewInlineKeyboardButtonData(rakebackLabel,
				encodeStats(StatsState{Buyin: state.Buyin, IncludeRakeback: !state.IncludeRakeback})),
		),
	)
}

// HistoryKeyboard строит кнопки перехода между страницами истории
func (m *Manager) HistoryKeyboard(state HistoryState, totalPages int) (tgbotapi.InlineKeyboardMarkup, bool) {
	var row []tgbotapi.InlineKeyboardButton
	if state.Page > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("« Назад",
			encodeHistory(HistoryState{Page: state.Page - 1, Buyin: state.Buyin})))
	}
	if state.Page < totalPages {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Вперед »",
			encodeHistory(HistoryState{Page: state.Page + 1, Buyin: state.Buyin})))
	}
	if len(row) == 0 {
		return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(row), true
}

// ParseStats разбирает callback data экрана статистики: "st|<buyin|all>|<0|1>"
func ParseStats(data string) (StatsState, bool) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 || parts[0] != statsPrefix {
		return StatsState{}, false
	}

	var state StatsState
	buyin, ok := parseBuyin(parts[1])
	if !ok {
		return StatsState{}, false
	}
	state.Buyin = buyin

	switch parts[2] {
	case "1":
		state.IncludeRakeback = true
	case "0":
	default:
		return StatsState{}, false
	}
	return state, true
}

// ParseHistory разбирает callback data экрана истории: "hi|<page>|<buyin|all>"
func ParseHistory(data string) (HistoryState, bool) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 || parts[0] != historyPrefix {
		return HistoryState{}, false
	}

	var page int
	if _, err := fmt.Sscanf(parts[1], "%d", &page); err != nil || page < 1 {
		return HistoryState{}, false
	}
	buyin, ok := parseBuyin(parts[2])
	if !ok {
		return HistoryState{}, false
	}
	return HistoryState{Page: page, Buyin: buyin}, true
}

func encodeStats(state StatsState) string {
	rb := "0"
	if state.IncludeRakeback {
		rb = "1"
	}
	return strings.Join([]string{statsPrefix, encodeBuyin(state.Buyin), rb}, "|")
}

func encodeHistory(state HistoryState) string {
	return fmt.Sprintf("%s|%d|%s", historyPrefix, state.Page, encodeBuyin(state.Buyin))
}

func encodeBuyin(buyin decimal.NullDecimal) string {
	if !buyin.Valid {
		return allBuyins
	}
	return buyin.Decimal.String()
}

func parseBuyin(s string) (decimal.NullDecimal, bool) {
	if s == allBuyins {
		return decimal.NullDecimal{}, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}
