// Package handlers содержит обработчики пользовательских команд.
package handlers

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"pokerstats/internal/keyboard"
	"pokerstats/internal/model"
	"pokerstats/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// historyPageSize размер страницы истории, если limit не задан
const historyPageSize = 10

const filterHelp = "Фильтры: buyin=3 place=itm|no_itm|top4-6|1 from=2025-08-01 to=2025-08-31 " +
	"day=пт time=18:00-23:00 rakeback=on|off|27.5"

// Start обрабатывает команду /start
func (h *Handlers) Start(message *tgbotapi.Message) {
	ctx, cancel := h.requestContext()
	defer cancel()

	h.ensureUser(ctx, message.From)

	text := fmt.Sprintf("Привет, %s! 👋\n\n"+
		"Отправьте HTML выгрузку истории турниров PokerCraft, и я посчитаю статистику.\n"+
		"Текущий часовой пояс выгрузки: <b>%s</b>. Изменить: /timezone Europe/Moscow\n\n"+
		"/help - список команд",
		html.EscapeString(message.From.FirstName),
		html.EscapeString(h.services.Settings.Timezone(ctx, message.From.ID)))
	h.sendMessage(message.Chat.ID, text)
}

// Help обрабатывает команду /help
func (h *Handlers) Help(message *tgbotapi.Message) {
	text := "Доступные команды:\n\n" +
		"/start - Начать работу с ботом\n" +
		"/help - Показать это сообщение\n" +
		"/stats [фильтры] - Статистика турниров\n" +
		"/history [фильтры] [sort=-prize_total] [page=2] - История турниров\n" +
		"/timezone [пояс] - Показать или изменить часовой пояс выгрузки\n" +
		"/rakeback [процент] - Показать или изменить процент рейкбека\n" +
		"/reset confirm - Удалить все загруженные турниры\n\n" +
		html.EscapeString(filterHelp) + "\n\n" +
		"Для загрузки истории просто отправьте .html файл."
	h.sendMessage(message.Chat.ID, text)
}

// Timezone показывает или меняет часовой пояс выгрузки
func (h *Handlers) Timezone(message *tgbotapi.Message) {
	ctx, cancel := h.requestContext()
	defer cancel()

	tz := strings.TrimSpace(message.CommandArguments())
	if tz == "" {
		h.sendMessage(message.Chat.ID, fmt.Sprintf("🕐 Часовой пояс: <b>%s</b>\nИспользование: /timezone Europe/Moscow",
			html.EscapeString(h.services.Settings.Timezone(ctx, message.From.ID))))
		return
	}

	if !h.ensureUser(ctx, message.From) {
		h.sendMessage(message.Chat.ID, "❌ Не удалось сохранить настройки. Попробуйте позже.")
		return
	}

	if err := h.services.Settings.SetTimezone(ctx, message.From.ID, tz); err != nil {
		if errors.Is(err, service.ErrInvalidTimezone) {
			h.sendMessage(message.Chat.ID, fmt.Sprintf("❌ Неизвестный часовой пояс %s. Пример: Europe/Moscow, Asia/Almaty, UTC",
				html.EscapeString(tz)))
			return
		}
		h.logger.Error("Failed to set timezone", zap.Int64("user_id", message.From.ID), zap.Error(err))
		h.sendMessage(message.Chat.ID, "❌ Не удалось сохранить часовой пояс.")
		return
	}

	h.sendMessage(message.Chat.ID, fmt.Sprintf("✅ Часовой пояс изменен на <b>%s</b>. Он применяется к новым загрузкам.",
		html.EscapeString(tz)))
}

// Rakeback показывает или меняет процент рейкбека
func (h *Handlers) Rakeback(message *tgbotapi.Message) {
	ctx, cancel := h.requestContext()
	defer cancel()

	raw := strings.TrimSpace(message.CommandArguments())
	if raw == "" {
		h.sendMessage(message.Chat.ID, fmt.Sprintf("💸 Рейкбек: <b>%s%%</b>\nИспользование: /rakeback 30",
			h.services.Settings.Rakeback(ctx, message.From.ID).String()))
		return
	}

	if !h.ensureUser(ctx, message.From) {
		h.sendMessage(message.Chat.ID, "❌ Не удалось сохранить настройки. Попробуйте позже.")
		return
	}

	percent, err := h.services.Settings.SetRakeback(ctx, message.From.ID, raw)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRakeback) {
			h.sendMessage(message.Chat.ID, "❌ Рейкбек должен быть числом от 0 до 100, например /rakeback 27.5")
			return
		}
		h.logger.Error("Failed to set rakeback", zap.Int64("user_id", message.From.ID), zap.Error(err))
		h.sendMessage(message.Chat.ID, "❌ Не удалось сохранить рейкбек.")
		return
	}

	h.sendMessage(message.Chat.ID, fmt.Sprintf("✅ Рейкбек изменен на <b>%s%%</b>", percent.String()))
}

// Stats обрабатывает команду /stats
func (h *Handlers) Stats(message *tgbotapi.Message) {
	h.sendStats(message.Chat.ID, message.From.ID, strings.Fields(message.CommandArguments()))
}

// sendStats считает статистику пользователя по аргументам фильтра и отправляет ее с клавиатурой
func (h *Handlers) sendStats(chatID, userID int64, args []string) {
	ctx, cancel := h.requestContext()
	defer cancel()

	query, err := service.ParseQuery(userID, args, h.userLocation(ctx, userID))
	if err != nil {
		h.sendMessage(chatID, fmt.Sprintf("❌ %s\n\n%s", html.EscapeString(err.Error()), html.EscapeString(filterHelp)))
		return
	}

	stats, err := h.services.Stats.Stats(ctx, query.Filter, query.Options)
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Int64("user_id", userID), zap.Error(err))
		h.sendMessage(chatID, "❌ Ошибка при расчете статистики.")
		return
	}

	state := keyboard.StatsState{Buyin: query.Filter.Buyin, IncludeRakeback: query.Options.IncludeRakeback}
	h.sendMessageWithMarkup(chatID, formatStats(stats, query.Filter.Buyin), h.keyboard.StatsKeyboard(state))
}

// History обрабатывает команду /history
func (h *Handlers) History(message *tgbotapi.Message) {
	ctx, cancel := h.requestContext()
	defer cancel()

	userID := message.From.ID
	loc := h.userLocation(ctx, userID)
	query, err := service.ParseQuery(userID, strings.Fields(message.CommandArguments()), loc)
	if err != nil {
		h.sendMessage(message.Chat.ID, fmt.Sprintf("❌ %s\n\n%s", html.EscapeString(err.Error()), html.EscapeString(filterHelp)))
		return
	}
	if query.Page.Limit == 0 {
		query.Page.Limit = historyPageSize
	}

	page, err := h.services.Stats.History(ctx, query.Filter, query.Page)
	if err != nil {
		h.logger.Error("Failed to get history", zap.Int64("user_id", userID), zap.Error(err))
		h.sendMessage(message.Chat.ID, "❌ Ошибка при получении истории.")
		return
	}

	markup, ok := h.keyboard.HistoryKeyboard(keyboard.HistoryState{Page: page.Page, Buyin: query.Filter.Buyin}, page.TotalPages)
	if ok {
		h.sendMessageWithMarkup(message.Chat.ID, formatHistory(page, loc), markup)
		return
	}
	h.sendMessage(message.Chat.ID, formatHistory(page, loc))
}

// Reset удаляет все турниры пользователя после подтверждения
func (h *Handlers) Reset(message *tgbotapi.Message) {
	if strings.ToLower(strings.TrimSpace(message.CommandArguments())) != "confirm" {
		h.sendMessage(message.Chat.ID, "⚠️ Будут удалены все загруженные турниры.\nДля подтверждения: /reset confirm")
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	deleted, err := h.services.Stats.Reset(ctx, message.From.ID)
	if err != nil {
		h.logger.Error("Failed to reset tournaments", zap.Int64("user_id", message.From.ID), zap.Error(err))
		h.sendMessage(message.Chat.ID, "❌ Не удалось удалить турниры.")
		return
	}

	h.sendMessage(message.Chat.ID, fmt.Sprintf("🗑 Удалено турниров: %d", deleted))
}

// Unknown обрабатывает неизвестные команды
func (h *Handlers) Unknown(message *tgbotapi.Message) {
	h.sendMessage(message.Chat.ID, "Неизвестная команда. Используйте /help для списка команд.")
}

// CallbackQuery обрабатывает нажатия кнопок статистики и истории
func (h *Handlers) CallbackQuery(query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.From == nil {
		return
	}

	var (
		text   string
		markup tgbotapi.InlineKeyboardMarkup
		ok     bool
	)

	if state, parsed := keyboard.ParseStats(query.Data); parsed {
		text, markup, ok = h.statsScreen(query.From.ID, state)
	} else if state, parsed := keyboard.ParseHistory(query.Data); parsed {
		text, markup, ok = h.historyScreen(query.From.ID, state)
	} else {
		h.logger.Warn("Unknown callback data", zap.String("data", query.Data), zap.Int64("user_id", query.From.ID))
		h.answerCallback(query.ID, "Кнопка устарела")
		return
	}

	if !ok {
		h.answerCallback(query.ID, "Ошибка, попробуйте позже")
		return
	}

	if err := h.botAPI.EditMessageWithMarkup(query.Message.Chat.ID, query.Message.MessageID, text, markup); err != nil {
		h.logger.Error("Failed to edit message", zap.Error(err), zap.String("data", query.Data))
	}
	h.answerCallback(query.ID, "")
}

func (h *Handlers) statsScreen(userID int64, state keyboard.StatsState) (string, tgbotapi.InlineKeyboardMarkup, bool) {
	ctx, cancel := h.requestContext()
	defer cancel()

	filter := model.TournamentFilter{UserID: userID, Buyin: state.Buyin}
	stats, err := h.services.Stats.Stats(ctx, filter, service.StatsOptions{IncludeRakeback: state.IncludeRakeback})
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Int64("user_id", userID), zap.Error(err))
		return "", tgbotapi.InlineKeyboardMarkup{}, false
	}
	return formatStats(stats, state.Buyin), h.keyboard.StatsKeyboard(state), true
}

func (h *Handlers) historyScreen(userID int64, state keyboard.HistoryState) (string, tgbotapi.InlineKeyboardMarkup, bool) {
	ctx, cancel := h.requestContext()
	defer cancel()

	filter := model.TournamentFilter{UserID: userID, Buyin: state.Buyin}
	req := model.PageRequest{Page: state.Page, Limit: historyPageSize, SortField: model.SortStartTime, SortDesc: true}
	page, err := h.services.Stats.History(ctx, filter, req)
	if err != nil {
		h.logger.Error("Failed to get history", zap.Int64("user_id", userID), zap.Error(err))
		return "", tgbotapi.InlineKeyboardMarkup{}, false
	}

	markup, _ := h.keyboard.HistoryKeyboard(keyboard.HistoryState{Page: page.Page, Buyin: state.Buyin}, page.TotalPages)
	return formatHistory(page, h.userLocation(ctx, userID)), markup, true
}

func (h *Handlers) answerCallback(callbackID, text string) {
	if err := h.botAPI.AnswerCallbackQuery(callbackID, text); err != nil {
		h.logger.Warn("Failed to answer callback query", zap.Error(err))
	}
}
