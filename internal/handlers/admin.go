// Package handlers содержит обработчики административных команд.
package handlers

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"pokerstats/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const noAdminRights = "У вас нет прав для выполнения этой команды"

// Admin обрабатывает команду /admin
func (h *Handlers) Admin(message *tgbotapi.Message) {
	ctx, cancel := h.requestContext()
	defer cancel()

	if !h.isAdmin(ctx, message.From) {
		h.sendMessage(message.Chat.ID, noAdminRights)
		return
	}

	metrics := h.pool.GetMetrics()
	text := "🔧 <b>Команды администратора:</b>\n\n" +
		"/users - Пользователи и число турниров\n" +
		"/userstats [id] [фильтры] - Статистика пользователя\n\n" +
		fmt.Sprintf("⚙️ Импорты: выполнено %d, с ошибкой %d, в очереди %d из %d",
			metrics.ProcessedJobs, metrics.FailedJobs, metrics.QueueSize, metrics.QueueCapacity)

	h.sendMessage(message.Chat.ID, text)
}

// Users показывает всех пользователей со сводкой
func (h *Handlers) Users(message *tgbotapi.Message) {
	ctx, cancel := h.requestContext()
	defer cancel()

	if !h.isAdmin(ctx, message.From) {
		h.sendMessage(message.Chat.ID, noAdminRights)
		return
	}

	users, err := h.services.Settings.Users(ctx)
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		h.sendMessage(message.Chat.ID, "❌ Ошибка при получении списка пользователей.")
		return
	}

	h.sendMessage(message.Chat.ID, formatUsers(users))
}

// UserStats показывает статистику другого пользователя
func (h *Handlers) UserStats(message *tgbotapi.Message) {
	ctx, cancel := h.requestContext()
	defer cancel()

	if !h.isAdmin(ctx, message.From) {
		h.sendMessage(message.Chat.ID, noAdminRights)
		return
	}

	args := strings.Fields(message.CommandArguments())
	if len(args) == 0 {
		h.sendMessage(message.Chat.ID, "Использование: /userstats [id] [фильтры]")
		return
	}

	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || userID <= 0 {
		h.sendMessage(message.Chat.ID, "❌ ID пользователя должен быть положительным числом")
		return
	}

	query, err := service.ParseQuery(userID, args[1:], h.userLocation(ctx, userID))
	if err != nil {
		h.sendMessage(message.Chat.ID, fmt.Sprintf("❌ %s", html.EscapeString(err.Error())))
		return
	}

	stats, err := h.services.Stats.Stats(ctx, query.Filter, query.Options)
	if err != nil {
		h.logger.Error("Failed to get user stats", zap.Int64("target_user_id", userID), zap.Error(err))
		h.sendMessage(message.Chat.ID, "❌ Ошибка при расчете статистики.")
		return
	}

	h.sendMessage(message.Chat.ID, fmt.Sprintf("👤 <code>%d</code>\n", userID)+formatStats(stats, query.Filter.Buyin))
}
