// Package handlers содержит обработчики команд.
package handlers

import (
	"context"
	"time"

	"pokerstats/internal/config"
	"pokerstats/internal/external/telegram"
	"pokerstats/internal/keyboard"
	"pokerstats/internal/service"
	"pokerstats/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// requestTimeout ограничивает обращения к базе из обработчиков команд
const requestTimeout = 10 * time.Second

// DocumentFetcher скачивает файл по ссылке
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Handlers содержит все обработчики команд
type Handlers struct {
	services *service.Services
	config   *config.Config
	keyboard *keyboard.Manager
	botAPI   telegram.BotAPI
	fetcher  DocumentFetcher
	pool     worker.PoolInterface
	logger   *zap.Logger
}

// New создает новый экземпляр обработчиков
func New(
	services *service.Services,
	cfg *config.Config,
	keyboard *keyboard.Manager,
	botAPI telegram.BotAPI,
	fetcher DocumentFetcher,
	pool worker.PoolInterface,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		services: services,
		config:   cfg,
		keyboard: keyboard,
		botAPI:   botAPI,
		fetcher:  fetcher,
		pool:     pool,
		logger:   logger,
	}
}

// RegisterBotCommands возвращает меню команд бота
func (h *Handlers) RegisterBotCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "Начать работу с ботом"},
		{Command: "help", Description: "Показать справку"},
		{Command: "stats", Description: "Статистика турниров"},
		{Command: "history", Description: "История турниров"},
		{Command: "timezone", Description: "Часовой пояс выгрузки"},
		{Command: "rakeback", Description: "Процент рейкбека"},
		{Command: "reset", Description: "Удалить все турниры"},
	}
}

// requestContext возвращает контекст с таймаутом для обработчика команды
func (h *Handlers) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// ensureUser регистрирует отправителя, чтобы его настройки и турниры были привязаны к записи
func (h *Handlers) ensureUser(ctx context.Context, user *tgbotapi.User) bool {
	if user == nil {
		return false
	}
	if _, err := h.services.Settings.Register(ctx, user.ID, user.UserName, user.FirstName); err != nil {
		h.logger.Error("Failed to register user", zap.Int64("user_id", user.ID), zap.Error(err))
		return false
	}
	return true
}

// isAdmin проверяет, является ли пользователь администратором
func (h *Handlers) isAdmin(ctx context.Context, user *tgbotapi.User) bool {
	if user == nil {
		return false
	}
	return h.services.Settings.IsAdmin(ctx, user.ID)
}

// userLocation возвращает пояс пользователя для трактовки дат в фильтрах
func (h *Handlers) userLocation(ctx context.Context, userID int64) *time.Location {
	tz := h.services.Settings.Timezone(ctx, userID)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		h.logger.Warn("Stored timezone is invalid, using UTC", zap.Int64("user_id", userID), zap.String("timezone", tz))
		return time.UTC
	}
	return loc
}

// sendMessage отправляет сообщение
func (h *Handlers) sendMessage(chatID int64, text string) {
	if err := h.botAPI.SendMessage(chatID, text); err != nil {
		h.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendMessageWithMarkup отправляет сообщение с клавиатурой
func (h *Handlers) sendMessageWithMarkup(chatID int64, text string, markup any) {
	if err := h.botAPI.SendMessageWithMarkup(chatID, text, markup); err != nil {
		h.logger.Error("Failed to send message with markup", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendMessageWithReply отправляет ответ на сообщение
func (h *Handlers) sendMessageWithReply(chatID int64, text string, replyTo int) {
	if err := h.botAPI.SendMessageWithReply(chatID, text, replyTo); err != nil {
		h.logger.Error("Failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
