// Package app содержит маршрутизацию команд.
package app

import (
	"strings"

	"pokerstats/internal/config"
	"pokerstats/internal/external/telegram"
	"pokerstats/internal/handlers"
	"pokerstats/internal/keyboard"
	"pokerstats/internal/middleware"
	"pokerstats/internal/service"
	"pokerstats/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Router обрабатывает маршрутизацию команд
type Router struct {
	handlers   *handlers.Handlers
	middleware *middleware.Middleware
	logger     *zap.Logger
}

var _ telegram.RouterInterface = (*Router)(nil)

// NewRouter создает новый роутер
func NewRouter(
	services *service.Services,
	cfg *config.Config,
	botAPI telegram.BotAPI,
	fetcher handlers.DocumentFetcher,
	pool worker.PoolInterface,
	mw *middleware.Middleware,
	logger *zap.Logger,
) *Router {
	return &Router{
		handlers:   handlers.New(services, cfg, keyboard.NewManager(), botAPI, fetcher, pool, logger.Named("handlers")),
		middleware: mw,
		logger:     logger,
	}
}

// HandleUpdate обрабатывает обновление от Telegram
func (r *Router) HandleUpdate(update tgbotapi.Update) {
	r.middleware.ProcessWithMiddleware(update, func(update tgbotapi.Update) {
		if update.Message != nil {
			r.handleMessage(update.Message)
		}

		if update.CallbackQuery != nil {
			r.handlers.CallbackQuery(update.CallbackQuery)
		}
	})
}

// handleMessage обрабатывает команды и загруженные файлы
func (r *Router) handleMessage(message *tgbotapi.Message) {
	if message.Document != nil {
		r.handlers.Document(message)
		return
	}

	if !message.IsCommand() {
		return
	}

	switch strings.ToLower(message.Command()) {
	case "start":
		r.handlers.Start(message)
	case "help":
		r.handlers.Help(message)
	case "stats":
		r.handlers.Stats(message)
	case "history":
		r.handlers.History(message)
	case "timezone":
		r.handlers.Timezone(message)
	case "rakeback":
		r.handlers.Rakeback(message)
	case "reset":
		r.handlers.Reset(message)
	case "admin":
		r.handlers.Admin(message)
	case "users":
		r.handlers.Users(message)
	case "userstats":
		r.handlers.UserStats(message)
	default:
		r.handlers.Unknown(message)
	}
}

// RegisterBotCommands регистрирует команды бота
func (r *Router) RegisterBotCommands() []tgbotapi.BotCommand {
	return r.handlers.RegisterBotCommands()
}
