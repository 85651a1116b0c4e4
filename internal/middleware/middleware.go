// Package middleware содержит middleware компоненты.
package middleware

import (
	"pokerstats/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Handler обрабатывает обновление
type Handler func(update tgbotapi.Update)

// Func оборачивает обработчик
type Func func(update tgbotapi.Update, next Handler)

// Notifier отправляет пользователю служебные сообщения
type Notifier interface {
	SendMessage(chatID int64, text string) error
}

// Middleware представляет middleware компонент
type Middleware struct {
	rateLimiter RateLimiterInterface
	debouncer   DebouncerInterface
	notifier    Notifier
	logger      *zap.Logger
	config      *config.Config
	chain       []Func
}

// New создает новый middleware из настроек частоты запросов
func New(cfg *config.Config, notifier Notifier, logger *zap.Logger) *Middleware {
	m := &Middleware{
		debouncer: NewDebouncer(cfg.DebounceInterval, logger),
		notifier:  notifier,
		logger:    logger,
		config:    cfg,
	}

	m.chain = []Func{
		RecoveryMiddleware(notifier, logger),
		LoggingMiddleware(logger),
		DebounceMiddleware(m.debouncer, logger),
		DebounceCallbackMiddleware(m.debouncer, logger),
	}

	if cfg.RateLimitConfig.Enabled {
		m.rateLimiter = NewRateLimiter(cfg.RateLimitConfig.Requests, cfg.RateLimitConfig.Window, logger)
		m.chain = append(m.chain, RateLimitMiddleware(m.rateLimiter, notifier, logger))
	}

	return m
}

// ProcessWithMiddleware применяет все middleware к обновлению
func (m *Middleware) ProcessWithMiddleware(update tgbotapi.Update, handler Handler) {
	next := handler
	for i := len(m.chain) - 1; i >= 0; i-- {
		mw, inner := m.chain[i], next
		next = func(update tgbotapi.Update) { mw(update, inner) }
	}
	next(update)
}

// Cleanup очищает устаревшие записи в middleware
func (m *Middleware) Cleanup() {
	if m.rateLimiter != nil {
		m.rateLimiter.Cleanup()
	}
	m.debouncer.Cleanup()
}

// sender возвращает отправителя и чат обновления
func sender(update tgbotapi.Update) (*tgbotapi.User, int64) {
	switch {
	case update.Message != nil:
		return update.Message.From, update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.From, update.CallbackQuery.Message.Chat.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From, 0
	default:
		return nil, 0
	}
}

// updateKind возвращает короткое имя обновления для логов и ключей
func updateKind(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message != nil && update.Message.Document != nil:
		return "document"
	case update.Message != nil && update.Message.IsCommand():
		return "/" + update.Message.Command()
	default:
		return "message"
	}
}
