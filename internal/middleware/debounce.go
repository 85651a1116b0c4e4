// Package middleware содержит middleware для debounce.
package middleware

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Команды с особыми таймаутами дебаунса
var commandDebounceTimeouts = map[string]time.Duration{
	"reset": 5 * time.Second,
}

// DebouncerInterface определяет интерфейс для debouncer
type DebouncerInterface interface {
	// CanProcessRequest проверяет, можно ли обработать запрос
	CanProcessRequest(key string) bool
	// CanProcessRequestWithTimeout проверяет, можно ли обработать запрос с кастомным таймаутом
	CanProcessRequestWithTimeout(key string, timeout time.Duration) bool
	// Cleanup очищает устаревшие записи
	Cleanup()
}

// Debouncer отбрасывает повторы одного запроса внутри интервала
type Debouncer struct {
	requests map[string]time.Time
	mu       sync.Mutex
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

var _ DebouncerInterface = (*Debouncer)(nil)

// NewDebouncer создает новый debouncer
func NewDebouncer(timeout time.Duration, logger *zap.Logger) *Debouncer {
	return &Debouncer{
		requests: make(map[string]time.Time),
		timeout:  timeout,
		now:      time.Now,
		logger:   logger,
	}
}

// CanProcessRequest проверяет, можно ли обработать запрос
func (d *Debouncer) CanProcessRequest(key string) bool {
	return d.CanProcessRequestWithTimeout(key, d.timeout)
}

// CanProcessRequestWithTimeout проверяет, можно ли обработать запрос с кастомным таймаутом
func (d *Debouncer) CanProcessRequestWithTimeout(key string, timeout time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	lastRequest, exists := d.requests[key]

	if !exists || now.Sub(lastRequest) > timeout {
		d.requests[key] = now
		return true
	}

	return false
}

// Cleanup очищает устаревшие записи
func (d *Debouncer) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	maxTimeout := d.timeout
	for _, timeout := range commandDebounceTimeouts {
		if timeout > maxTimeout {
			maxTimeout = timeout
		}
	}

	now := d.now()
	for key, lastRequest := range d.requests {
		if now.Sub(lastRequest) > maxTimeout {
			delete(d.requests, key)
		}
	}
}

// DebounceMiddleware отбрасывает повторные команды в одном чате.
// Документы не дебаунсятся: несколько выгрузок подряд это нормальный сценарий.
func DebounceMiddleware(debouncer DebouncerInterface, logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		if update.Message == nil || !update.Message.IsCommand() {
			next(update)
			return
		}

		command := update.Message.Command()
		key := fmt.Sprintf("%d:%s", update.Message.Chat.ID, command)

		var canProcess bool
		timeout, hasCustomTimeout := commandDebounceTimeouts[command]
		if hasCustomTimeout {
			canProcess = debouncer.CanProcessRequestWithTimeout(key, timeout)
		} else {
			canProcess = debouncer.CanProcessRequest(key)
		}

		if !canProcess {
			logger.Info("Command debounced",
				zap.String("command", command),
				zap.Int64("chat_id", update.Message.Chat.ID),
				zap.String("user", getUserIdentifier(update.Message.From)),
				zap.Int("update_id", update.UpdateID))
			return
		}

		next(update)
	}
}

// DebounceCallbackMiddleware отбрасывает двойные нажатия одной кнопки
func DebounceCallbackMiddleware(debouncer DebouncerInterface, logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		query := update.CallbackQuery
		if query == nil || query.Message == nil {
			next(update)
			return
		}

		key := fmt.Sprintf("%d:%d:%s", query.Message.Chat.ID, query.Message.MessageID, query.Data)
		if !debouncer.CanProcessRequest(key) {
			logger.Info("Callback debounced",
				zap.String("callback_data", query.Data),
				zap.Int64("chat_id", query.Message.Chat.ID),
				zap.String("user", getUserIdentifier(query.From)),
				zap.Int("update_id", update.UpdateID))
			return
		}

		next(update)
	}
}
