// Package middleware содержит middleware для rate limiting.
package middleware

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const rateLimitMessage = "⏳ Слишком много запросов. Подождите немного и попробуйте снова."

// RateLimiterInterface определяет интерфейс для ограничителя запросов
type RateLimiterInterface interface {
	// Allow проверяет, разрешен ли запрос пользователя
	Allow(userID int64) bool
	// Cleanup очищает устаревшие записи
	Cleanup()
}

// RateLimiter ограничивает количество запросов пользователя в скользящем окне
type RateLimiter struct {
	requests map[int64][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

var _ RateLimiterInterface = (*RateLimiter)(nil)

// NewRateLimiter создает новый rate limiter
func NewRateLimiter(limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		logger:   logger,
	}
}

// Allow проверяет, разрешен ли запрос
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	validRequests := rl.recent(rl.requests[userID], now)

	if len(validRequests) >= rl.limit {
		rl.requests[userID] = validRequests
		rl.logger.Warn("Rate limit exceeded",
			zap.Int64("user_id", userID),
			zap.Int("requests", len(validRequests)),
			zap.Int("limit", rl.limit))
		return false
	}

	rl.requests[userID] = append(validRequests, now)
	return true
}

// Cleanup очищает старые записи
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for userID, requests := range rl.requests {
		validRequests := rl.recent(requests, now)
		if len(validRequests) == 0 {
			delete(rl.requests, userID)
		} else {
			rl.requests[userID] = validRequests
		}
	}
}

// recent оставляет запросы, попавшие в окно
func (rl *RateLimiter) recent(requests []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-rl.window)
	var valid []time.Time
	for _, reqTime := range requests {
		if reqTime.After(windowStart) {
			valid = append(valid, reqTime)
		}
	}
	return valid
}

// RateLimitMiddleware пропускает не больше limit обновлений пользователя за окно
func RateLimitMiddleware(limiter RateLimiterInterface, notifier Notifier, logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		user, chatID := sender(update)
		if user == nil {
			next(update)
			return
		}

		if !limiter.Allow(user.ID) {
			if update.Message != nil && notifier != nil {
				if err := notifier.SendMessage(chatID, rateLimitMessage); err != nil {
					logger.Error("Failed to send rate limit message", zap.Int64("chat_id", chatID), zap.Error(err))
				}
			}
			return
		}

		next(update)
	}
}
