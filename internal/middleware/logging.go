// Package middleware содержит middleware для логирования запросов.
package middleware

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// LoggingMiddleware логирует входящие обновления и время их обработки
func LoggingMiddleware(logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		user, chatID := sender(update)
		if user == nil {
			next(update)
			return
		}

		start := time.Now()
		requestID := fmt.Sprintf("%d-%d", update.UpdateID, start.UnixNano())
		kind := updateKind(update)

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("update", kind),
			zap.Int64("user_id", user.ID),
			zap.Int64("chat_id", chatID),
			zap.String("user", getUserIdentifier(user)),
			zap.Int("update_id", update.UpdateID),
		}
		if update.Message != nil && update.Message.Document != nil {
			fields = append(fields,
				zap.String("file_name", update.Message.Document.FileName),
				zap.Int("file_size", update.Message.Document.FileSize))
		}
		if update.CallbackQuery != nil {
			fields = append(fields, zap.String("callback_data", update.CallbackQuery.Data))
		}

		logger.Info("Processing update", fields...)

		next(update)

		logger.Info("Update processed",
			zap.String("request_id", requestID),
			zap.String("update", kind),
			zap.Duration("duration", time.Since(start)))
	}
}

// getUserIdentifier возвращает идентификатор пользователя
func getUserIdentifier(user *tgbotapi.User) string {
	if user == nil {
		return "unknown"
	}

	if user.UserName != "" {
		return "@" + user.UserName
	}

	if user.FirstName != "" {
		if user.LastName != "" {
			return user.FirstName + " " + user.LastName
		}
		return user.FirstName
	}

	return fmt.Sprintf("user_%d", user.ID)
}
