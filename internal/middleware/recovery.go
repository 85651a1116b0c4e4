// Package middleware содержит middleware для recovery.
package middleware

import (
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const panicMessage = "❌ Произошла ошибка. Попробуйте позже."

// RecoveryMiddleware перехватывает панику обработчика и сообщает пользователю об ошибке
func RecoveryMiddleware(notifier Notifier, logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		defer func() {
			panicErr := recover()
			if panicErr == nil {
				return
			}

			user, chatID := sender(update)
			logger.Error("Panic recovered in recovery middleware",
				zap.String("update", updateKind(update)),
				zap.Int64("chat_id", chatID),
				zap.String("user", getUserIdentifier(user)),
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", panicErr),
				zap.String("stack", string(debug.Stack())))

			if chatID != 0 && notifier != nil {
				if err := notifier.SendMessage(chatID, panicMessage); err != nil {
					logger.Error("Failed to send panic message", zap.Error(err))
				}
			}
		}()
		next(update)
	}
}
