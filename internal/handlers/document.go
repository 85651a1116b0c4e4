package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"pokerstats/internal/service"
	"pokerstats/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Document принимает HTML выгрузку и ставит импорт в очередь пула
func (h *Handlers) Document(message *tgbotapi.Message) {
	doc := message.Document
	chatID := message.Chat.ID

	if !strings.EqualFold(filepath.Ext(doc.FileName), ".html") {
		h.sendMessageWithReply(chatID, "❌ Нужен файл с расширением .html из раздела истории турниров PokerCraft.", message.MessageID)
		return
	}
	if int64(doc.FileSize) > h.config.ImportConfig.MaxDocumentSize {
		h.sendMessageWithReply(chatID, fmt.Sprintf("❌ Файл слишком большой: максимум %d МБ.",
			h.config.ImportConfig.MaxDocumentSize>>20), message.MessageID)
		return
	}

	ctx, cancel := h.requestContext()
	registered := h.ensureUser(ctx, message.From)
	cancel()
	if !registered {
		h.sendMessageWithReply(chatID, "❌ Не удалось зарегистрировать пользователя. Попробуйте позже.", message.MessageID)
		return
	}

	userID := message.From.ID
	job := worker.Job{
		Name:   "import " + doc.FileName,
		UserID: userID,
		Run: func(ctx context.Context) error {
			return h.importDocument(ctx, chatID, message.MessageID, userID, doc)
		},
	}

	if err := h.pool.Submit(job); err != nil {
		h.logger.Warn("Failed to enqueue import", zap.Int64("user_id", userID), zap.Error(err))
		if errors.Is(err, worker.ErrQueueFull) {
			h.sendMessageWithReply(chatID, "⏳ Сейчас обрабатывается много файлов. Отправьте выгрузку через минуту.", message.MessageID)
			return
		}
		h.sendMessageWithReply(chatID, "❌ Импорт сейчас недоступен.", message.MessageID)
		return
	}

	h.sendMessageWithReply(chatID, fmt.Sprintf("🔄 Файл %s принят, обрабатываю...", html.EscapeString(doc.FileName)), message.MessageID)
}

// importDocument скачивает файл, импортирует его и отправляет итог
func (h *Handlers) importDocument(ctx context.Context, chatID int64, replyTo int, userID int64, doc *tgbotapi.Document) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.ImportConfig.Timeout)
	defer cancel()

	fileURL, err := h.botAPI.GetFileURL(doc.FileID)
	if err != nil {
		h.sendMessageWithReply(chatID, "❌ Не удалось получить файл от Telegram.", replyTo)
		return err
	}

	data, err := h.fetcher.Fetch(ctx, fileURL)
	if err != nil {
		h.sendMessageWithReply(chatID, "❌ Не удалось скачать файл. Попробуйте отправить его еще раз.", replyTo)
		return fmt.Errorf("failed to download document: %w", err)
	}

	summary, err := h.services.Import.Import(ctx, service.ImportRequest{
		UserID:   userID,
		FileName: doc.FileName,
		Document: data,
	})
	if err != nil {
		text := importErrorText(err)
		if summary != nil {
			text += "\n\n" + formatImportSummary(summary)
		}
		h.sendMessageWithReply(chatID, text, replyTo)
		if isUserError(err) {
			return nil
		}
		return err
	}

	h.sendMessageWithReply(chatID, formatImportSummary(summary), replyTo)
	return nil
}

// isUserError сообщает, что импорт отклонен из-за содержимого файла
func isUserError(err error) bool {
	return errors.Is(err, service.ErrNotHTMLFile) ||
		errors.Is(err, service.ErrDocumentTooSmall) ||
		errors.Is(err, service.ErrNotHistoryDocument) ||
		errors.Is(err, service.ErrNoTournaments)
}

func importErrorText(err error) string {
	var noTournaments *service.NoTournamentsError
	switch {
	case errors.As(err, &noTournaments):
		return formatNoTournaments(noTournaments)
	case errors.Is(err, service.ErrNotHTMLFile):
		return "❌ Нужен файл с расширением .html."
	case errors.Is(err, service.ErrDocumentTooSmall):
		return "❌ Файл пустой или слишком маленький."
	case errors.Is(err, service.ErrNotHistoryDocument):
		return "❌ В файле нет таблицы истории турниров PokerCraft."
	case errors.Is(err, context.DeadlineExceeded):
		return "❌ Импорт занял слишком много времени. Часть турниров могла сохраниться, повторная загрузка не создаст дублей."
	default:
		return "❌ Ошибка при импорте файла."
	}
}
