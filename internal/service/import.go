// Package service содержит бизнес-логику приложения.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"pokerstats/internal/model"
	"pokerstats/internal/parser"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ограничения превью в ответе пользователю
const (
	DiagnosticsPreviewLimit   = 5
	ImportErrorsPreviewLimit  = 5
	NoTournamentsPreviewLimit = 10

	// minDocumentSize документ короче этого точно не содержит таблицу
	minDocumentSize = 100
)

var (
	// ErrNotHTMLFile возвращается для файлов без расширения .html
	ErrNotHTMLFile = errors.New("file must have .html extension")
	// ErrDocumentTooSmall возвращается для пустых и слишком маленьких файлов
	ErrDocumentTooSmall = errors.New("document is empty or too small")
	// ErrNotHistoryDocument возвращается, если в документе нет таблицы истории PokerCraft
	ErrNotHistoryDocument = errors.New("document does not contain a PokerCraft tournament history table")
	// ErrNoTournaments возвращается, если не удалось разобрать ни одного турнира
	ErrNoTournaments = errors.New("no tournaments found in document")
)

// historyMarkers обязательные фрагменты разметки выгрузки
var historyMarkers = [][]byte{[]byte("<table"), []byte("cdk-table"), []byte("cdk-row")}

// ImportRequest представляет запрос на импорт выгрузки
type ImportRequest struct {
	UserID   int64
	FileName string
	Document []byte
	// Timezone пояс пользователя; если пуст, берется из настроек
	Timezone string
}

// ImportError описывает турнир, который не удалось сохранить
type ImportError struct {
	Hash      string    `json:"hash"`
	StartTime time.Time `json:"date"`
	Reason    string    `json:"error"`
}

// ImportSummary представляет итог импорта
type ImportSummary struct {
	BatchID         string              `json:"batchId"`
	FileName        string              `json:"fileName"`
	FileSize        int                 `json:"fileSize"`
	Timezone        string              `json:"timezone"`
	Parse           parser.RowStats     `json:"parsing"`
	DiagnosticCount int                 `json:"errorCount"`
	Total           int                 `json:"total"`
	Imported        int                 `json:"imported"`
	Duplicates      int                 `json:"skipped"`
	Failed          int                 `json:"errors"`
	Percentage      int                 `json:"percentage"`
	Diagnostics     []parser.Diagnostic `json:"parsingErrors"`
	ImportErrors    []ImportError       `json:"importErrors"`
}

// NoTournamentsError возвращается вместе с диагностикой, если импортировать нечего
type NoTournamentsError struct {
	Stats       parser.RowStats
	Diagnostics []parser.Diagnostic
}

func (e *NoTournamentsError) Error() string {
	return fmt.Sprintf("%s: %d rows, %d skipped", ErrNoTournaments, e.Stats.Total, e.Stats.Skipped)
}

func (e *NoTournamentsError) Unwrap() error {
	return ErrNoTournaments
}

// ImportService импортирует выгрузки истории турниров
type ImportService struct {
	parser      *parser.Parser
	tournaments model.TournamentRepository
	settings    *SettingsService
	logger      *zap.Logger
}

// NewImportService создает новый сервис импорта
func NewImportService(p *parser.Parser, tournaments model.TournamentRepository, settings *SettingsService, logger *zap.Logger) *ImportService {
	return &ImportService{
		parser:      p,
		tournaments: tournaments,
		settings:    settings,
		logger:      logger,
	}
}

// CheckDocument проверяет имя и содержимое файла до разбора
func CheckDocument(fileName string, document []byte) error {
	if !strings.EqualFold(filepath.Ext(fileName), ".html") {
		return ErrNotHTMLFile
	}
	if len(bytes.TrimSpace(document)) < minDocumentSize {
		return ErrDocumentTooSmall
	}
	for _, marker := range historyMarkers {
		if !bytes.Contains(document, marker) {
			return ErrNotHistoryDocument
		}
	}
	return nil
}

// Import разбирает выгрузку и сохраняет новые турниры пользователя.
// При отмене контекста возвращает сводку по уже обработанным записям вместе с ошибкой.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*ImportSummary, error) {
	if err := CheckDocument(req.FileName, req.Document); err != nil {
		s.logger.Warn("Rejected document",
			zap.Int64("user_id", req.UserID),
			zap.String("file", req.FileName),
			zap.Int("size", len(req.Document)),
			zap.Error(err))
		return nil, err
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = s.settings.Timezone(ctx, req.UserID)
	}

	result, err := s.parser.ParseReader(bytes.NewReader(req.Document), timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	if result.IsEmpty() {
		s.logger.Warn("No tournaments parsed",
			zap.Int64("user_id", req.UserID),
			zap.Int("total_rows", result.Stats.Total),
			zap.Int("diagnostics", len(result.Diagnostics)))
		return nil, &NoTournamentsError{
			Stats:       result.Stats,
			Diagnostics: result.Preview(NoTournamentsPreviewLimit),
		}
	}

	summary := &ImportSummary{
		BatchID:         uuid.NewString(),
		FileName:        req.FileName,
		FileSize:        len(req.Document),
		Timezone:        timezone,
		Parse:           result.Stats,
		DiagnosticCount: len(result.Diagnostics),
		Total:           len(result.Records),
		Diagnostics:     result.Preview(DiagnosticsPreviewLimit),
		ImportErrors:    []ImportError{},
	}

	for _, rec := range result.Records {
		if err := ctx.Err(); err != nil {
			done := summary.Imported + summary.Duplicates + summary.Failed
			summary.Percentage = percentage(summary.Imported, done)
			s.logger.Warn("Import interrupted",
				zap.String("batch_id", summary.BatchID),
				zap.Int64("user_id", req.UserID),
				zap.Int("processed", done),
				zap.Int("imported", summary.Imported),
				zap.Error(err))
			return summary, fmt.Errorf("import interrupted after %d records: %w", done, err)
		}

		switch outcome, reason := s.store(ctx, req.UserID, summary.BatchID, rec); outcome {
		case model.OutcomeInserted:
			summary.Imported++
		case model.OutcomeDuplicate:
			summary.Duplicates++
		default:
			summary.Failed++
			if len(summary.ImportErrors) < ImportErrorsPreviewLimit {
				summary.ImportErrors = append(summary.ImportErrors, ImportError{
					Hash:      rec.TournamentHash,
					StartTime: rec.StartTime,
					Reason:    reason,
				})
			}
		}
	}

	summary.Percentage = percentage(summary.Imported, summary.Imported+summary.Duplicates+summary.Failed)

	s.logger.Info("Import finished",
		zap.String("batch_id", summary.BatchID),
		zap.Int64("user_id", req.UserID),
		zap.String("file", req.FileName),
		zap.Int("total", summary.Total),
		zap.Int("imported", summary.Imported),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// store сохраняет одну запись и возвращает ее исход
func (s *ImportService) store(ctx context.Context, userID int64, batch string, rec parser.Record) (model.ImportOutcome, string) {
	inserted, err := s.tournaments.InsertIfAbsent(ctx, model.NewTournament(userID, batch, rec))
	if err != nil {
		s.logger.Error("Failed to save tournament",
			zap.Int64("user_id", userID),
			zap.String("hash", rec.TournamentHash),
			zap.Error(err))
		return model.OutcomeFailed, err.Error()
	}
	if !inserted {
		return model.OutcomeDuplicate, ""
	}
	return model.OutcomeInserted, ""
}

// percentage возвращает округленную долю part от total в процентах
func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
