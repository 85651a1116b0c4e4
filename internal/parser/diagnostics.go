// Package parser разбирает HTML-выгрузку истории турниров PokerCraft.
package parser

import (
	"errors"
	"fmt"
)

// ErrTimezoneRequired возвращается, если часовой пояс не передан
var ErrTimezoneRequired = errors.New("timezone is required")

// Kind представляет тип диагностического сообщения
type Kind string

const (
	KindInvalidStructure      Kind = "INVALID_STRUCTURE"
	KindInvalidDateFormat     Kind = "INVALID_DATE_FORMAT"
	KindUnknownMonth          Kind = "UNKNOWN_MONTH"
	KindInvalidDate           Kind = "INVALID_DATE"
	KindPossibleInvalidBuyin  Kind = "POSSIBLE_INVALID_BUYIN"
	KindPlaceNotFound         Kind = "PLACE_NOT_FOUND"
	KindUnusualDurationFormat Kind = "UNUSUAL_DURATION_FORMAT"
	KindParsingError          Kind = "PARSING_ERROR"
)

// String возвращает строковое представление типа
func (k Kind) String() string {
	return string(k)
}

// IsValid проверяет, что тип входит в известный набор
func (k Kind) IsValid() bool {
	switch k {
	case KindInvalidStructure, KindInvalidDateFormat, KindUnknownMonth, KindInvalidDate,
		KindPossibleInvalidBuyin, KindPlaceNotFound, KindUnusualDurationFormat, KindParsingError:
		return true
	default:
		return false
	}
}

// IsFatal сообщает, пропускается ли строка с такой диагностикой
func (k Kind) IsFatal() bool {
	switch k {
	case KindPossibleInvalidBuyin, KindPlaceNotFound, KindUnusualDurationFormat:
		return false
	default:
		return true
	}
}

// Diagnostic описывает проблему, найденную в строке таблицы
type Diagnostic struct {
	RowIndex int    `json:"row"`
	Kind     Kind   `json:"type"`
	Message  string `json:"message"`
	Detail   string `json:"details"`
}

// String форматирует диагностику для логов и ответов пользователю
func (d Diagnostic) String() string {
	return fmt.Sprintf("row %d: %s: %s", d.RowIndex, d.Kind, d.Message)
}

// RowStats содержит счетчики обработанных строк
type RowStats struct {
	Total   int `json:"totalRows"`
	Parsed  int `json:"parsedRows"`
	Skipped int `json:"skippedRows"`
}

// Result представляет итог разбора одного документа
type Result struct {
	Records     []Record     `json:"tournaments"`
	Stats       RowStats     `json:"stats"`
	Diagnostics []Diagnostic `json:"errors"`
}

// IsEmpty сообщает, что в документе не найдено ни одного турнира
func (r *Result) IsEmpty() bool {
	return len(r.Records) == 0
}

// Preview возвращает не более limit первых диагностик
func (r *Result) Preview(limit int) []Diagnostic {
	if limit <= 0 || len(r.Diagnostics) <= limit {
		return r.Diagnostics
	}
	return r.Diagnostics[:limit]
}

// rowError прерывает обработку строки с диагностикой
type rowError struct {
	diag Diagnostic
}

func (e *rowError) Error() string {
	return e.diag.String()
}

// newRowError создает ошибку строки
func newRowError(row int, kind Kind, message, detail string) *rowError {
	return &rowError{diag: Diagnostic{RowIndex: row, Kind: kind, Message: message, Detail: detail}}
}
