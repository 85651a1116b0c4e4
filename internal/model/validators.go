// Package model содержит валидаторы для моделей.
//
// Группа: BASE - Базовые компоненты
// Содержит: Validator, ValidationError, ValidationErrors, валидаторы
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validator представляет интерфейс валидатора
type Validator interface {
	Validate() error
}

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string
	Message string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors представляет множество ошибок валидации
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// HasErrors проверяет, есть ли ошибки валидации
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// add добавляет ошибку, если она есть
func (ve *ValidationErrors) add(err error) {
	if err == nil {
		return
	}
	if v, ok := err.(ValidationError); ok {
		*ve = append(*ve, v)
		return
	}
	*ve = append(*ve, ValidationError{Message: err.Error()})
}

// clockRegex время суток "HH:MM"
var clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateRequired проверяет, что поле не пустое
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidateLength проверяет длину строки
func ValidateLength(field, value string, min, max int) error {
	length := len(strings.TrimSpace(value))
	if length < min {
		return ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters", min)}
	}
	if length > max {
		return ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}

// ValidatePositiveInt проверяет, что число положительное
func ValidatePositiveInt(field string, value int64) error {
	if value <= 0 {
		return ValidationError{Field: field, Message: "must be positive"}
	}
	return nil
}

// ValidateNonNegativeInt проверяет, что число неотрицательное
func ValidateNonNegativeInt(field string, value int) error {
	if value < 0 {
		return ValidationError{Field: field, Message: "must be non-negative"}
	}
	return nil
}

// ValidateNonNegativeDecimal проверяет, что сумма неотрицательная
func ValidateNonNegativeDecimal(field string, value decimal.Decimal) error {
	if value.IsNegative() {
		return ValidationError{Field: field, Message: "must be non-negative"}
	}
	return nil
}

// ValidatePercent проверяет, что процент лежит в диапазоне 0..100
func ValidatePercent(field string, value decimal.Decimal) error {
	if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
		return ValidationError{Field: field, Message: "must be between 0 and 100"}
	}
	return nil
}

// ValidateTimezone проверяет, что пояс известен базе tzdata
func ValidateTimezone(field, tz string) error {
	if strings.TrimSpace(tz) == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return ValidationError{Field: field, Message: fmt.Sprintf("unknown timezone %q", tz)}
	}
	return nil
}

// ValidateClock проверяет формат времени суток "HH:MM"
func ValidateClock(field, value string) error {
	if value == "" {
		return nil
	}
	if !clockRegex.MatchString(value) {
		return ValidationError{Field: field, Message: "must be in HH:MM format"}
	}
	return nil
}

// ValidateEnum проверяет, что значение входит в список допустимых
func ValidateEnum(field, value string, allowedValues []string) error {
	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}
	return ValidationError{Field: field, Message: fmt.Sprintf("must be one of: %s", strings.Join(allowedValues, ", "))}
}
