// Package model содержит модели данных и интерфейсы репозиториев.
//
// Группа: BASE - Базовые компоненты
// Содержит: TimestampedModel, PageRequest, Page
package model

import (
	"time"
)

// TimestampedModel представляет модель с временными метками
type TimestampedModel struct {
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Значения пагинации по умолчанию
const (
	DefaultPageLimit = 25
	MaxPageLimit     = 500
)

// PageRequest описывает страницу и сортировку списка
type PageRequest struct {
	Page      int
	Limit     int
	SortField SortField
	SortDesc  bool
}

// Normalize подставляет значения по умолчанию и отбрасывает неизвестную сортировку
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if !p.SortField.IsValid() {
		p.SortField = SortStartTime
		p.SortDesc = true
	}
	return p
}

// Offset возвращает смещение первой записи страницы
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page представляет одну страницу результата
type Page[T any] struct {
	Items      []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"currentPage"`
	TotalPages int `json:"totalPages"`
}

// NewPage собирает страницу и считает число страниц
func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	pages := 0
	if req.Limit > 0 {
		pages = (total + req.Limit - 1) / req.Limit
	}
	return Page[T]{Items: items, Total: total, Page: req.Page, TotalPages: pages}
}
