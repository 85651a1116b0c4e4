// Package model содержит модели данных.
//
// Группа: ENTITIES - Основные сущности
// Содержит: User, UserSummary, UserRepository
package model

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ErrUserNotFound возвращается, если пользователь не зарегистрирован
var ErrUserNotFound = errors.New("user not found")

// DefaultRakebackPercent процент рейкбека по умолчанию
var DefaultRakebackPercent = decimal.NewFromInt(30)

// User представляет пользователя бота
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID              int64           `bun:"id,pk" json:"id"` // Telegram user ID
	Username        string          `bun:"username" json:"username"`
	FirstName       string          `bun:"first_name" json:"first_name"`
	Role            Role            `bun:"role,notnull,default:'user'" json:"role"`
	Timezone        string          `bun:"timezone" json:"timezone"`
	RakebackPercent decimal.Decimal `bun:"rakeback_percent,type:numeric(5,2),notnull,default:30" json:"rakeback_percent"`
	TimestampedModel
}

// Validate проверяет валидность пользователя
func (u *User) Validate() error {
	var errors ValidationErrors

	errors.add(ValidatePositiveInt("id", u.ID))
	if u.Role != "" && !u.Role.IsValid() {
		errors = append(errors, ValidationError{Field: "role", Message: "must be user or admin"})
	}
	if u.Timezone != "" {
		errors.add(ValidateTimezone("timezone", u.Timezone))
	}
	errors.add(ValidatePercent("rakeback_percent", u.RakebackPercent))

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// IsAdmin проверяет, является ли пользователь администратором
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName возвращает имя для сообщений
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "id" + strconv.FormatInt(u.ID, 10)
}

// UserSummary представляет пользователя со сводкой по турнирам
type UserSummary struct {
	User             `bun:",extend"`
	TournamentsCount int             `bun:"tournaments_count" json:"tournamentsCount"`
	TotalNetProfit   decimal.Decimal `bun:"total_net_profit" json:"totalNetProfit"`
}

// UserRepository определяет интерфейс для работы с пользователями
type UserRepository interface {
	// Upsert создает пользователя или обновляет имя, не трогая настройки
	Upsert(ctx context.Context, u *User) error
	Get(ctx context.Context, id int64) (*User, error)
	SetTimezone(ctx context.Context, id int64, tz string) error
	SetRakeback(ctx context.Context, id int64, percent decimal.Decimal) error
	SetRole(ctx context.Context, id int64, role Role) error
	ListWithCounts(ctx context.Context) ([]UserSummary, error)
}
