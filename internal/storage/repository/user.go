package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pokerstats/internal/model"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// UserRepository реализует интерфейс для работы с пользователями
type UserRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUserRepository создает новый репозиторий пользователей
func NewUserRepository(db *bun.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert создает пользователя или обновляет его имя. Настройки существующего
// пользователя не меняются.
func (r *UserRepository) Upsert(ctx context.Context, u *model.User) error {
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.RakebackPercent.IsZero() {
		u.RakebackPercent = model.DefaultRakebackPercent
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	_, err := r.db.NewInsert().
		Model(u).
		On("CONFLICT (id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("first_name = EXCLUDED.first_name").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// Get возвращает пользователя по ID
func (r *UserRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	user := new(model.User)

	err := r.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user by ID: %w", err)
	}

	return user, nil
}

// SetTimezone сохраняет часовой пояс пользователя
func (r *UserRepository) SetTimezone(ctx context.Context, id int64, tz string) error {
	if err := model.ValidateTimezone("timezone", tz); err != nil {
		return err
	}
	return r.update(ctx, id, "timezone", tz)
}

// SetRakeback сохраняет процент рейкбека пользователя
func (r *UserRepository) SetRakeback(ctx context.Context, id int64, percent decimal.Decimal) error {
	if err := model.ValidatePercent("rakeback_percent", percent); err != nil {
		return err
	}
	return r.update(ctx, id, "rakeback_percent", percent)
}

// SetRole меняет роль пользователя
func (r *UserRepository) SetRole(ctx context.Context, id int64, role model.Role) error {
	if !role.IsValid() {
		return model.ValidationError{Field: "role", Message: "must be user or admin"}
	}
	return r.update(ctx, id, "role", role)
}

func (r *UserRepository) update(ctx context.Context, id int64, column string, value interface{}) error {
	res, err := r.db.NewUpdate().
		Model((*model.User)(nil)).
		Set("? = ?", bun.Ident(column), value).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", column, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return model.ErrUserNotFound
	}

	r.logger.Debug("Updated user setting", zap.Int64("user_id", id), zap.String("column", column))
	return nil
}

// ListWithCounts возвращает пользователей с числом турниров и итоговым результатом
func (r *UserRepository) ListWithCounts(ctx context.Context) ([]model.UserSummary, error) {
	var summaries []model.UserSummary

	err := r.db.NewSelect().
		Model(&summaries).
		ColumnExpr("u.*").
		ColumnExpr("COUNT(t.id) AS tournaments_count").
		ColumnExpr("COALESCE(SUM(t.net_profit), 0) AS total_net_profit").
		Join("LEFT JOIN tournaments AS t ON t.user_id = u.id").
		Group("u.id").
		Order("u.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	for i := range summaries {
		summaries[i].TotalNetProfit = summaries[i].TotalNetProfit.Round(2)
	}

	return summaries, nil
}
