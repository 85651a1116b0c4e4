package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pokerstats/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrInvalidTimezone возвращается для неизвестного IANA пояса
	ErrInvalidTimezone = errors.New("invalid timezone")
	// ErrInvalidRakeback возвращается для процента вне диапазона 0-100
	ErrInvalidRakeback = errors.New("rakeback must be a number between 0 and 100")
)

// SettingsService управляет пользователями и их настройками
type SettingsService struct {
	users           model.UserRepository
	defaultTimezone string
	defaultRakeback decimal.Decimal
	adminUsername   string
	logger          *zap.Logger
}

// NewSettingsService создает новый сервис настроек
func NewSettingsService(users model.UserRepository, defaultTimezone string, defaultRakeback decimal.Decimal, adminUsername string, logger *zap.Logger) *SettingsService {
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &SettingsService{
		users:           users,
		defaultTimezone: defaultTimezone,
		defaultRakeback: defaultRakeback,
		adminUsername:   strings.TrimPrefix(adminUsername, "@"),
		logger:          logger,
	}
}

// Register создает пользователя при первом обращении и обновляет имя при последующих
func (s *SettingsService) Register(ctx context.Context, id int64, username, firstName string) (*model.User, error) {
	user := &model.User{
		ID:              id,
		Username:        username,
		FirstName:       firstName,
		Role:            model.RoleUser,
		RakebackPercent: s.defaultRakeback,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	stored, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if s.adminUsername != "" && strings.EqualFold(username, s.adminUsername) && !stored.IsAdmin() {
		if err := s.users.SetRole(ctx, id, model.RoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to grant admin role: %w", err)
		}
		stored.Role = model.RoleAdmin
		s.logger.Info("Granted admin role", zap.Int64("user_id", id), zap.String("username", username))
	}

	return stored, nil
}

// Get возвращает пользователя
func (s *SettingsService) Get(ctx context.Context, id int64) (*model.User, error) {
	return s.users.Get(ctx, id)
}

// Timezone возвращает пояс пользователя или пояс по умолчанию
func (s *SettingsService) Timezone(ctx context.Context, id int64) string {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			s.logger.Warn("Failed to load user timezone", zap.Int64("user_id", id), zap.Error(err))
		}
		return s.defaultTimezone
	}
	if user.Timezone == "" {
		return s.defaultTimezone
	}
	return user.Timezone
}

// Rakeback возвращает процент рейкбека пользователя или значение по умолчанию
func (s *SettingsService) Rakeback(ctx context.Context, id int64) decimal.Decimal {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			s.logger.Warn("Failed to load user rakeback", zap.Int64("user_id", id), zap.Error(err))
		}
		return s.defaultRakeback
	}
	return user.RakebackPercent
}

// SetTimezone сохраняет IANA пояс пользователя
func (s *SettingsService) SetTimezone(ctx context.Context, id int64, tz string) error {
	tz = strings.TrimSpace(tz)
	if err := model.ValidateTimezone("timezone", tz); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	if err := s.users.SetTimezone(ctx, id, tz); err != nil {
		return fmt.Errorf("failed to save timezone: %w", err)
	}
	s.logger.Info("Timezone updated", zap.Int64("user_id", id), zap.String("timezone", tz))
	return nil
}

// SetRakeback разбирает и сохраняет процент рейкбека, например "30", "27,5" или "30%"
func (s *SettingsService) SetRakeback(ctx context.Context, id int64, raw string) (decimal.Decimal, error) {
	percent, err := ParsePercent(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.users.SetRakeback(ctx, id, percent); err != nil {
		return decimal.Zero, fmt.Errorf("failed to save rakeback: %w", err)
	}
	s.logger.Info("Rakeback updated", zap.Int64("user_id", id), zap.String("percent", percent.String()))
	return percent, nil
}

// IsAdmin проверяет роль пользователя
func (s *SettingsService) IsAdmin(ctx context.Context, id int64) bool {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return false
	}
	return user.IsAdmin()
}

// Users возвращает всех пользователей со сводкой для администратора
func (s *SettingsService) Users(ctx context.Context) ([]model.UserSummary, error) {
	users, err := s.users.ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ParsePercent разбирает процент в диапазоне 0-100
func ParsePercent(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	raw = strings.ReplaceAll(raw, ",", ".")
	percent, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidRakeback, raw)
	}
	if model.ValidatePercent("rakeback", percent) != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidRakeback, percent)
	}
	return percent.Round(2), nil
}
