package storage

import (
	"context"
	"fmt"

	"pokerstats/internal/model"

	"go.uber.org/zap"
)

// InitSchema создает таблицы и индексы, если их еще нет
func (p *Postgres) InitSchema(ctx context.Context) error {
	models := []interface{}{
		(*model.User)(nil),
		(*model.Tournament)(nil),
	}

	for _, m := range models {
		if _, err := p.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", m, err)
		}
	}

	indexes := []struct {
		name    string
		columns []string
		unique  bool
	}{
		{name: "tournaments_user_hash_uidx", columns: []string{"user_id", "tournament_hash"}, unique: true},
		{name: "tournaments_user_start_idx", columns: []string{"user_id", "start_time"}},
	}

	for _, idx := range indexes {
		q := p.db.NewCreateIndex().
			Model((*model.Tournament)(nil)).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	p.logger.Info("Database schema is ready", zap.Int("tables", len(models)), zap.Int("indexes", len(indexes)))
	return nil
}
