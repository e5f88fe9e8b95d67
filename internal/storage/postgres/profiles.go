package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/pkg/metrics"
)

type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const profileColumns = `user_id, currency, timezone, trading_capital, handle, theme`

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var p domain.Profile
	var currency string
	err := row.Scan(&p.UserID, &currency, &p.Timezone, &p.TradingCapital, &p.Handle, &p.Theme)
	p.Currency = domain.Currency(currency)
	return p, err
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("get_profile"))

	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)

	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.DatabaseQueries.WithLabelValues("get_profile", "not_found").Inc()
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("get_profile", "error").Inc()
		return domain.Profile{}, fmt.Errorf("erro ao buscar perfil: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("get_profile", "success").Inc()
	return p, nil
}

func (s *ProfileStore) UpsertProfile(ctx context.Context, p domain.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
        INSERT INTO profiles (user_id, currency, timezone, trading_capital, handle, theme)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id) DO UPDATE SET
            currency = EXCLUDED.currency,
            timezone = EXCLUDED.timezone,
            trading_capital = EXCLUDED.trading_capital,
            handle = EXCLUDED.handle,
            theme = EXCLUDED.theme,
            updated_at = now()`,
		p.UserID, string(p.Currency), p.Timezone, p.TradingCapital, p.Handle, p.Theme)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("upsert_profile", "error").Inc()
		return fmt.Errorf("erro ao salvar perfil: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("upsert_profile", "success").Inc()
	return nil
}
