package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"github.com/jeovahfialho/pnl-recap/pkg/metrics"
	"github.com/jeovahfialho/pnl-recap/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const entryColumns = `
            id::text,
            user_id,
            trade_date,
            gross_pnl,
            charges,
            num_trades,
            capital_deployed,
            created_at`

type EntryStore struct {
	pool *pgxpool.Pool
}

func NewEntryStore(pool *pgxpool.Pool) *EntryStore {
	return &EntryStore{pool: pool}
}

func scanEntry(row pgx.Row) (domain.TradeEntry, error) {
	var e domain.TradeEntry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Date,
		&e.GrossPnl,
		&e.Charges,
		&e.NumTrades,
		&e.CapitalDeployed,
		&e.CreatedAt,
	)
	return e, err
}

// ListEntries returns every entry logged by the user, oldest first.
func (s *EntryStore) ListEntries(ctx context.Context, userID string) ([]domain.TradeEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "postgres.ListEntries", attribute.String("user_id", userID))
	defer span.End()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("list_entries"))

	query := `SELECT` + entryColumns + `
        FROM trade_entries
        WHERE user_id = $1
        ORDER BY trade_date ASC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("list_entries", "error").Inc()
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("erro ao buscar lançamentos: %w", err)
	}
	defer rows.Close()

	var entries []domain.TradeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear lançamento: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar resultados: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("list_entries", "success").Inc()
	logger.Debug("lançamentos recuperados",
		zap.String("user_id", userID),
		zap.Int("records", len(entries)))

	return entries, nil
}

// ListActiveUsers returns every user with at least one entry, whether or
// not a profile was saved.
func (s *EntryStore) ListActiveUsers(ctx context.Context) ([]string, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("list_active_users"))

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM trade_entries ORDER BY user_id`)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("list_active_users", "error").Inc()
		return nil, fmt.Errorf("erro ao listar usuários: %w", err)
	}

	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("list_active_users", "error").Inc()
		return nil, fmt.Errorf("erro ao escanear usuários: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("list_active_users", "success").Inc()
	return users, nil
}

// GetEntry returns the entry logged on date, or domain.ErrEntryNotFound.
func (s *EntryStore) GetEntry(ctx context.Context, userID string, date time.Time) (domain.TradeEntry, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("get_entry"))

	query := `SELECT` + entryColumns + `
        FROM trade_entries
        WHERE user_id = $1 AND trade_date = $2`

	e, err := scanEntry(s.pool.QueryRow(ctx, query, userID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.DatabaseQueries.WithLabelValues("get_entry", "not_found").Inc()
		return domain.TradeEntry{}, domain.ErrEntryNotFound
	}
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("get_entry", "error").Inc()
		return domain.TradeEntry{}, fmt.Errorf("erro ao buscar lançamento: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("get_entry", "success").Inc()
	return e, nil
}

func (s *EntryStore) DeleteEntry(ctx context.Context, userID string, date time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM trade_entries WHERE user_id = $1 AND trade_date = $2`,
		userID, date)
	if err != nil {
		return fmt.Errorf("erro ao remover lançamento: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}
