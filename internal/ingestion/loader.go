package ingestion

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"github.com/jeovahfialho/pnl-recap/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const stagingTable = "trade_entries_staging"

var entryColumns = []string{
	"user_id",
	"trade_date",
	"gross_pnl",
	"charges",
	"num_trades",
	"capital_deployed",
}

type BulkLoader struct {
	pool      *pgxpool.Pool
	batchSize int
	workers   int
}

func NewBulkLoader(pool *pgxpool.Pool, batchSize, workers int) *BulkLoader {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if workers <= 0 {
		workers = 1
	}
	return &BulkLoader{
		pool:      pool,
		batchSize: batchSize,
		workers:   workers,
	}
}

// LoadEntries upserts entries in one transaction: the rows are copied into
// a temporary staging table and merged into trade_entries, replacing any
// entry already logged for the same user and day.
func (l *BulkLoader) LoadEntries(ctx context.Context, entries []domain.TradeEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("load_entries"))

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        CREATE TEMP TABLE `+stagingTable+`
        (LIKE trade_entries INCLUDING DEFAULTS)
        ON COMMIT DROP`)
	if err != nil {
		return 0, fmt.Errorf("erro ao criar tabela de staging: %w", err)
	}

	copyCount, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{stagingTable},
		entryColumns,
		&entrySource{entries: entries},
	)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("load_entries", "error").Inc()
		return 0, fmt.Errorf("erro no COPY: %w", err)
	}

	tag, err := tx.Exec(ctx, `
        INSERT INTO trade_entries (user_id, trade_date, gross_pnl, charges, num_trades, capital_deployed)
        SELECT DISTINCT ON (user_id, trade_date)
            user_id, trade_date, gross_pnl, charges, num_trades, capital_deployed
        FROM `+stagingTable+`
        ORDER BY user_id, trade_date
        ON CONFLICT (user_id, trade_date) DO UPDATE SET
            gross_pnl = EXCLUDED.gross_pnl,
            charges = EXCLUDED.charges,
            num_trades = EXCLUDED.num_trades,
            capital_deployed = EXCLUDED.capital_deployed,
            updated_at = now()`)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("load_entries", "error").Inc()
		return 0, fmt.Errorf("erro no upsert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("erro no commit: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("load_entries", "success").Inc()
	logger.Debug("lote carregado",
		zap.Int64("copied", copyCount),
		zap.Int64("upserted", tag.RowsAffected()))

	return tag.RowsAffected(), nil
}

type entrySource struct {
	entries []domain.TradeEntry
	index   int
}

func (es *entrySource) Next() bool {
	es.index++
	return es.index <= len(es.entries)
}

func (es *entrySource) Values() ([]interface{}, error) {
	if es.index > len(es.entries) {
		return nil, nil
	}

	entry := es.entries[es.index-1]
	return []interface{}{
		entry.UserID,
		entry.Date,
		entry.GrossPnl,
		entry.Charges,
		entry.NumTrades,
		entry.CapitalDeployed,
	}, nil
}

func (es *entrySource) Err() error {
	return nil
}

// LoadEntriesConcurrent splits entries into batchSize chunks and loads them
// with at most workers transactions in flight. Chunks must not share a
// (user, day) pair; Parser output already satisfies that.
func (l *BulkLoader) LoadEntriesConcurrent(ctx context.Context, entries []domain.TradeEntry) (int64, error) {
	chunks := splitIntoChunks(entries, l.batchSize)
	counts := make([]int64, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			count, err := l.LoadEntries(ctx, chunk)
			counts[i] = count
			return err
		})
	}

	err := g.Wait()

	var totalCount int64
	for _, c := range counts {
		totalCount += c
	}

	return totalCount, err
}

func splitIntoChunks(entries []domain.TradeEntry, size int) [][]domain.TradeEntry {
	var chunks [][]domain.TradeEntry

	for i := 0; i < len(entries); i += size {
		end := i + size
		if end > len(entries) {
			end = len(entries)
		}
		chunks = append(chunks, entries[i:end])
	}

	return chunks
}
