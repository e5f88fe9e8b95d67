package ingestion

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"github.com/jeovahfialho/pnl-recap/pkg/metrics"
	"go.uber.org/zap"
)

// EntryLoader persists parsed entries. *BulkLoader is the production
// implementation.
type EntryLoader interface {
	LoadEntriesConcurrent(ctx context.Context, entries []domain.TradeEntry) (int64, error)
}

type WorkerPool struct {
	workers  int
	parser   *Parser
	loader   EntryLoader
	jobQueue chan Job
	wg       sync.WaitGroup
}

type Job struct {
	UserID   string
	FilePath string
	Result   chan<- JobResult
}

type JobResult struct {
	UserID       string
	FilePath     string
	RecordsCount int64
	Rejected     []error
	Duplicates   int
	Error        error
}

func NewWorkerPool(workers int, parser *Parser, loader EntryLoader) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{
		workers:  workers,
		parser:   parser,
		loader:   loader,
		jobQueue: make(chan Job, workers*2),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
}

func (wp *WorkerPool) Submit(job Job) {
	wp.jobQueue <- job
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			logger.Debug("processando arquivo",
				zap.Int("worker", id),
				zap.String("user_id", job.UserID),
				zap.String("file", job.FilePath))

			job.Result <- wp.ProcessFile(ctx, job.UserID, job.FilePath)
		}
	}
}

// ProcessFile parses and loads one file synchronously.
func (wp *WorkerPool) ProcessFile(ctx context.Context, userID, filePath string) JobResult {
	result := JobResult{UserID: userID, FilePath: filePath}

	file, err := os.Open(filePath)
	if err != nil {
		result.Error = fmt.Errorf("erro ao abrir arquivo: %w", err)
		return result
	}
	defer file.Close()

	parseResult, err := wp.parser.ParseFile(ctx, userID, file)
	if err != nil {
		result.Error = fmt.Errorf("erro no parse: %w", err)
		return result
	}

	result.Rejected = parseResult.Errors
	result.Duplicates = parseResult.Duplicates
	metrics.RecordEntriesImported("rejected", len(parseResult.Errors))

	count, err := wp.loader.LoadEntriesConcurrent(ctx, parseResult.Entries)
	result.RecordsCount = count
	if err != nil {
		result.Error = fmt.Errorf("erro ao carregar: %w", err)
		metrics.RecordEntriesImported("failed", len(parseResult.Entries))
		return result
	}

	metrics.RecordEntriesImported("loaded", int(count))
	return result
}
