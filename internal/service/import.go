package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jeovahfialho/pnl-recap/internal/ingestion"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"go.uber.org/zap"
)

// FileProcessor parses and loads one trade log. *ingestion.WorkerPool
// implements it.
type FileProcessor interface {
	ProcessFile(ctx context.Context, userID, filePath string) ingestion.JobResult
}

type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string) (int, error)
}

type ImportService struct {
	processor   FileProcessor
	invalidator Invalidator
}

func NewImportService(processor FileProcessor, invalidator Invalidator) *ImportService {
	return &ImportService{
		processor:   processor,
		invalidator: invalidator,
	}
}

type ImportResult struct {
	JobID        string        `json:"job_id"`
	UserID       string        `json:"user_id"`
	FilePath     string        `json:"file_path"`
	RecordsCount int64         `json:"records_count"`
	Rejected     []string      `json:"rejected,omitempty"`
	Duplicates   int           `json:"duplicates"`
	Duration     time.Duration `json:"duration"`
}

// ImportFile loads one trade log for userID and drops the user's cached
// views so the next request sees the new numbers. Rejected rows do not fail
// the import; they are listed in the result.
func (s *ImportService) ImportFile(ctx context.Context, userID, filePath string) (*ImportResult, error) {
	start := time.Now()
	jobID := uuid.NewString()

	logger.Info("importando arquivo",
		zap.String("job_id", jobID),
		zap.String("user_id", userID),
		zap.String("file", filePath))

	res := s.processor.ProcessFile(ctx, userID, filePath)

	result := &ImportResult{
		JobID:        jobID,
		UserID:       userID,
		FilePath:     filePath,
		RecordsCount: res.RecordsCount,
		Duplicates:   res.Duplicates,
		Duration:     time.Since(start),
	}
	for _, rejected := range res.Rejected {
		result.Rejected = append(result.Rejected, rejected.Error())
	}

	// A partial load may have committed some chunks.
	if res.RecordsCount > 0 || res.Error == nil {
		if _, err := s.invalidator.InvalidateUser(ctx, userID); err != nil {
			logger.Warn("erro ao invalidar cache após importação",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	if res.Error != nil {
		logger.Error("falha na importação",
			zap.String("job_id", jobID),
			zap.String("file", filePath),
			zap.Error(res.Error))
		return result, fmt.Errorf("erro ao importar %s: %w", filePath, res.Error)
	}

	logger.Info("arquivo importado",
		zap.String("job_id", jobID),
		zap.Int64("records", result.RecordsCount),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("duplicates", result.Duplicates),
		zap.Duration("duration", result.Duration))

	return result, nil
}
