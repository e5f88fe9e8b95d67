package api

import (
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/internal/render"
)

type CardResponse struct {
	Kind     domain.CardKind `json:"kind"`
	UserID   string          `json:"user_id"`
	View     interface{}     `json:"view"`
	Params   render.Params   `json:"params"`
	ImageURL string          `json:"image_url"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemStatsResponse struct {
	Database *DatabaseStats `json:"database,omitempty"`
	API      APIStats       `json:"api"`
}

type DatabaseStats struct {
	ActiveConnections int32  `json:"active_connections"`
	IdleConnections   int32  `json:"idle_connections"`
	TotalConnections  int32  `json:"total_connections"`
	WaitCount         int64  `json:"wait_count"`
	WaitDuration      string `json:"wait_duration"`
}

type APIStats struct {
	ActiveGoroutines int    `json:"active_goroutines"`
	MemoryUsed       string `json:"memory_used"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ImportRequest struct {
	UserID   string `json:"user_id" validate:"required,max=64"`
	FilePath string `json:"file_path" validate:"required"`
	Async    bool   `json:"async"`
}

type ImportResponse struct {
	JobID        string   `json:"job_id,omitempty"`
	RecordsCount int64    `json:"records_count,omitempty"`
	Rejected     []string `json:"rejected,omitempty"`
	Duplicates   int      `json:"duplicates,omitempty"`
	Status       string   `json:"status"`
	Message      string   `json:"message"`
}

type InvalidateResponse struct {
	Status  string `json:"status"`
	UserID  string `json:"user_id"`
	Removed int    `json:"removed"`
}
