package api

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/internal/render"
	"github.com/jeovahfialho/pnl-recap/internal/service"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"go.uber.org/zap"
)

const Version = "1.0.0"

// CardProvider is the read side the handlers need. *service.CardService
// implements it.
type CardProvider interface {
	Profile(ctx context.Context, userID string) (domain.Profile, error)
	Daily(ctx context.Context, userID string, date time.Time) (*domain.DailyView, error)
	Weekly(ctx context.Context, userID string, date time.Time) (*domain.WeeklyView, error)
	Monthly(ctx context.Context, userID string, date time.Time) (*domain.MonthlyView, error)
	InvalidateUser(ctx context.Context, userID string) (int, error)
}

type Importer interface {
	ImportFile(ctx context.Context, userID, filePath string) (*service.ImportResult, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type PoolStats interface {
	Stats() *pgxpool.Stat
}

type Handler struct {
	cards    CardProvider
	importer Importer
	images   *render.Client
	checks   map[string]HealthChecker
	pool     PoolStats
	validate *validator.Validate
	now      func() time.Time

	// publicURL prefixes the shareable link placed in meta documents.
	publicURL string
}

// NewHandler wires the handlers. checks names the dependencies probed by
// /ready; pool may be nil when no database stats are available.
func NewHandler(
	cards CardProvider,
	importer Importer,
	images *render.Client,
	checks map[string]HealthChecker,
	pool PoolStats,
	publicURL string,
) *Handler {
	return &Handler{
		cards:    cards,
		importer: importer,
		images:   images,
		checks:   checks,
		pool:     pool,
		validate: validator.New(),
		now:      time.Now,

		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func errorJSON(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: getRequestID(c),
		Timestamp: time.Now(),
	})
}

// cardDate reads :date as YYYY-MM-DD, or "today" in the user's timezone.
func (h *Handler) cardDate(c *fiber.Ctx, profile domain.Profile) (time.Time, error) {
	raw := c.Params("date")
	if strings.EqualFold(raw, "today") {
		return domain.CalendarDay(h.now().In(profile.Location())), nil
	}
	return domain.ParseDate(raw)
}

// cardRequest resolves the user and date shared by every card route.
func (h *Handler) cardRequest(c *fiber.Ctx) (string, domain.Profile, time.Time, error) {
	userID := c.Params("user")
	if userID == "" {
		return "", domain.Profile{}, time.Time{}, errorJSON(c, fiber.StatusBadRequest, "usuário é obrigatório")
	}

	profile, err := h.cards.Profile(c.UserContext(), userID)
	if err != nil {
		logger.WithContext(c.UserContext()).Error("erro ao buscar perfil",
			zap.String("user_id", userID),
			zap.Error(err))
		return "", domain.Profile{}, time.Time{}, errorJSON(c, fiber.StatusInternalServerError, "erro ao buscar perfil")
	}

	date, err := h.cardDate(c, profile)
	if err != nil {
		return "", domain.Profile{}, time.Time{}, errorJSON(c, fiber.StatusBadRequest, "formato de data inválido (use YYYY-MM-DD ou today)")
	}

	return userID, profile, date, nil
}

// dailyCard returns the view, or writes the error response itself and
// returns a nil view.
func (h *Handler) dailyCard(c *fiber.Ctx) (*domain.DailyView, domain.Profile, error) {
	userID, profile, date, err := h.cardRequest(c)
	if err != nil || userID == "" {
		return nil, profile, err
	}

	view, err := h.cards.Daily(c.UserContext(), userID, date)
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil, profile, errorJSON(c, fiber.StatusNotFound,
			fmt.Sprintf("nenhum lançamento em %s", domain.DateKey(date)))
	}
	if err != nil {
		return nil, profile, h.cardFailure(c, domain.CardDaily, userID, err)
	}
	return view, profile, nil
}

func (h *Handler) weeklyCard(c *fiber.Ctx) (*domain.WeeklyView, domain.Profile, error) {
	userID, profile, date, err := h.cardRequest(c)
	if err != nil || userID == "" {
		return nil, profile, err
	}

	view, err := h.cards.Weekly(c.UserContext(), userID, date)
	if err != nil {
		return nil, profile, h.cardFailure(c, domain.CardWeekly, userID, err)
	}
	if view == nil {
		return nil, profile, errorJSON(c, fiber.StatusNotFound, "nenhum lançamento na semana")
	}
	return view, profile, nil
}

func (h *Handler) monthlyCard(c *fiber.Ctx) (*domain.MonthlyView, domain.Profile, error) {
	userID, profile, date, err := h.cardRequest(c)
	if err != nil || userID == "" {
		return nil, profile, err
	}

	view, err := h.cards.Monthly(c.UserContext(), userID, date)
	if err != nil {
		return nil, profile, h.cardFailure(c, domain.CardMonthly, userID, err)
	}
	if view == nil {
		return nil, profile, errorJSON(c, fiber.StatusNotFound, "nenhum lançamento no mês")
	}
	return view, profile, nil
}

func (h *Handler) cardFailure(c *fiber.Ctx, kind domain.CardKind, userID string, err error) error {
	logger.WithContext(c.UserContext()).Error("erro ao montar card",
		zap.String("kind", string(kind)),
		zap.String("user_id", userID),
		zap.Error(err))
	return errorJSON(c, fiber.StatusInternalServerError, "erro ao montar card")
}

func (h *Handler) cardResponse(c *fiber.Ctx, kind domain.CardKind, view interface{}, params render.Params) error {
	return c.JSON(CardResponse{
		Kind:     kind,
		UserID:   c.Params("user"),
		View:     view,
		Params:   params,
		ImageURL: h.images.ImageURL(kind, params),
	})
}

func (h *Handler) GetDailyCard(c *fiber.Ctx) error {
	view, profile, err := h.dailyCard(c)
	if view == nil {
		return err
	}
	return h.cardResponse(c, domain.CardDaily, view, render.DailyParams(view, profile))
}

func (h *Handler) GetWeeklyCard(c *fiber.Ctx) error {
	view, profile, err := h.weeklyCard(c)
	if view == nil {
		return err
	}
	return h.cardResponse(c, domain.CardWeekly, view, render.WeeklyParams(view, profile))
}

func (h *Handler) GetMonthlyCard(c *fiber.Ctx) error {
	view, profile, err := h.monthlyCard(c)
	if view == nil {
		return err
	}
	return h.cardResponse(c, domain.CardMonthly, view, render.MonthlyParams(view, profile))
}

func (h *Handler) GetDailyMeta(c *fiber.Ctx) error {
	view, profile, err := h.dailyCard(c)
	if view == nil {
		return err
	}
	params := render.DailyParams(view, profile)
	meta := render.DailyMeta(view, profile, h.images.ImageURL(domain.CardDaily, params))
	meta.URL = h.shareURL(c)
	return c.JSON(meta)
}

func (h *Handler) GetWeeklyMeta(c *fiber.Ctx) error {
	view, profile, err := h.weeklyCard(c)
	if view == nil {
		return err
	}
	params := render.WeeklyParams(view, profile)
	meta := render.WeeklyMeta(view, profile, h.images.ImageURL(domain.CardWeekly, params))
	meta.URL = h.shareURL(c)
	return c.JSON(meta)
}

func (h *Handler) GetMonthlyMeta(c *fiber.Ctx) error {
	view, profile, err := h.monthlyCard(c)
	if view == nil {
		return err
	}
	params := render.MonthlyParams(view, profile)
	meta := render.MonthlyMeta(view, profile, h.images.ImageURL(domain.CardMonthly, params))
	meta.URL = h.shareURL(c)
	return c.JSON(meta)
}

// shareURL is the public address of the card the meta route describes.
func (h *Handler) shareURL(c *fiber.Ctx) string {
	if h.publicURL == "" {
		return ""
	}
	return h.publicURL + strings.TrimSuffix(c.Path(), "/meta")
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth)

	for name, checker := range h.checks {
		start := time.Now()
		if err := checker.HealthCheck(ctx); err != nil {
			services[name] = ServiceHealth{
				Status: "unhealthy",
				Error:  err.Error(),
			}
			continue
		}
		services[name] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(start).String(),
		}
	}

	status := "ready"
	for _, service := range services {
		if service.Status != "healthy" {
			status = "not_ready"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   Version,
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func (h *Handler) InvalidateCache(c *fiber.Ctx) error {
	userID := c.Params("user")

	removed, err := h.cards.InvalidateUser(c.UserContext(), userID)
	if err != nil {
		logger.WithContext(c.UserContext()).Error("erro ao invalidar cache",
			zap.String("user_id", userID),
			zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "erro ao invalidar cache")
	}

	return c.JSON(InvalidateResponse{
		Status:  "success",
		UserID:  userID,
		Removed: removed,
	})
}

func (h *Handler) GetSystemStats(c *fiber.Ctx) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := SystemStatsResponse{
		API: APIStats{
			ActiveGoroutines: runtime.NumGoroutine(),
			MemoryUsed:       fmt.Sprintf("%d MB", m.Alloc/1024/1024),
		},
	}

	if h.pool != nil {
		dbStats := h.pool.Stats()
		response.Database = &DatabaseStats{
			ActiveConnections: dbStats.AcquiredConns(),
			IdleConnections:   dbStats.IdleConns(),
			TotalConnections:  dbStats.TotalConns(),
			WaitCount:         dbStats.EmptyAcquireCount(),
			WaitDuration:      dbStats.AcquireDuration().String(),
		}
	}

	return c.JSON(response)
}

func (h *Handler) ImportFile(c *fiber.Ctx) error {
	var req ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "corpo da requisição inválido")
	}
	if err := h.validate.Struct(req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("requisição inválida: %v", err))
	}

	if req.Async {
		jobID := uuid.NewString()

		go func() {
			ctx := context.Background()
			result, err := h.importer.ImportFile(ctx, req.UserID, req.FilePath)

			if err != nil {
				logger.Error("erro ao processar arquivo",
					zap.String("file", req.FilePath),
					zap.String("job_id", jobID),
					zap.Error(err))
				return
			}
			logger.Info("arquivo processado com sucesso",
				zap.String("file", req.FilePath),
				zap.String("job_id", jobID),
				zap.String("import_id", result.JobID),
				zap.Int64("records", result.RecordsCount))
		}()

		return c.Status(fiber.StatusAccepted).JSON(ImportResponse{
			JobID:   jobID,
			Status:  "processing",
			Message: "processamento iniciado",
		})
	}

	result, err := h.importer.ImportFile(c.UserContext(), req.UserID, req.FilePath)
	if err != nil {
		logger.WithContext(c.UserContext()).Error("erro ao processar arquivo",
			zap.String("file", req.FilePath),
			zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "erro ao processar arquivo")
	}

	return c.JSON(ImportResponse{
		JobID:        result.JobID,
		RecordsCount: result.RecordsCount,
		Rejected:     result.Rejected,
		Duplicates:   result.Duplicates,
		Status:       "completed",
		Message:      "arquivo processado com sucesso",
	})
}

func getRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestID").(string); ok {
		return id
	}
	return ""
}
