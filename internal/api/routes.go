package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/jeovahfialho/pnl-recap/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *fiber.App, handler *Handler, cfg *config.Config) {
	// Global middlewares
	app.Use(RequestID())
	app.Use(ErrorHandler())

	// Health checks (sem rate limiting)
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)

	// Metrics endpoint para Prometheus (sem rate limiting)
	if cfg.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Swagger documentation (sem rate limiting)
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 - com middlewares de rate limiting e métricas
	v1 := app.Group("/api/v1")
	v1.Use(RateLimiter(cfg.APIRateLimit))
	if cfg.MetricsEnabled {
		v1.Use(PrometheusMiddleware())
	}

	// Card routes
	cards := v1.Group("/users/:user/cards")
	cards.Get("/daily/:date", handler.GetDailyCard)
	cards.Get("/daily/:date/meta", handler.GetDailyMeta)
	cards.Get("/weekly/:date", handler.GetWeeklyCard)
	cards.Get("/weekly/:date/meta", handler.GetWeeklyMeta)
	cards.Get("/monthly/:date", handler.GetMonthlyCard)
	cards.Get("/monthly/:date/meta", handler.GetMonthlyMeta)

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(AdminAuth(cfg.AdminToken))
	admin.Delete("/cache/:user", handler.InvalidateCache)
	admin.Get("/stats", handler.GetSystemStats)
	admin.Post("/import", handler.ImportFile)
}
