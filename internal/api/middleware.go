package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_duration_seconds",
		Help: "Duration of HTTP requests.",
	}, []string{"method", "route", "status_code"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status_code"})
)

func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := c.Response().StatusCode()

		httpDuration.WithLabelValues(
			c.Method(),
			c.Route().Path,
			fmt.Sprintf("%d", status),
		).Observe(duration)

		httpRequests.WithLabelValues(
			c.Method(),
			c.Route().Path,
			fmt.Sprintf("%d", status),
		).Inc()

		return err
	}
}

func RateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return errorJSON(c, fiber.StatusTooManyRequests, "Too many requests")
		},
	})
}

func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if err != nil {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
				message = e.Message
			} else {
				logger.WithContext(c.UserContext()).Error("erro não tratado",
					zap.String("path", c.Path()),
					zap.Error(err))
			}

			return errorJSON(c, code, message)
		}

		return nil
	}
}

func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("X-Request-ID", requestID)
		c.Locals("requestID", requestID)
		c.SetUserContext(logger.WithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}

// AdminAuth accepts "Authorization: Bearer <token>". An empty token
// disables the admin routes.
func AdminAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return errorJSON(c, fiber.StatusForbidden, "rotas administrativas desabilitadas")
		}

		given := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		return c.Next()
	}
}
