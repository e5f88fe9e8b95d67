package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/jeovahfialho/pnl-recap/internal/api"
	"github.com/jeovahfialho/pnl-recap/internal/config"
	"github.com/jeovahfialho/pnl-recap/internal/ingestion"
	"github.com/jeovahfialho/pnl-recap/internal/render"
	"github.com/jeovahfialho/pnl-recap/internal/scheduler"
	"github.com/jeovahfialho/pnl-recap/internal/service"
	"github.com/jeovahfialho/pnl-recap/internal/storage/cache"
	"github.com/jeovahfialho/pnl-recap/internal/storage/postgres"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"github.com/jeovahfialho/pnl-recap/pkg/tracing"
)

// @title P&L Recap Card API
// @version 1.0
// @description Cards diários, semanais e mensais de resultado de trading

// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuração inválida:", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.IsDevelopment()); err != nil {
		log.Fatal("Erro ao inicializar logger:", err)
	}
	defer logger.Close()

	if err := tracing.Init(cfg.TracingEnabled, api.Version); err != nil {
		logger.Fatal("erro ao inicializar tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(ctx)
	}()

	db, err := connectPostgres(cfg)
	if err != nil {
		logger.Fatal("erro ao conectar PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	checks := map[string]api.HealthChecker{"database": db}

	// A nil *RedisCache must not reach the service as a non-nil interface.
	var viewCache service.ViewCache
	if redisCache := connectRedis(cfg); redisCache != nil {
		defer redisCache.Close()
		viewCache = redisCache
		checks["redis"] = redisCache
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Stores
	entries := postgres.NewEntryStore(db.Pool())
	profiles := postgres.NewProfileStore(db.Pool())

	// Services
	cards := service.NewCardService(entries, profiles, viewCache, cfg.DefaultProfile())

	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers)
	loader := ingestion.NewBulkLoader(db.Pool(), cfg.BatchSize, cfg.Workers)
	workerPool := ingestion.NewWorkerPool(cfg.Workers, parser, loader)
	imports := service.NewImportService(workerPool, cards)

	images := render.NewClient(cfg.RendererURL, cfg.RendererTimeout)

	if cfg.WarmupEnabled {
		sched := scheduler.New(ctx, entries, cards, cfg.Workers)
		if err := sched.Register(cfg.WarmupCron); err != nil {
			logger.Fatal("erro ao configurar scheduler", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	}

	handler := api.NewHandler(cards, imports, images, checks, db, cfg.PublicBaseURL)

	app := fiber.New(fiber.Config{
		Prefork:                 false,
		ServerHeader:            "PnL-Recap",
		DisableStartupMessage:   !cfg.IsDevelopment(),
		AppName:                 "P&L Recap v" + api.Version,
		ReadTimeout:             cfg.APIReadTimeout,
		WriteTimeout:            cfg.APIWriteTimeout,
		IdleTimeout:             120 * time.Second,
		ReadBufferSize:          8192,
		WriteBufferSize:         8192,
		ProxyHeader:             "X-Forwarded-For",
		EnableTrustedProxyCheck: true,
		BodyLimit:               10 * 1024 * 1024, // 10MB
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	api.SetupRoutes(app, handler, cfg)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("encerrando servidor")
		stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("erro ao encerrar servidor", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	logger.Info("servidor iniciado", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		logger.Fatal("erro no servidor", zap.Error(err))
	}
}

func connectPostgres(cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar conexão: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("erro ao testar conexão: %w", err)
	}

	logger.Info("conectado ao PostgreSQL")
	return db, nil
}

func connectRedis(cfg *config.Config) *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		logger.Warn("Redis não disponível, continuando sem cache", zap.Error(err))
		return nil
	}

	logger.Info("conectado ao Redis")
	return redisCache
}
