package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"welllink-api/core/cache"
	"welllink-api/core/config"
	"welllink-api/core/constants"
	"welllink-api/core/database"
	"welllink-api/core/logger"
	"welllink-api/core/middleware"
	"welllink-api/modules/availability"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// Run boots the HTTP server and the background worker and blocks until a
// shutdown signal arrives.
func Run() error {
	// .env is optional outside local development
	dotenvErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Server.LogLevel)
	if dotenvErr != nil {
		logger.Info("No .env file loaded", "reason", dotenvErr.Error())
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}

	if err := cache.Init(cfg.Redis); err != nil {
		// generation falls back to the database-side idempotence check
		logger.Warn("Redis unavailable, generation marks disabled", "error", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	mw := middleware.New(cfg.Auth.JWTSecret)
	e.Use(mw.RequestID())

	availabilitySvc := availability.Init(e, db, mw, asynqClient)

	mux := asynq.NewServeMux()
	availability.RegisterTasks(mux, availabilitySvc)

	worker := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Scheduling.WorkerConcurrency,
		Queues:      map[string]int{constants.QueueDefault: 1},
	})

	go func() {
		if err := worker.Run(mux); err != nil {
			logger.Error("Asynq worker stopped", "error", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("Starting HTTP server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	worker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultRequestTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
