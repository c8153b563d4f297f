// Command server runs the collaborative board service: the REST API, the
// realtime WebSocket channel, and their shared Postgres and Redis backends.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Riya-023/collaborative-todo-board/internal/api"
	"github.com/Riya-023/collaborative-todo-board/internal/api/websocket"
	"github.com/Riya-023/collaborative-todo-board/internal/config"
	"github.com/Riya-023/collaborative-todo-board/internal/database"
	"github.com/Riya-023/collaborative-todo-board/internal/repository"
	"github.com/Riya-023/collaborative-todo-board/internal/resilience"
	"github.com/Riya-023/collaborative-todo-board/internal/services"
	"github.com/Riya-023/collaborative-todo-board/pkg/auth"
	"github.com/Riya-023/collaborative-todo-board/pkg/common/cache"
	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewStandardLoggerWithLevel("server", cfg.Logging.Level)
	logger.Info("Starting board service", map[string]interface{}{
		"environment": cfg.Environment,
	})

	var metrics observability.MetricsClient
	if cfg.Metrics.Enabled {
		metrics = observability.NewPrometheusMetricsClient(prometheus.NewRegistry(), cfg.Metrics.Namespace)
	} else {
		metrics = observability.NewNoopMetricsClient()
	}
	defer func() { _ = metrics.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.Migrate {
		if err := database.MigrateUp(db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("Database migrations applied", nil)
	}

	appCache := buildCache(cfg, logger)
	defer func() { _ = appCache.Close() }()

	authService := auth.NewService(&cfg.Auth, logger)
	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	assignment := services.NewAssignmentService(taskRepo, activityRepo, logger)
	breakers := resilience.NewManager(logger)

	hub := websocket.NewServer(authService, logger.WithPrefix("websocket"), metrics, websocket.Config{
		MaxConnections: cfg.WebSocket.MaxConnections,
		PingInterval:   cfg.WebSocket.PingInterval,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBufferSize: cfg.WebSocket.SendBufferSize,
		RateLimit: websocket.RateLimitConfig{
			Rate:  cfg.WebSocket.RateLimit.Rate,
			Burst: cfg.WebSocket.RateLimit.Burst,
			PerIP: cfg.WebSocket.RateLimit.PerIP,
		},
	})

	server := api.NewServer(cfg.API, api.Deps{
		Hub:        hub,
		Auth:       authService,
		Tasks:      taskRepo,
		Users:      userRepo,
		Activities: activityRepo,
		Assignment: assignment,
		Cache:      appCache,
		Breakers:   breakers,
		Logger:     logger.WithPrefix("api"),
		Metrics:    metrics,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server stopped", nil)
	return nil
}

// buildCache prefers Redis and falls back to the in-process cache when
// Redis is unavailable or not configured.
func buildCache(cfg *config.Config, logger observability.Logger) cache.Cache {
	if cfg.CacheMode == "redis" {
		c, err := cache.NewRedisCache(cfg.Cache)
		if err == nil {
			logger.Info("Using Redis cache", map[string]interface{}{
				"address": cfg.Cache.Address,
			})
			return c
		}
		logger.Warn("Redis unavailable, falling back to memory cache", map[string]interface{}{
			"address": cfg.Cache.Address,
			"error":   err.Error(),
		})
	}
	return cache.NewMemoryCache()
}
