package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/blocklist-service/internal/adapter/filestore"
	"github.com/user/blocklist-service/internal/adapter/memory"
	"github.com/user/blocklist-service/internal/adapter/postgres"
	redis_adapter "github.com/user/blocklist-service/internal/adapter/redis"
	"github.com/user/blocklist-service/internal/adapter/sqlite"
	"github.com/user/blocklist-service/internal/dashboard"
	"github.com/user/blocklist-service/internal/delivery/http/handler"
	"github.com/user/blocklist-service/internal/delivery/http/router"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/internal/usecase"
	"github.com/user/blocklist-service/pkg/config"
	"github.com/user/blocklist-service/pkg/logger"
	"github.com/user/blocklist-service/pkg/metrics"
	"github.com/user/blocklist-service/web"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// --- Metrics ---
	metrics.Init()

	// --- Storage ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, pinger, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal("Unable to open storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer closeStorage()
	log.Info("Storage ready", zap.String("backend", cfg.StorageBackend))

	// --- Use Cases ---
	dash := dashboard.New(usecase.NewBlocklist(repo, nil, log), log, dashboard.Options{
		RefreshInterval: cfg.RefreshInterval,
		RemoveDelay:     cfg.RemoveDelay,
		SettleDelay:     cfg.SettleDelay,
	})
	documents := usecase.NewDocumentService(repo, dash, log)
	blocklist := usecase.NewBlocklist(repo, dash, log)

	// --- HTTP Server ---
	pages, err := web.Templates()
	if err != nil {
		log.Fatal("Unable to parse templates", zap.Error(err))
	}
	apiHandler := handler.NewHandler(documents, blocklist, dash, pinger, pages, log)
	httpRouter := router.New(apiHandler, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	dashDone := make(chan struct{})
	go func() {
		defer close(dashDone)
		dash.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		log.Error("Could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
		stop()
	case <-ctx.Done():
		log.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	<-dashDone
	log.Info("Server exiting")
}

// openStorage builds the repository for the configured backend. The returned
// pinger is nil when the backend has no connection to check.
func openStorage(ctx context.Context, cfg *config.Config) (repository.DocumentRepository, handler.Pinger, func(), error) {
	noop := func() {}

	switch cfg.StorageBackend {
	case config.BackendMemory:
		return memory.NewDocumentRepo(), nil, noop, nil

	case config.BackendSQLite:
		repo, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, noop, err
		}
		return repo, repo, func() { _ = repo.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("unable to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, noop, fmt.Errorf("unable to ping database: %w", err)
		}
		repo := postgres.NewDocumentRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, noop, fmt.Errorf("failed to create schema: %w", err)
		}
		return repo, pool, pool.Close, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		repo := redis_adapter.NewDocumentRepo(rdb)
		if err := repo.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, noop, fmt.Errorf("unable to connect to redis: %w", err)
		}
		return repo, repo, func() { _ = rdb.Close() }, nil

	default:
		repo, err := filestore.NewDocumentRepo(cfg.DataDir)
		if err != nil {
			return nil, nil, noop, err
		}
		return repo, nil, noop, nil
	}
}
