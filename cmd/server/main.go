package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/padstats/scores-api/internal/config"
	"github.com/padstats/scores-api/internal/handlers"
	"github.com/padstats/scores-api/internal/logic"
	"github.com/padstats/scores-api/internal/upstream"
	"github.com/padstats/scores-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		sugar.Fatalw("Failed to create postgres pool", "error", err)
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		sugar.Fatalw("Failed to ping postgres", "error", err)
	}

	chOptions, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
	if err != nil {
		sugar.Fatalw("Failed to parse clickhouse DSN", "error", err)
	}
	ch, err := clickhouse.Open(chOptions)
	if err != nil {
		sugar.Fatalw("Failed to connect to clickhouse", "error", err)
	}
	defer ch.Close()

	redisOptions, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("Failed to parse redis URL", "error", err)
	}
	rdb := redis.NewClient(redisOptions)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		sugar.Fatalw("Failed to ping redis", "error", err)
	}

	pool := worker.NewPool(worker.PoolConfig{
		WorkerCount:   cfg.WorkerCount,
		QueueSize:     cfg.QueueSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		ClickHouse:    ch,
		Redis:         rdb,
		Logger:        logger,
	})
	pool.Start(ctx)

	gateway := upstream.NewClient(cfg.UpstreamURL, cfg.UpstreamConnectTimeout, cfg.UpstreamReadTimeout, logger)

	directory := logic.NewPlayerDirectory(pg, logger)
	ledger := logic.NewScoreLedger(pg, logger)
	composer := logic.NewLeaderboardComposer(pg, logger)
	orchestrator := logic.NewSubmissionOrchestrator(directory, ledger, composer, gateway, pool, logger)
	live := logic.NewLiveService(logic.NoopProbe{}, rdb, cfg.LiveCacheTTL, logger)

	handler := handlers.New(handlers.Config{
		WorkerPool:   pool,
		Postgres:     pg,
		ClickHouse:   ch,
		Redis:        rdb,
		Logger:       logger,
		Directory:    directory,
		Ledger:       ledger,
		Composer:     composer,
		Orchestrator: orchestrator,
		Live:         live,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.Routes(cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infow("Starting HTTP server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("HTTP server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Failed to shutdown server", "error", err)
	}
	pool.Stop()

	sugar.Info("Server stopped")
}
