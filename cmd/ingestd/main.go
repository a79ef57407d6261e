package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	auditsqlite "github.com/dcamarena/ingest-sagas/internal/auditlog/sqlite"
	"github.com/dcamarena/ingest-sagas/internal/httpx"
	"github.com/dcamarena/ingest-sagas/internal/intake"
	"github.com/dcamarena/ingest-sagas/internal/pkg/clock"
	"github.com/dcamarena/ingest-sagas/internal/pkg/sqlitedb"
	"github.com/dcamarena/ingest-sagas/internal/pkg/telemetry"
	"github.com/dcamarena/ingest-sagas/internal/reconciler"
	recordsqlite "github.com/dcamarena/ingest-sagas/internal/record/sqlite"
	"github.com/dcamarena/ingest-sagas/internal/saga"
	"github.com/dcamarena/ingest-sagas/internal/stage"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "ingestd"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	db, err := sqlitedb.Open(getEnv("INGEST_DB_PATH", "./data/ingest.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recordStore, err := recordsqlite.New(db)
	if err != nil {
		slog.Error("failed to initialise record store", "error", err)
		os.Exit(1)
	}
	auditRepo, err := auditsqlite.New(db)
	if err != nil {
		slog.Error("failed to initialise audit ledger", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: getEnv("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	// Stage order is fixed: spool-file write first, queue publish second.
	executors := []saga.Executor{
		stage.NewFileWriter(getEnv("INGEST_SPOOL_DIR", "./data/spool")),
		stage.NewQueuePublisher(rdb, getEnv("INGEST_QUEUE_STREAM", "customer-records")),
	}

	engine := saga.NewEngine(recordStore, auditRepo, saga.NewGuard(), executors,
		saga.WithAbortThreshold(getEnvInt("INGEST_ABORT_THRESHOLD", 1)),
	)

	service := intake.NewService(recordStore, auditRepo, engine, clock.System{})

	rec := reconciler.New(recordStore, engine,
		reconciler.WithAgeThreshold(getEnvDuration("INGEST_QUARANTINE_AGE", reconciler.DefaultAgeThreshold)),
	)
	retryEvery := getEnvDuration("INGEST_RETRY_SWEEP_INTERVAL", 30*time.Second)
	quarantineCron := getEnv("INGEST_QUARANTINE_CRON", "0 2 * * *")
	if err := rec.Start(retryEvery, quarantineCron); err != nil {
		slog.Error("failed to start reconciler", "error", err)
		os.Exit(1)
	}
	defer rec.Stop()

	addr := getEnv("INGEST_HTTP_ADDR", ":8080")
	srv := &http.Server{
		Addr:    addr,
		Handler: httpx.NewRouter(httpx.NewHandler(service)),
	}

	go func() {
		slog.Info("ingestd HTTP server running", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("ignoring invalid integer env var", "key", key, "value", value)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration env var", "key", key, "value", value)
	}
	return fallback
}
