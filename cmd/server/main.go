package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/config"
	"github.com/satforge/exam-engine/internal/countdown"
	"github.com/satforge/exam-engine/internal/database"
	"github.com/satforge/exam-engine/internal/handler"
	"github.com/satforge/exam-engine/internal/logger"
	"github.com/satforge/exam-engine/internal/recovery"
	"github.com/satforge/exam-engine/internal/render"
	"github.com/satforge/exam-engine/internal/router"
	"github.com/satforge/exam-engine/internal/scoring"
	"github.com/satforge/exam-engine/internal/service"
	"github.com/satforge/exam-engine/internal/session"
	"github.com/satforge/exam-engine/internal/slot"
	"github.com/satforge/exam-engine/internal/transition"
	"github.com/satforge/exam-engine/internal/validator"
	"github.com/satforge/exam-engine/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("slot_backend", cfg.SlotBackend).
		Msg("Starting Exam Engine")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	// Postgres is only required when slots live there or when Redis
	// snapshots are mirrored into it by the archive worker.
	archiving := cfg.SlotBackend != config.SlotBackendPostgres && cfg.ArchiveSnapshots
	needsPostgres := cfg.SlotBackend == config.SlotBackendPostgres || archiving
	var pool *pgxpool.Pool
	if needsPostgres {
		pool, err = database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
	}

	// ─── Select Slot Store ─────────────────────────────────────────────
	var slots slot.Store
	switch cfg.SlotBackend {
	case config.SlotBackendPostgres:
		slots = slot.NewPostgresStore(pool)
	default:
		slots = slot.NewRedisStore(rdb, archiving)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	scoringClient := scoring.NewClient(cfg, log)

	registry := session.NewRegistry(slots, log)
	clocks := countdown.NewManager(log)
	controller := transition.NewController(scoringClient, log)
	guard := recovery.NewGuard(slots, log)
	renderer := render.NewMathSegmenter()

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:  handler.NewExamHandler(registry, controller, guard, renderer, log),
		Clock: handler.NewClockHandler(registry, clocks, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	if archiving {
		archiveWorker := worker.NewArchiveWorker(pool, rdb, log)
		go archiveWorker.Start(workerCtx)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, guard, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the countdown clocks so final Tick persists land before exit.
	clocks.StopAll()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
