// Command adforge-worker runs the generation gateway worker: a small HTTP
// service that fronts the Gemini API for the campaign server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adforge-ai/adforge/internal/config"
	"github.com/adforge-ai/adforge/internal/worker"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("ADFORGE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("adforge-worker starting",
		"version", version, "port", cfg.WorkerPort, "model", cfg.GeminiModel)
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is empty; generation requests will fail")
	}
	if cfg.WorkerKeyHash == "" {
		logger.Warn("worker auth disabled (no ADFORGE_WORKER_KEY_HASH)")
	}

	gen := worker.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.WorkerTimeout)
	handler := worker.NewHandler(worker.Config{
		Generator:     gen,
		Logger:        logger,
		AllowedOrigin: cfg.WorkerAllowedOrigin,
		KeyHash:       cfg.WorkerKeyHash,
		Timeout:       cfg.WorkerTimeout,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("worker listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("adforge-worker shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("adforge-worker stopped")
	return nil
}
