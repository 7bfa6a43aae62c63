package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"paycal/internal/amqp"
	"paycal/internal/config"
	"paycal/internal/explain"
	apphttp "paycal/internal/http"
	"paycal/internal/log"
	"paycal/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The broker is optional for the API: approvals publish best effort and
	// the worker's sweep covers the gap when it is down.
	var publisher apphttp.ModificationPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, export notifications disabled", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	explainer := buildExplainer(cfg, logger)

	srv := apphttp.NewServer(":"+cfg.Port, repo, publisher, explainer, cfg.FixturePath, logger)
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting paycal server",
		"port", cfg.Port,
		"explain_backend", cfg.ExplainBackend,
		"fixture", cfg.FixturePath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

func buildExplainer(cfg *config.Config, logger *log.Logger) explain.Explainer {
	if cfg.ExplainBackend == "openrouter" {
		logger.Info("Using OpenRouter explanation backend", "model", cfg.OpenRouterModel)
		openrouter := explain.NewOpenRouter(cfg.OpenRouterAPIKey,
			explain.WithModel(cfg.OpenRouterModel),
			explain.WithBaseURL(cfg.OpenRouterBaseURL))
		return explain.NewFallback(openrouter, explain.NewTemplate())
	}
	return explain.NewTemplate()
}
