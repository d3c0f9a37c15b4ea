package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/skypro1111/audio-cnn-visualizer/internal/inference"
	"github.com/skypro1111/audio-cnn-visualizer/internal/metrics"
	"github.com/skypro1111/audio-cnn-visualizer/internal/server"
	"github.com/skypro1111/audio-cnn-visualizer/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and inference proxy",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
	)

	logger.Info("Configuration loaded",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		slog.String("inference_endpoint", cfg.Inference.Endpoint),
		slog.Duration("inference_timeout", cfg.Inference.GetTimeoutDuration()),
		slog.Int("max_retries", cfg.Inference.MaxRetries),
		slog.Float64("scale_min", cfg.Render.ScaleMin),
		slog.Float64("scale_max", cfg.Render.ScaleMax),
		slog.String("log_level", cfg.Logging.Level),
	)

	registry := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(registry)
	logger.Info("Prometheus metrics initialized")

	client, err := inference.NewClient(inference.Config{
		Endpoint:      cfg.Inference.Endpoint,
		Timeout:       cfg.Inference.GetTimeoutDuration(),
		MaxRetries:    cfg.Inference.MaxRetries,
		MaxConcurrent: cfg.Inference.MaxConcurrent,
	}, logger, appMetrics)
	if err != nil {
		return fmt.Errorf("failed to create inference client: %w", err)
	}

	analyzer, colourScale, err := newAnalyzer(cfg, client, logger, appMetrics)
	if err != nil {
		return err
	}

	sessions := session.NewManager(logger, cfg.Session.GetTimeoutDuration(), appMetrics)
	logger.Info("Session manager initialized",
		slog.Duration("session_timeout", cfg.Session.GetTimeoutDuration()),
	)

	httpServer := server.NewHTTPServer(cfg, logger, server.Deps{
		Analyzer: analyzer,
		Client:   client,
		Sessions: sessions,
		Scale:    colourScale,
		Metrics:  appMetrics,
		Gatherer: registry,
	})

	if err := httpServer.Start(); err != nil {
		sessions.Stop()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.GetShutdownTimeoutDuration())
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	sessions.Stop()

	stats := client.GetStats()
	if err := client.Close(); err != nil {
		logger.Error("Error closing inference client", slog.String("error", err.Error()))
	}

	logger.Info("Final inference statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Uint64("timeouts", stats.Timeouts),
		slog.Uint64("retries", stats.TotalRetries),
		slog.Duration("avg_response_time", stats.AvgResponseTime),
	)

	logger.Info("Service stopped")
	return nil
}
