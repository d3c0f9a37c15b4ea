// Command audioviz forwards audio uploads to a classifier service and renders
// its predictions and layer activations as colour grids.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skypro1111/audio-cnn-visualizer/internal/analysis"
	"github.com/skypro1111/audio-cnn-visualizer/internal/config"
	"github.com/skypro1111/audio-cnn-visualizer/internal/metrics"
	"github.com/skypro1111/audio-cnn-visualizer/internal/render"
	"github.com/skypro1111/audio-cnn-visualizer/internal/scale"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "audio-cnn-visualizer"
	serviceVersion    = "1.0.0"
)

var rootCmd = &cobra.Command{
	Use:     "audioviz",
	Short:   "Visualize audio classifier predictions and layer activations",
	Version: serviceVersion,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file")
	rootCmd.AddCommand(serveCmd, analyzeCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config. When optional is set and no path was given,
// defaults are returned without validation.
func loadConfig(cmd *cobra.Command, optional bool) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" && optional {
		return config.Defaults(), nil
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newAnalyzer builds the render pipeline from configuration
func newAnalyzer(cfg *config.Config, inferrer analysis.Inferrer, logger *slog.Logger, m *metrics.Metrics) (*analysis.Analyzer, scale.Scale, error) {
	s, err := scale.New(cfg.Render.ScaleMin, cfg.Render.ScaleMax)
	if err != nil {
		return nil, scale.Scale{}, fmt.Errorf("invalid colour scale: %w", err)
	}

	analyzer := analysis.NewAnalyzer(inferrer, analysis.Config{
		Scale: s,
		Render: render.Options{
			MaxRows: cfg.Render.MaxRows,
			MaxCols: cfg.Render.MaxCols,
		},
		Workers:        cfg.Render.Workers,
		TopPredictions: cfg.Render.TopPredictions,
	}, logger, m)

	return analyzer, s, nil
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
