package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/skypro1111/audio-cnn-visualizer/internal/analysis"
	"github.com/skypro1111/audio-cnn-visualizer/internal/codec"
	"github.com/skypro1111/audio-cnn-visualizer/internal/config"
	"github.com/skypro1111/audio-cnn-visualizer/internal/console"
	"github.com/skypro1111/audio-cnn-visualizer/internal/inference"
	"github.com/skypro1111/audio-cnn-visualizer/internal/view"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.wav>",
	Short: "Send an audio file to the inference service and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <response.json>",
	Short: "Render a saved inference response without contacting the service",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	for _, cmd := range []*cobra.Command{analyzeCmd, inspectCmd} {
		cmd.Flags().Bool("json", false, "print the view as JSON instead of a terminal rendering")
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}
	logger.Info("Analyzing file",
		slog.String("file", args[0]),
		slog.String("size", humanize.Bytes(uint64(len(raw)))),
	)

	client, err := inference.NewClient(inference.Config{
		Endpoint:      cfg.Inference.Endpoint,
		Timeout:       cfg.Inference.GetTimeoutDuration(),
		MaxRetries:    cfg.Inference.MaxRetries,
		MaxConcurrent: 1,
	}, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create inference client: %w", err)
	}
	defer client.Close()

	analyzer, _, err := newAnalyzer(cfg, client, logger, nil)
	if err != nil {
		return err
	}

	v, err := analyzer.Analyze(cmd.Context(), raw, filepath.Base(args[0]))
	if err != nil {
		var failure *analysis.Failure
		if errors.As(err, &failure) {
			return fmt.Errorf("%s: %w", failure.UserMessage(), failure.Err)
		}
		return err
	}

	return writeView(cmd, v)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	var body []byte
	if args[0] == "-" {
		body, err = io.ReadAll(cmd.InOrStdin())
	} else {
		body, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	resp, err := codec.DecodeResponse(body)
	if err != nil {
		return err
	}

	analyzer, _, err := newAnalyzer(cfg, nil, logger, nil)
	if err != nil {
		return err
	}

	v := analyzer.Compose(cmd.Context(), resp)
	v.FileName = filepath.Base(args[0])

	return writeView(cmd, v)
}

// cliLogger keeps logs off stdout so rendered output stays clean
func cliLogger(cfg *config.Config) *slog.Logger {
	logging := cfg.Logging
	if logging.Output == "" || logging.Output == "stdout" {
		logging.Output = "stderr"
	}
	return initLogger(logging)
}

func writeView(cmd *cobra.Command, v *view.View) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return console.Write(cmd.OutOrStdout(), v)
}
