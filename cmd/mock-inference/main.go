// Command mock-inference serves a stand-in classifier that returns
// deterministic predictions and synthetic layer activations for any WAV upload
package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/skypro1111/audio-cnn-visualizer/internal/audio"
	"github.com/skypro1111/audio-cnn-visualizer/internal/codec"
)

const maxRequestBytes = 100 << 20

var rootCmd = &cobra.Command{
	Use:   "mock-inference",
	Short: "Serve a fake audio classifier on /inference",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("address", ":9000", "listen address")
	rootCmd.Flags().Duration("latency", 200*time.Millisecond, "simulated processing time")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	address, _ := cmd.Flags().GetString("address")
	latency, _ := cmd.Flags().GetDuration("latency")

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/inference", inferenceHandler(logger, latency))

	logger.Info("Mock inference server starting",
		"address", address,
		"endpoint", "http://localhost"+address+"/inference")

	return http.ListenAndServe(address, mux)
}

func inferenceHandler(logger *slog.Logger, latency time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req codec.Request
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}

		raw, err := codec.DecodeAudio(req.AudioData)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		samples, info, err := audio.Decode(raw)
		if err != nil {
			logger.Warn("Rejected upload", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		logger.Info("Inference request received",
			"size", humanize.Bytes(uint64(len(raw))),
			"sample_rate", info.SampleRate,
			"channels", info.Channels,
			"duration", info.Duration)

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}

		resp := infer(samples, info)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Failed to write response", "error", err)
			return
		}

		logger.Info("Inference response sent",
			"top_class", resp.Predictions[0].Class,
			"layers", resp.Visualization.Len())
	}
}
