package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/audio-cnn-visualizer/internal/config"
	"github.com/skypro1111/audio-cnn-visualizer/internal/view"
)

const sampleResponse = `{
	"predictions": [
		{"class": "dog", "confidence": 0.82},
		{"class": "rain", "confidence": 0.11},
		{"class": "clock_tick", "confidence": 0.04}
	],
	"visualization": {
		"conv1": {"shape": [2, 2], "values": [[0.5, -0.5], [1, -1]]},
		"conv1.relu": {"shape": [2, 2], "values": [[0.5, 0], [1, 0]]}
	},
	"input_spectrogram": {"shape": [2, 3], "values": [[0, 0.5, 1], [-1, -0.5, 0]]},
	"waveform": {"values": [0, 0.25, -0.25, 0], "duration": 1.5, "sample_rate": 16000}
}`

func TestInitLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := initLogger(config.LoggingConfig{Level: tt.level, Format: "json", Output: "stderr"})
			if !logger.Enabled(context.Background(), tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-1) {
				t.Errorf("level below %s should be disabled", tt.want)
			}
		})
	}
}

func TestNewAnalyzerRejectsBadScale(t *testing.T) {
	cfg := config.Defaults()
	cfg.Render.ScaleMin = 1
	cfg.Render.ScaleMax = -1

	_, _, err := newAnalyzer(cfg, nil, slog.Default(), nil)
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "response.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleResponse), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"inspect", "--json", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	var v view.View
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))

	assert.Equal(t, "response.json", v.FileName)
	require.Len(t, v.Predictions, 3)
	assert.Equal(t, "dog", v.Predictions[0].Class)
	require.Len(t, v.Layers, 1)
	assert.Equal(t, "conv1", v.Layers[0].Name)
	require.Len(t, v.Layers[0].Internals, 1)
	assert.Equal(t, "relu", v.Layers[0].Internals[0].ShortName)
	assert.Empty(t, v.Diagnostics)
}
