package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file
const (
	EnvInferenceURL = "INFERENCE_URL"
	EnvLogLevel     = "LOG_LEVEL"
	EnvPort         = "PORT"
)

// Config represents the complete service configuration
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Inference InferenceConfig `yaml:"inference"`
	Render    RenderConfig    `yaml:"render"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	Address         string   `yaml:"address"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ReadTimeout     int      `yaml:"read_timeout"`     // seconds
	WriteTimeout    int      `yaml:"write_timeout"`    // seconds
	ShutdownTimeout int      `yaml:"shutdown_timeout"` // seconds
}

// InferenceConfig contains inference service configuration
type InferenceConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// RenderConfig contains grid rendering parameters
type RenderConfig struct {
	ScaleMin       float64 `yaml:"scale_min"`
	ScaleMax       float64 `yaml:"scale_max"`
	MaxRows        int     `yaml:"max_rows"` // 0 = unbounded
	MaxCols        int     `yaml:"max_cols"` // 0 = unbounded
	Workers        int     `yaml:"workers"`
	TopPredictions int     `yaml:"top_predictions"`
}

// SessionConfig contains viewer session parameters
type SessionConfig struct {
	Timeout int `yaml:"timeout"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Defaults returns the configuration used for keys missing from the file
func Defaults() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:            8080,
			Address:         "0.0.0.0",
			MaxUploadBytes:  50 << 20,
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     30,
			WriteTimeout:    180,
			ShutdownTimeout: 30,
		},
		Inference: InferenceConfig{
			Timeout:       120,
			MaxRetries:    0,
			MaxConcurrent: 4,
		},
		Render: RenderConfig{
			ScaleMin:       -1,
			ScaleMax:       1,
			MaxRows:        128,
			MaxCols:        512,
			Workers:        4,
			TopPredictions: 3,
		},
		Session: SessionConfig{
			Timeout: 1800,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file on top of Defaults, applies .env and
// environment overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	config := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// applyEnv merges non-empty environment overrides into c
func (c *Config) applyEnv() error {
	var overrides Config
	overrides.Inference.Endpoint = os.Getenv(EnvInferenceURL)
	overrides.Logging.Level = os.Getenv(EnvLogLevel)

	if port := os.Getenv(EnvPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, port, err)
		}
		overrides.HTTP.Port = p
	}

	if err := mergo.Merge(c, overrides, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Inference.Validate(); err != nil {
		return fmt.Errorf("inference config: %w", err)
	}

	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("render config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("http address cannot be empty")
	}

	if h.MaxUploadBytes < 1024 {
		return fmt.Errorf("max_upload_bytes must be at least 1024 bytes, got %d", h.MaxUploadBytes)
	}

	if h.ReadTimeout < 0 || h.WriteTimeout < 0 || h.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	return nil
}

// Validate validates inference configuration
func (i *InferenceConfig) Validate() error {
	if i.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty (set inference.endpoint or %s)", EnvInferenceURL)
	}

	if i.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", i.Timeout)
	}

	if i.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", i.MaxRetries)
	}

	if i.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", i.MaxConcurrent)
	}

	return nil
}

// Validate validates render configuration
func (r *RenderConfig) Validate() error {
	if r.ScaleMax <= r.ScaleMin {
		return fmt.Errorf("scale_max (%g) must be greater than scale_min (%g)", r.ScaleMax, r.ScaleMin)
	}

	if r.MaxRows < 0 || r.MaxCols < 0 {
		return fmt.Errorf("max_rows and max_cols cannot be negative, got %d and %d", r.MaxRows, r.MaxCols)
	}

	if r.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", r.Workers)
	}

	if r.TopPredictions < 1 {
		return fmt.Errorf("top_predictions must be at least 1, got %d", r.TopPredictions)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}
	return nil
}

// Validate validates logging configuration. Output may be stdout, stderr or a file path.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the inference timeout as a time.Duration
func (i *InferenceConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(i.Timeout) * time.Second
}

// GetTimeoutDuration returns the session idle timeout as a time.Duration
func (s *SessionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetReadTimeoutDuration returns the HTTP read timeout as a time.Duration
func (h *HTTPConfig) GetReadTimeoutDuration() time.Duration {
	return time.Duration(h.ReadTimeout) * time.Second
}

// GetWriteTimeoutDuration returns the HTTP write timeout as a time.Duration
func (h *HTTPConfig) GetWriteTimeoutDuration() time.Duration {
	return time.Duration(h.WriteTimeout) * time.Second
}

// GetShutdownTimeoutDuration returns the graceful shutdown timeout as a time.Duration
func (h *HTTPConfig) GetShutdownTimeoutDuration() time.Duration {
	return time.Duration(h.ShutdownTimeout) * time.Second
}
