// Package config provides configuration loading and validation for the
// visualizer. A YAML file is read on top of built-in defaults, then .env and
// the INFERENCE_URL, LOG_LEVEL and PORT environment variables are applied.
package config
