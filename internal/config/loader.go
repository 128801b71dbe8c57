// Package config loads runtime parameters from YAML, JSON or TOML files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`

	// Engine adapters.
	WhisperBin       string `json:"whisper_bin" yaml:"whisper_bin" toml:"whisper_bin"`
	WhisperServerURL string `json:"whisper_server_url" yaml:"whisper_server_url" toml:"whisper_server_url"`
	Threads          int    `json:"threads" yaml:"threads" toml:"threads"`

	// Model cache limits.
	MaxCachedModels  int     `json:"max_cached_models" yaml:"max_cached_models" toml:"max_cached_models"`
	VRAMLimitPercent float64 `json:"vram_limit_percent" yaml:"vram_limit_percent" toml:"vram_limit_percent"`

	// Job execution.
	Workers    int `json:"workers" yaml:"workers" toml:"workers"`
	QueueDepth int `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth"`
	MaxJobs    int `json:"max_jobs" yaml:"max_jobs" toml:"max_jobs"`

	// Request handling.
	MaxUploadMB    int      `json:"max_upload_mb" yaml:"max_upload_mb" toml:"max_upload_mb"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`

	// Request defaults when the submission omits them.
	DefaultEngine    string `json:"default_engine" yaml:"default_engine" toml:"default_engine"`
	DefaultModelSize string `json:"default_model_size" yaml:"default_model_size" toml:"default_model_size"`

	PresetsDir string `json:"presets_dir" yaml:"presets_dir" toml:"presets_dir"`
	LogLevel   string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Defaults returns the configuration used when no file or flag overrides
// a field.
func Defaults() Config {
	return Config{
		Addr:             ":8000",
		ModelsDir:        "models",
		WhisperBin:       "whisper-cli",
		Threads:          4,
		MaxCachedModels:  3,
		VRAMLimitPercent: 80,
		Workers:          2,
		QueueDepth:       64,
		MaxJobs:          100,
		MaxUploadMB:      500,
		DefaultEngine:    "whisper-cpp",
		DefaultModelSize: "base",
		PresetsDir:       "presets",
		LogLevel:         "info",
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge overlays the non-zero fields of over onto base and returns the
// result. Used to stack defaults, file values and flag values in order.
func Merge(base, over Config) Config {
	out := base
	if over.Addr != "" {
		out.Addr = over.Addr
	}
	if over.ModelsDir != "" {
		out.ModelsDir = over.ModelsDir
	}
	if over.WhisperBin != "" {
		out.WhisperBin = over.WhisperBin
	}
	if over.WhisperServerURL != "" {
		out.WhisperServerURL = over.WhisperServerURL
	}
	if over.Threads > 0 {
		out.Threads = over.Threads
	}
	if over.MaxCachedModels > 0 {
		out.MaxCachedModels = over.MaxCachedModels
	}
	if over.VRAMLimitPercent > 0 {
		out.VRAMLimitPercent = over.VRAMLimitPercent
	}
	if over.Workers > 0 {
		out.Workers = over.Workers
	}
	if over.QueueDepth > 0 {
		out.QueueDepth = over.QueueDepth
	}
	if over.MaxJobs > 0 {
		out.MaxJobs = over.MaxJobs
	}
	if over.MaxUploadMB > 0 {
		out.MaxUploadMB = over.MaxUploadMB
	}
	if len(over.AllowedOrigins) > 0 {
		out.AllowedOrigins = over.AllowedOrigins
	}
	if over.DefaultEngine != "" {
		out.DefaultEngine = over.DefaultEngine
	}
	if over.DefaultModelSize != "" {
		out.DefaultModelSize = over.DefaultModelSize
	}
	if over.PresetsDir != "" {
		out.PresetsDir = over.PresetsDir
	}
	if over.LogLevel != "" {
		out.LogLevel = over.LogLevel
	}
	return out
}

// Validate rejects values the service cannot run with.
func Validate(cfg Config) error {
	if cfg.VRAMLimitPercent < 0 || cfg.VRAMLimitPercent > 100 {
		return fmt.Errorf("vram_limit_percent must be within 0..100, got %v", cfg.VRAMLimitPercent)
	}
	if cfg.MaxCachedModels < 1 {
		return fmt.Errorf("max_cached_models must be at least 1, got %d", cfg.MaxCachedModels)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1, got %d", cfg.MaxUploadMB)
	}
	return nil
}
