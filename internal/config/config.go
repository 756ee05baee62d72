// Package config provides configuration loading for docmark. Defaults live
// in code; a YAML file overrides them, and the API key comes from the
// environment (optionally via a .env file).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spherical/docmark/internal/domain"
)

// Config holds all docmark configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Models     ModelsConfig     `yaml:"models"`
	Render     RenderConfig     `yaml:"render"`
	Retry      RetryConfig      `yaml:"retry"`
	Backend    BackendConfig    `yaml:"backend"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// ModelsConfig assigns a model to each pipeline role.
type ModelsConfig struct {
	Detection     domain.Model `yaml:"detection"`
	Description   domain.Model `yaml:"description"`
	Generation    domain.Model `yaml:"generation"`
	Transcription domain.Model `yaml:"transcription"`
	Synthesis     domain.Model `yaml:"synthesis"`
	Merge         domain.Model `yaml:"merge"`
}

// RenderConfig holds page rasterization settings.
type RenderConfig struct {
	Scale       float64 `yaml:"scale"`
	GridOverlay bool    `yaml:"grid_overlay"`
}

// RetryConfig bounds backend retries.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// BackendConfig holds backend call settings.
type BackendConfig struct {
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

// TranscriptConfig holds the diagnostic transcript location.
type TranscriptConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Models: ModelsConfig{
			Detection:     domain.Model{ID: "claude-sonnet-4-5-20250929"},
			Description:   domain.Model{ID: "claude-sonnet-4-5-20250929"},
			Generation:    domain.Model{ID: "claude-sonnet-4-5-20250929"},
			Transcription: domain.Model{ID: "claude-opus-4-5-20251101", ExtendedReasoning: true},
			Synthesis:     domain.Model{ID: "claude-opus-4-5-20251101", ExtendedReasoning: true},
			Merge:         domain.Model{ID: "claude-opus-4-5-20251101", ExtendedReasoning: true},
		},
		Render: RenderConfig{Scale: 2.0, GridOverlay: true},
		Retry: RetryConfig{
			MaxAttempts:    5,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     60 * time.Second,
		},
		Backend: BackendConfig{
			APIKeyEnv: "ANTHROPIC_API_KEY",
			Timeout:   20 * time.Minute,
		},
		Transcript: TranscriptConfig{Path: "./llm_outputs.log"},
	}
}

// Load returns the default configuration overridden by the YAML file at
// path. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// APIKey resolves the backend API key from the environment.
func (c Config) APIKey() (string, error) {
	key := os.Getenv(c.Backend.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s not set", c.Backend.APIKeyEnv)
	}
	return key, nil
}
