package config

import (
	"fmt"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Transcription strategies accepted by TRANSCRIBE_STRATEGY.
const (
	StrategyMock = "mock"
	StrategyHTTP = "http"
)

// Config holds the configuration for the journal service.
// Environment variables are parsed from the UNPOSTED_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8765"`

	// Storage Configuration. SQLitePath is derived from DataDir when empty.
	DataDir    string `envconfig:"DATA_DIR" default:"./data"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:""`

	// Transcription collaborator
	TranscribeStrategy   string `envconfig:"TRANSCRIBE_STRATEGY" default:"mock"`
	TranscribeURL        string `envconfig:"TRANSCRIBE_URL" default:"http://localhost:11434/api/transcribe"`
	TranscribeAPIKey     string `envconfig:"TRANSCRIBE_API_KEY" default:""`
	TranscribeTimeoutSec int    `envconfig:"TRANSCRIBE_TIMEOUT_SEC" default:"120"`

	// Insights collaborator (chat-completions style endpoint)
	InsightsURL    string `envconfig:"INSIGHTS_URL" default:"http://localhost:11434/v1/chat/completions"`
	InsightsModel  string `envconfig:"INSIGHTS_MODEL" default:"gemma3:4b"`
	InsightsAPIKey string `envconfig:"INSIGHTS_API_KEY" default:""`

	// Encryption at rest for audio payloads
	EnableEncryption bool   `envconfig:"ENABLE_ENCRYPTION" default:"false"`
	Passphrase       string `envconfig:"PASSPHRASE" default:""`

	// Capture device (ffmpeg input)
	CaptureFormat     string `envconfig:"CAPTURE_FORMAT" default:"pulse"`
	CaptureDevice     string `envconfig:"CAPTURE_DEVICE" default:"default"`
	CaptureSampleRate int    `envconfig:"CAPTURE_SAMPLE_RATE" default:"16000"`
	CaptureChannels   int    `envconfig:"CAPTURE_CHANNELS" default:"1"`
}

// ResolveDefaults validates the transcription strategy and derives the
// sqlite path from DataDir when it was not set explicitly.
func (c *Config) ResolveDefaults() error {
	if c.TranscribeStrategy == "" || c.TranscribeStrategy == "auto" {
		c.TranscribeStrategy = StrategyMock
	}
	switch c.TranscribeStrategy {
	case StrategyMock, StrategyHTTP:
	default:
		return fmt.Errorf("unsupported TRANSCRIBE_STRATEGY: %s", c.TranscribeStrategy)
	}

	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "unposted.db")
	}

	if c.EnableEncryption && c.Passphrase == "" {
		return fmt.Errorf("ENABLE_ENCRYPTION requires PASSPHRASE to be set")
	}
	return nil
}

// New creates a Config by parsing environment variables.
// Variables are prefixed with UNPOSTED_, e.g. UNPOSTED_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("UNPOSTED", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("sqlite_path", cfg.SQLitePath).
		Str("transcribe_strategy", cfg.TranscribeStrategy).
		Bool("encryption", cfg.EnableEncryption).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:          EnvTesting,
		LogLevel:             "debug",
		HTTPPort:             8765,
		DataDir:              ".",
		SQLitePath:           "file::memory:?cache=shared",
		TranscribeStrategy:   StrategyMock,
		TranscribeTimeoutSec: 5,
		CaptureFormat:        "lavfi",
		CaptureDevice:        "anullsrc",
		CaptureSampleRate:    16000,
		CaptureChannels:      1,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
