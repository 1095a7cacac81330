// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides endpoint configuration for the FinOps client SDK.
//
// Configuration is read once at startup and is immutable afterwards.
// Sources, in order of precedence:
//   - FINOPS_* environment variables
//   - optional TOML file named by FINOPS_CONFIG_FILE
//   - built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultBaseURL points at a locally running analytics backend.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultAPIVersion is the backend API version prefix.
	DefaultAPIVersion = "v1"

	// DefaultTimeoutMS is the per-attempt request deadline.
	DefaultTimeoutMS = 30000

	// DefaultMaxRetries is the retry budget for retryable failures.
	DefaultMaxRetries = 3

	// DefaultRetryDelayMS is the base delay for exponential backoff.
	DefaultRetryDelayMS = 1000

	// DefaultAWSRegion is the region used for AI query generation.
	DefaultAWSRegion = "us-east-1"

	// DefaultModelID is the Bedrock model used for SQL generation.
	DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

	// ConfigFileEnvVar names an optional TOML overlay file.
	ConfigFileEnvVar = "FINOPS_CONFIG_FILE"

	// envPrefix is the prefix for all environment variables.
	envPrefix = "finops"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config holds the endpoint configuration for the analytics backend.
// Built once by Load; treat values as read-only after that.
type Config struct {
	// BaseURL is the backend origin, without the API version prefix.
	BaseURL string `envconfig:"BASE_URL" toml:"base_url"`

	// APIVersion is the version segment of API paths ("v1").
	APIVersion string `envconfig:"API_VERSION" toml:"api_version"`

	// APIKey, when set, is sent as a bearer token on every request.
	APIKey string `envconfig:"API_KEY" toml:"api_key"`

	// AWSRegion is forwarded to the AI query-generation endpoint.
	AWSRegion string `envconfig:"AWS_REGION" toml:"aws_region"`

	// ModelID selects the Bedrock model for AI query generation.
	ModelID string `envconfig:"MODEL_ID" toml:"model_id"`

	// AIEnabled gates the AI endpoints client-side.
	AIEnabled bool `envconfig:"AI_ENABLED" toml:"ai_enabled"`

	// Debug enables request/response diagnostic logging.
	Debug bool `envconfig:"DEBUG" toml:"debug"`

	// TimeoutMS is the per-attempt deadline in milliseconds.
	TimeoutMS int `envconfig:"TIMEOUT_MS" toml:"timeout_ms"`

	// MaxRetries is the retry budget for retryable failures.
	MaxRetries int `envconfig:"MAX_RETRIES" toml:"max_retries"`

	// RetryDelayMS is the backoff base delay in milliseconds.
	RetryDelayMS int `envconfig:"RETRY_DELAY_MS" toml:"retry_delay_ms"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		APIVersion:   DefaultAPIVersion,
		AWSRegion:    DefaultAWSRegion,
		ModelID:      DefaultModelID,
		AIEnabled:    true,
		TimeoutMS:    DefaultTimeoutMS,
		MaxRetries:   DefaultMaxRetries,
		RetryDelayMS: DefaultRetryDelayMS,
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load builds the configuration from defaults, the optional TOML overlay,
// and FINOPS_* environment variables, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnvVar); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	// Environment wins over the file; envconfig leaves fields untouched
	// when the corresponding variable is unset.
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile applies a TOML overlay on top of cfg.
func loadFile(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// validate normalizes the configuration. Out-of-range numerics are clamped
// to defaults rather than rejected so a bad environment cannot brick the
// dashboard.
func (c *Config) validate() error {
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}

	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = DefaultTimeoutMS
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelayMS <= 0 {
		c.RetryDelayMS = DefaultRetryDelayMS
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// APIURL returns the versioned API root, e.g. "http://host/api/v1".
func (c Config) APIURL() string {
	return c.BaseURL + "/api/" + c.APIVersion
}

// HealthURL returns the backend health endpoint.
func (c Config) HealthURL() string {
	return c.BaseURL + "/health"
}

// Timeout returns the per-attempt deadline as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RetryDelay returns the backoff base delay as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}
