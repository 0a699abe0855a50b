// Package config loads the batch engine configuration from a YAML file with
// environment overrides. HTTP basic credentials are environment-only and
// never read from the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by Load. BH_HTTP_USER and BH_HTTP_PASS
// carry the portal's basic-auth credentials.
const (
	EnvBaseURL        = "BH_BASE_URL"
	EnvHTTPUser       = "BH_HTTP_USER"
	EnvHTTPPass       = "BH_HTTP_PASS"
	EnvForceSSLVerify = "BH_FORCE_SSL_VERIFY"
)

// Config holds the full batch engine configuration.
type Config struct {
	BaseURL     string      `yaml:"base_url"`
	VerifyTLS   bool        `yaml:"verify_tls"`
	User        string      `yaml:"user"`
	Concurrency int         `yaml:"concurrency"`
	Retry       RetryConfig `yaml:"retry"`
	LogDir      string      `yaml:"log_dir"`
	LogLevel    string      `yaml:"log_level"`

	// Credentials come from the environment only.
	HTTPUser string `yaml:"-"`
	HTTPPass string `yaml:"-"`
}

// RetryConfig configures per-operation retry behavior.
type RetryConfig struct {
	MaxAttempts           int `yaml:"max_attempts"`
	DelaySeconds          int `yaml:"delay_seconds"`
	AttemptTimeoutSeconds int `yaml:"attempt_timeout_seconds"`
}

// Delay returns the fixed inter-attempt delay.
func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelaySeconds) * time.Second
}

// AttemptTimeout returns the per-attempt timeout.
func (r RetryConfig) AttemptTimeout() time.Duration {
	return time.Duration(r.AttemptTimeoutSeconds) * time.Second
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://blackhole.ip.qwest.net/",
		VerifyTLS:   false,
		Concurrency: 5,
		Retry: RetryConfig{
			MaxAttempts:           3,
			DelaySeconds:          2,
			AttemptTimeoutSeconds: 30,
		},
		LogDir:   "logs",
		LogLevel: "info",
	}
}

// Load reads the YAML config at path, merges it over the defaults and then
// applies environment overrides. An empty path skips the file and uses
// defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	c.HTTPUser = os.Getenv(EnvHTTPUser)
	c.HTTPPass = os.Getenv(EnvHTTPPass)
	if v := os.Getenv(EnvForceSSLVerify); v != "" {
		if force, err := strconv.ParseBool(v); err == nil && force {
			c.VerifyTLS = true
		}
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Retry.DelaySeconds < 0 {
		return fmt.Errorf("retry.delay_seconds must be >= 0")
	}
	if c.Retry.AttemptTimeoutSeconds <= 0 {
		return fmt.Errorf("retry.attempt_timeout_seconds must be > 0")
	}
	if c.LogDir == "" {
		return fmt.Errorf("log_dir is required")
	}
	return nil
}
