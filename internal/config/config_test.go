package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bhbatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvHTTPUser, "")
	t.Setenv(EnvHTTPPass, "")
	t.Setenv(EnvForceSSLVerify, "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", cfg.Concurrency)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.Delay() != 2*time.Second || cfg.Retry.AttemptTimeout() != 30*time.Second {
		t.Errorf("Retry = %+v, want 3 attempts / 2s delay / 30s timeout", cfg.Retry)
	}
	if cfg.VerifyTLS {
		t.Error("VerifyTLS should default to false")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
base_url: https://portal.example.net/
verify_tls: true
user: jdoe
concurrency: 10
retry:
  max_attempts: 5
  delay_seconds: 1
  attempt_timeout_seconds: 15
log_dir: /var/log/bhbatch
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "https://portal.example.net/" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if !cfg.VerifyTLS || cfg.User != "jdoe" || cfg.Concurrency != 10 {
		t.Errorf("Config = %+v", cfg)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.DelaySeconds != 1 || cfg.Retry.AttemptTimeoutSeconds != 15 {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.LogDir != "/var/log/bhbatch" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBaseURL, "https://override.example.net/")
	t.Setenv(EnvHTTPUser, "svc-account")
	t.Setenv(EnvHTTPPass, "s3cret")
	t.Setenv(EnvForceSSLVerify, "1")

	path := writeConfig(t, "base_url: https://file.example.net/\nverify_tls: false\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "https://override.example.net/" {
		t.Errorf("BaseURL = %q, want env override", cfg.BaseURL)
	}
	if cfg.HTTPUser != "svc-account" || cfg.HTTPPass != "s3cret" {
		t.Errorf("Credentials = %q/%q, want env values", cfg.HTTPUser, cfg.HTTPPass)
	}
	if !cfg.VerifyTLS {
		t.Error("VerifyTLS should be forced on by env")
	}
}

func TestLoad_CredentialsNeverFromFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "http_user: from-file\nhttp_pass: from-file\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPUser != "" || cfg.HTTPPass != "" {
		t.Errorf("Credentials = %q/%q, want empty (env-only)", cfg.HTTPUser, cfg.HTTPPass)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base_url", func(c *Config) { c.BaseURL = "" }},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://x/" }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"negative delay", func(c *Config) { c.Retry.DelaySeconds = -1 }},
		{"zero timeout", func(c *Config) { c.Retry.AttemptTimeoutSeconds = 0 }},
		{"empty log_dir", func(c *Config) { c.LogDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}
