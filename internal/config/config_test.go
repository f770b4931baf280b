package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
source:
  page_url_pattern: "https://ratings.example.com/players?page=%d"
  user_agent: futdex-test
http:
  timeout_seconds: 45
  max_attempts: 3
  backoff_cap_ms: 30000
  retry_jitter_min_ms: 100
  retry_jitter_max_ms: 200
crawl:
  delay_min_ms: 10
  delay_max_ms: 20
  debug_page_cap: 5
storage:
  data_dir: /tmp/futdex
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Source.UserAgent != "futdex-test" {
		t.Fatalf("expected user agent override, got %q", cfg.Source.UserAgent)
	}
	if cfg.HTTP.MaxAttempts != 3 || cfg.HTTP.BackoffCapMs != 30000 {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if cfg.Crawl.DebugPageCap != 5 {
		t.Fatalf("expected debug cap 5, got %d", cfg.Crawl.DebugPageCap)
	}
	if cfg.Logging.Development {
		t.Fatal("expected development logging disabled")
	}
	if got := cfg.HTTPTimeout(); got != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %v", got)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  page_url_pattern: "https://ratings.example.com/players?page=%d"
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.MaxAttempts != 5 {
		t.Fatalf("expected default attempt budget 5, got %d", cfg.HTTP.MaxAttempts)
	}
	if cfg.HTTP.BackoffCapMs != 60000 {
		t.Fatalf("expected default backoff cap 60000ms, got %d", cfg.HTTP.BackoffCapMs)
	}
	if cfg.HTTP.RetryJitterMinMs != 2500 || cfg.HTTP.RetryJitterMaxMs != 4000 {
		t.Fatalf("expected default jitter window, got %+v", cfg.HTTP)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	valid := Config{
		Server:  ServerConfig{Port: 8080},
		Source:  SourceConfig{PageURLPattern: "https://x/p?page=%d"},
		HTTP:    HTTPConfig{TimeoutSeconds: 10, MaxAttempts: 5, RetryJitterMinMs: 1, RetryJitterMaxMs: 2},
		Storage: StorageConfig{DataDir: "data"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing pattern", func(c *Config) { c.Source.PageURLPattern = "" }},
		{"two placeholders", func(c *Config) { c.Source.PageURLPattern = "https://x/%d/%d" }},
		{"zero attempts", func(c *Config) { c.HTTP.MaxAttempts = 0 }},
		{"inverted jitter", func(c *Config) { c.HTTP.RetryJitterMinMs = 9; c.HTTP.RetryJitterMaxMs = 1 }},
		{"negative cap", func(c *Config) { c.Crawl.DebugPageCap = -1 }},
		{"no data dir", func(c *Config) { c.Storage.DataDir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
