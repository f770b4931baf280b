// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Source  SourceConfig  `mapstructure:"source"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SourceConfig describes the remote site being harvested.
type SourceConfig struct {
	// PageURLPattern is a printf-style URL holding one %d for the 1-based
	// page number, e.g. "https://example.com/players?page=%d".
	PageURLPattern string `mapstructure:"page_url_pattern"`
	UserAgent      string `mapstructure:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language"`
}

// HTTPConfig configures fetch retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxAttempts      int `mapstructure:"max_attempts"`
	BackoffCapMs     int `mapstructure:"backoff_cap_ms"`
	RetryJitterMinMs int `mapstructure:"retry_jitter_min_ms"`
	RetryJitterMaxMs int `mapstructure:"retry_jitter_max_ms"`
}

// CrawlConfig governs the page walk.
type CrawlConfig struct {
	DelayMinMs   int `mapstructure:"delay_min_ms"`
	DelayMaxMs   int `mapstructure:"delay_max_ms"`
	DebugPageCap int `mapstructure:"debug_page_cap"`
}

// StorageConfig sets paths for checkpoint and archive persistence.
type StorageConfig struct {
	DataDir     string `mapstructure:"data_dir"`
	ArchivePath string `mapstructure:"archive_path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FUTDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("source.user_agent", "futdex-harvester/1.0")
	v.SetDefault("source.accept_language", "en-US,en;q=0.9")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_attempts", 5)
	v.SetDefault("http.backoff_cap_ms", 60000)
	v.SetDefault("http.retry_jitter_min_ms", 2500)
	v.SetDefault("http.retry_jitter_max_ms", 4000)
	v.SetDefault("crawl.delay_min_ms", 1500)
	v.SetDefault("crawl.delay_max_ms", 3500)
	v.SetDefault("crawl.debug_page_cap", 0)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.archive_path", "data/archive.db")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Source.PageURLPattern == "" {
		return fmt.Errorf("source.page_url_pattern is required")
	}
	if strings.Count(c.Source.PageURLPattern, "%d") != 1 {
		return fmt.Errorf("source.page_url_pattern must contain exactly one %%d")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.RetryJitterMinMs > c.HTTP.RetryJitterMaxMs {
		return fmt.Errorf("http.retry_jitter_min_ms must be <= retry_jitter_max_ms")
	}
	if c.Crawl.DelayMinMs > c.Crawl.DelayMaxMs {
		return fmt.Errorf("crawl.delay_min_ms must be <= delay_max_ms")
	}
	if c.Crawl.DebugPageCap < 0 {
		return fmt.Errorf("crawl.debug_page_cap must be >= 0")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	return nil
}

// HTTPTimeout converts the configured timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
