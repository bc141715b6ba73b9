package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	BackendsFile string `mapstructure:"backends_file"`
	SinksFile    string `mapstructure:"sinks_file"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	EditionSize   int `mapstructure:"edition_size"`
	HeadlineCount int `mapstructure:"headline_count"`
	CategoryQuota int `mapstructure:"category_quota"`

	ExplainTimeoutSeconds int64         `mapstructure:"explain_timeout_seconds"`
	ExplainDebounceMs     int64         `mapstructure:"explain_debounce_ms"`
	ExplainTimeout        time.Duration `mapstructure:"-"`
	ExplainDebounce       time.Duration `mapstructure:"-"`

	PollIntervalSeconds int64         `mapstructure:"poll_interval_seconds"`
	PollMaxAttempts     int           `mapstructure:"poll_max_attempts"`
	PollBackoffFactor   float64       `mapstructure:"poll_backoff_factor"`
	PollInterval        time.Duration `mapstructure:"-"`

	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-news-narrator")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("backends_file", "./configs/backends.yaml")
	v.SetDefault("sinks_file", "./configs/sinks.yaml")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/prefs.db")
	v.SetDefault("edition_size", 12)
	v.SetDefault("headline_count", 10)
	v.SetDefault("category_quota", 3)
	v.SetDefault("explain_timeout_seconds", 30)
	v.SetDefault("explain_debounce_ms", 150)
	v.SetDefault("poll_interval_seconds", 2)
	v.SetDefault("poll_max_attempts", 30)
	v.SetDefault("poll_backoff_factor", 1.5)
	v.SetDefault("request_timeout_seconds", 15)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.EditionSize <= 0 {
		return nil, fmt.Errorf("invalid edition_size (must be positive)")
	}
	if cfg.HeadlineCount <= 0 {
		return nil, fmt.Errorf("invalid headline_count (must be positive)")
	}
	if cfg.CategoryQuota <= 0 {
		return nil, fmt.Errorf("invalid category_quota (must be positive)")
	}
	if cfg.ExplainTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid explain_timeout_seconds (must be positive seconds)")
	}
	if cfg.PollIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid poll_interval_seconds (must be positive seconds)")
	}
	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("invalid poll_max_attempts (must be positive)")
	}
	if cfg.PollBackoffFactor < 1 {
		return nil, fmt.Errorf("invalid poll_backoff_factor (must be >= 1)")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}

	cfg.ExplainTimeout = time.Duration(cfg.ExplainTimeoutSeconds) * time.Second
	cfg.ExplainDebounce = time.Duration(cfg.ExplainDebounceMs) * time.Millisecond
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	return &cfg, nil
}
