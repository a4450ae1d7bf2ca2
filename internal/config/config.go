package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	CorpID                    string        `mapstructure:"corp_id"`
	CorpSecret                string        `mapstructure:"corp_secret"`
	APIBaseURL                string        `mapstructure:"api_base_url"`
	HTTPTimeoutSeconds        int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout               time.Duration `mapstructure:"-"`
	TokenRefreshMarginSeconds int64         `mapstructure:"token_refresh_margin_seconds"`
	TokenRefreshMargin        time.Duration `mapstructure:"-"`

	PublishersFile      string        `mapstructure:"publishers_file"`
	SyncIntervalSeconds int64         `mapstructure:"sync_interval"`
	SyncInterval        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	ContactTTLSeconds      int64         `mapstructure:"contact_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	ContactTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.CorpSecret != "" {
		c.CorpSecret = "*****"
	}
	return c
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "wework-crm")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("corp_id", "")
	v.SetDefault("corp_secret", "")
	v.SetDefault("api_base_url", "https://qyapi.weixin.qq.com/cgi-bin/")
	v.SetDefault("http_timeout_seconds", 10)
	v.SetDefault("token_refresh_margin_seconds", 300)
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("sync_interval", 3600) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/cache.db")
	v.SetDefault("contact_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) finalize() error {
	cfg.CorpID = strings.TrimSpace(cfg.CorpID)
	cfg.CorpSecret = strings.TrimSpace(cfg.CorpSecret)
	if cfg.CorpID == "" {
		return fmt.Errorf("corp_id is required")
	}
	if cfg.CorpSecret == "" {
		return fmt.Errorf("corp_secret is required")
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.TokenRefreshMarginSeconds < 0 {
		return fmt.Errorf("invalid token_refresh_margin_seconds (must not be negative)")
	}
	cfg.TokenRefreshMargin = time.Duration(cfg.TokenRefreshMarginSeconds) * time.Second

	if cfg.SyncIntervalSeconds <= 0 {
		return fmt.Errorf("invalid sync_interval (must be positive seconds)")
	}
	cfg.SyncInterval = time.Duration(cfg.SyncIntervalSeconds) * time.Second

	if cfg.ContactTTLSeconds <= 0 {
		return fmt.Errorf("invalid contact_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.ContactTTL = time.Duration(cfg.ContactTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}
