// Package config defines the top-level configuration for the wagering
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FAIRYDUST_* environment
// variables.
type Config struct {
	Store    StoreConfig  `toml:"store"`
	Redis    RedisConfig  `toml:"redis"`
	S3       S3Config     `toml:"s3"`
	Engine   EngineConfig `toml:"engine"`
	Server   ServerConfig `toml:"server"`
	Notify   NotifyConfig `toml:"notify"`
	LogLevel string       `toml:"log_level"`
}

// StoreConfig selects and parameterizes the persistence backend. The
// "memory" driver keeps everything in process and needs no other fields;
// "postgres" uses the connection parameters below.
type StoreConfig struct {
	Driver        string `toml:"driver"` // "postgres" or "memory"
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis backs the market
// cache, the distributed placement locks, the signal bus, and API rate
// limiting; it is required with the postgres store driver.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for settlement
// report archival. When disabled, reports are not archived.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EngineConfig holds the economy and protocol parameters.
type EngineConfig struct {
	CurrencyName    string   `toml:"currency_name"`
	StartingBalance int64    `toml:"starting_balance"`
	DailyRewardMin  int64    `toml:"daily_reward_min"`
	DailyRewardMax  int64    `toml:"daily_reward_max"`
	DailyCooldown   duration `toml:"daily_cooldown"`
	ConfirmTimeout  duration `toml:"confirm_timeout"`
	LockInterval    duration `toml:"lock_interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "15s", "24h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Store: StoreConfig{
			Driver:        "memory",
			Host:          "localhost",
			Port:          5432,
			Database:      "fairydust",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "fairydust-settlements",
			Prefix:         "settlements",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Engine: EngineConfig{
			CurrencyName:    "fairydust",
			StartingBalance: 1000,
			DailyRewardMin:  1,
			DailyRewardMax:  100,
			DailyCooldown:   duration{24 * time.Hour},
			ConfirmTimeout:  duration{15 * time.Second},
			LockInterval:    duration{60 * time.Second},
		},
		Server: ServerConfig{
			Port:       8080,
			RateLimit:  0,
			RateWindow: duration{time.Second},
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validStoreDrivers = map[string]bool{
	"postgres": true,
	"memory":   true,
}

// Validate checks the configuration for inconsistencies and returns an
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validStoreDrivers[strings.ToLower(c.Store.Driver)] {
		errs = append(errs, fmt.Sprintf("store: unknown driver %q (valid: postgres, memory)", c.Store.Driver))
	}
	if strings.ToLower(c.Store.Driver) == "postgres" {
		if c.Store.DSN == "" && (c.Store.Host == "" || c.Store.Database == "" || c.Store.User == "") {
			errs = append(errs, "store: either dsn or host/database/user must be set for the postgres driver")
		}
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if c.Engine.StartingBalance < 0 {
		errs = append(errs, "engine: starting_balance must not be negative")
	}
	if c.Engine.DailyRewardMin < 1 {
		errs = append(errs, "engine: daily_reward_min must be at least 1")
	}
	if c.Engine.DailyRewardMax < c.Engine.DailyRewardMin {
		errs = append(errs, "engine: daily_reward_max must be >= daily_reward_min")
	}
	if c.Engine.ConfirmTimeout.Duration <= 0 {
		errs = append(errs, "engine: confirm_timeout must be positive")
	}
	if c.Engine.LockInterval.Duration <= 0 {
		errs = append(errs, "engine: lock_interval must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: invalid port %d", c.Server.Port))
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be positive when rate_limit is set")
	}
	if c.Server.RateLimit > 0 && !c.Redis.Enabled {
		errs = append(errs, "server: rate_limit requires redis to be enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
