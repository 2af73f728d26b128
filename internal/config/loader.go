package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FAIRYDUST_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load. An empty path
// skips the file and uses defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FAIRYDUST_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Store ──
	setStr(&cfg.Store.Driver, "FAIRYDUST_STORE_DRIVER")
	setStr(&cfg.Store.DSN, "FAIRYDUST_STORE_DSN")
	setStr(&cfg.Store.Host, "FAIRYDUST_STORE_HOST")
	setInt(&cfg.Store.Port, "FAIRYDUST_STORE_PORT")
	setStr(&cfg.Store.Database, "FAIRYDUST_STORE_DATABASE")
	setStr(&cfg.Store.User, "FAIRYDUST_STORE_USER")
	setStr(&cfg.Store.Password, "FAIRYDUST_STORE_PASSWORD")
	setStr(&cfg.Store.SSLMode, "FAIRYDUST_STORE_SSLMODE")
	setInt(&cfg.Store.PoolMaxConns, "FAIRYDUST_STORE_POOL_MAX_CONNS")
	setInt(&cfg.Store.PoolMinConns, "FAIRYDUST_STORE_POOL_MIN_CONNS")
	setBool(&cfg.Store.RunMigrations, "FAIRYDUST_STORE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FAIRYDUST_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FAIRYDUST_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FAIRYDUST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FAIRYDUST_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FAIRYDUST_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FAIRYDUST_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FAIRYDUST_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "FAIRYDUST_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FAIRYDUST_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FAIRYDUST_S3_REGION")
	setStr(&cfg.S3.Bucket, "FAIRYDUST_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "FAIRYDUST_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "FAIRYDUST_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FAIRYDUST_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FAIRYDUST_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FAIRYDUST_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setStr(&cfg.Engine.CurrencyName, "FAIRYDUST_ENGINE_CURRENCY_NAME")
	setInt64(&cfg.Engine.StartingBalance, "FAIRYDUST_ENGINE_STARTING_BALANCE")
	setInt64(&cfg.Engine.DailyRewardMin, "FAIRYDUST_ENGINE_DAILY_REWARD_MIN")
	setInt64(&cfg.Engine.DailyRewardMax, "FAIRYDUST_ENGINE_DAILY_REWARD_MAX")
	setDuration(&cfg.Engine.DailyCooldown, "FAIRYDUST_ENGINE_DAILY_COOLDOWN")
	setDuration(&cfg.Engine.ConfirmTimeout, "FAIRYDUST_ENGINE_CONFIRM_TIMEOUT")
	setDuration(&cfg.Engine.LockInterval, "FAIRYDUST_ENGINE_LOCK_INTERVAL")

	// ── Server ──
	setInt(&cfg.Server.Port, "FAIRYDUST_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FAIRYDUST_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FAIRYDUST_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "FAIRYDUST_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "FAIRYDUST_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FAIRYDUST_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FAIRYDUST_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FAIRYDUST_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FAIRYDUST_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "FAIRYDUST_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
