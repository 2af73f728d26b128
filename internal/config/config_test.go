package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/lunabets/fairydust/internal/config"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := config.Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() on defaults: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "unknown store driver",
			mutate:  func(c *config.Config) { c.Store.Driver = "sqlite" },
			wantErr: "unknown driver",
		},
		{
			name: "postgres without connection details",
			mutate: func(c *config.Config) {
				c.Store.Driver = "postgres"
				c.Store.DSN = ""
				c.Store.Host = ""
			},
			wantErr: "dsn or host",
		},
		{
			name:    "bad log level",
			mutate:  func(c *config.Config) { c.LogLevel = "trace" },
			wantErr: "log_level",
		},
		{
			name: "redis enabled without addr",
			mutate: func(c *config.Config) {
				c.Redis.Enabled = true
				c.Redis.Addr = ""
			},
			wantErr: "redis: addr",
		},
		{
			name: "s3 enabled without bucket",
			mutate: func(c *config.Config) {
				c.S3.Enabled = true
				c.S3.Bucket = ""
			},
			wantErr: "s3: bucket",
		},
		{
			name:    "daily reward max below min",
			mutate:  func(c *config.Config) { c.Engine.DailyRewardMax = 0 },
			wantErr: "daily_reward_max",
		},
		{
			name:    "zero confirm timeout",
			mutate:  func(c *config.Config) { c.Engine.ConfirmTimeout.Duration = 0 },
			wantErr: "confirm_timeout",
		},
		{
			name:    "port out of range",
			mutate:  func(c *config.Config) { c.Server.Port = 70000 },
			wantErr: "invalid port",
		},
		{
			name: "rate limit without redis",
			mutate: func(c *config.Config) {
				c.Server.RateLimit = 50
				c.Redis.Enabled = false
			},
			wantErr: "rate_limit requires redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FAIRYDUST_STORE_DRIVER", "postgres")
	t.Setenv("FAIRYDUST_STORE_DSN", "postgres://u:p@db:5432/fairydust")
	t.Setenv("FAIRYDUST_ENGINE_STARTING_BALANCE", "2500")
	t.Setenv("FAIRYDUST_ENGINE_CONFIRM_TIMEOUT", "30s")
	t.Setenv("FAIRYDUST_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if cfg.Store.Driver != "postgres" {
		t.Errorf("Store.Driver = %q, want postgres", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "postgres://u:p@db:5432/fairydust" {
		t.Errorf("Store.DSN = %q", cfg.Store.DSN)
	}
	if cfg.Engine.StartingBalance != 2500 {
		t.Errorf("Engine.StartingBalance = %d, want 2500", cfg.Engine.StartingBalance)
	}
	if cfg.Engine.ConfirmTimeout.Duration != 30*time.Second {
		t.Errorf("Engine.ConfirmTimeout = %s, want 30s", cfg.Engine.ConfirmTimeout.Duration)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != len(want) {
		t.Fatalf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Server.CORSOrigins[i] != want[i] {
			t.Errorf("Server.CORSOrigins[%d] = %q, want %q", i, cfg.Server.CORSOrigins[i], want[i])
		}
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.Server.APIKey = "secret-key"
	cfg.Notify.TelegramToken = "123:abc"

	red := config.RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"Store.Password":       red.Store.Password,
		"Redis.Password":       red.Redis.Password,
		"Server.APIKey":        red.Server.APIKey,
		"Notify.TelegramToken": red.Notify.TelegramToken,
	} {
		if got != "***" {
			t.Errorf("%s = %q, want redacted", name, got)
		}
	}
	if cfg.Store.Password != "hunter2" {
		t.Error("RedactedConfig mutated the original")
	}
}
