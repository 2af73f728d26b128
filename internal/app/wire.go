package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/lunabets/fairydust/internal/blob/s3"
	"github.com/lunabets/fairydust/internal/cache/redis"
	"github.com/lunabets/fairydust/internal/config"
	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/notify"
	"github.com/lunabets/fairydust/internal/store/memory"
	"github.com/lunabets/fairydust/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the engine needs. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	ParticipantStore domain.ParticipantStore
	WagerStore       domain.WagerStore
	MarketStore      domain.MarketStore

	// Redis-backed infrastructure. MarketCache, SignalBus, and RateLimiter
	// are nil when Redis is disabled; LockManager falls back to the
	// in-process implementation.
	MarketCache domain.MarketCache
	LockManager domain.LockManager
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Settlement archival; nil when S3 is disabled.
	Archiver domain.SettlementArchiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Persistent store ---
	switch cfg.Store.Driver {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Store.DSN,
			Host:     cfg.Store.Host,
			Port:     cfg.Store.Port,
			Database: cfg.Store.Database,
			User:     cfg.Store.User,
			Password: cfg.Store.Password,
			SSLMode:  cfg.Store.SSLMode,
			MaxConns: cfg.Store.PoolMaxConns,
			MinConns: cfg.Store.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Store.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.ParticipantStore = postgres.NewParticipantStore(pool)
		deps.WagerStore = postgres.NewWagerStore(pool)
		deps.MarketStore = postgres.NewMarketStore(pool)

	case "memory":
		st := memory.New()
		deps.ParticipantStore = memory.NewParticipantStore(st)
		deps.WagerStore = memory.NewWagerStore(st)
		deps.MarketStore = memory.NewMarketStore(st)

	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unknown store driver %q", cfg.Store.Driver)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	} else {
		deps.LockManager = memory.NewLockManager()
	}

	// --- S3 settlement archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3Client, cfg.S3.Prefix)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
