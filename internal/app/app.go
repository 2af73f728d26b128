// Package app provides the top-level application lifecycle for the wagering
// engine. It wires together stores, caches, services, the lock scheduler,
// and the HTTP/WebSocket server, and runs them until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lunabets/fairydust/internal/config"
	"github.com/lunabets/fairydust/internal/confirm"
	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/notify"
	"github.com/lunabets/fairydust/internal/scheduler"
	"github.com/lunabets/fairydust/internal/server"
	"github.com/lunabets/fairydust/internal/server/handler"
	"github.com/lunabets/fairydust/internal/server/ws"
	"github.com/lunabets/fairydust/internal/service"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, builds the
// services and boundary layers, starts the background goroutines, and
// blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting engine",
		slog.String("store_driver", a.cfg.Store.Driver),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Presentation: the websocket hub carries participant-facing traffic,
	// the announcer mirrors lifecycle events to operator channels.
	hub := ws.NewHub(a.logger)
	presenter := newFanoutPresenter(hub, notify.NewAnnouncer(deps.Notifier))

	registry := confirm.NewRegistry()

	ledgerSvc := service.NewLedgerService(deps.ParticipantStore, service.LedgerConfig{
		StartingBalance: a.cfg.Engine.StartingBalance,
		DailyRewardMin:  a.cfg.Engine.DailyRewardMin,
		DailyRewardMax:  a.cfg.Engine.DailyRewardMax,
		DailyCooldown:   a.cfg.Engine.DailyCooldown.Duration,
	}, a.logger)
	marketSvc := service.NewMarketService(deps.MarketStore, deps.MarketCache, presenter, a.logger)
	wagerSvc := service.NewWagerService(
		deps.MarketStore, deps.ParticipantStore, deps.WagerStore,
		deps.LockManager, registry, presenter,
		a.cfg.Engine.StartingBalance, a.cfg.Engine.ConfirmTimeout.Duration,
		a.logger,
	)
	resolverSvc := service.NewResolverService(
		deps.MarketStore, deps.WagerStore, deps.MarketCache,
		presenter, deps.Archiver, a.logger,
	)

	lockScheduler := scheduler.NewLockScheduler(
		deps.MarketStore, deps.MarketCache, presenter,
		a.cfg.Engine.LockInterval.Duration, a.logger,
	)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		},
		server.Handlers{
			Health:       handler.NewHealthHandler(a.logger),
			Markets:      handler.NewMarketHandler(marketSvc, resolverSvc, a.logger),
			Wagers:       handler.NewWagerHandler(wagerSvc, a.logger),
			Participants: handler.NewParticipantHandler(ledgerSvc, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("ws hub: %w", err)
	})

	g.Go(func() error {
		err := lockScheduler.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("lock scheduler: %w", err)
	})

	// External confirm/cancel signals arrive over the bus only when Redis
	// is wired; the HTTP signal endpoints work either way.
	if deps.SignalBus != nil {
		listener := confirm.NewListener(deps.SignalBus, registry, a.logger)
		g.Go(func() error {
			err := listener.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("signal listener: %w", err)
		})
	}

	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("engine stopped with error", slog.String("error", err.Error()))
		return err
	}

	a.logger.Info("engine stopped cleanly")
	return nil
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// fanoutPresenter delivers every presentation call to each target,
// returning the first error after all targets have been attempted.
type fanoutPresenter struct {
	targets []domain.Presenter
}

func newFanoutPresenter(targets ...domain.Presenter) *fanoutPresenter {
	return &fanoutPresenter{targets: targets}
}

func (p *fanoutPresenter) PresentConfirmation(ctx context.Context, staged domain.StagedWager) error {
	var first error
	for _, t := range p.targets {
		if err := t.PresentConfirmation(ctx, staged); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (p *fanoutPresenter) PublishMarketEvent(ctx context.Context, event domain.MarketEvent) error {
	var first error
	for _, t := range p.targets {
		if err := t.PublishMarketEvent(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Compile-time interface check.
var _ domain.Presenter = (*fanoutPresenter)(nil)
