package confirm

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lunabets/fairydust/internal/domain"
)

// Channel is the signal bus channel carrying externally sourced wager
// signals. Presentation processes publish to it; the engine subscribes.
const Channel = "wager.signals"

// Signal is the wire form of an external confirm/cancel message.
type Signal struct {
	Token  string              `json:"token"`
	Action domain.SignalAction `json:"action"`
}

// Listener routes signals from the bus into the local registry so that a
// presentation process running elsewhere can settle confirmations.
type Listener struct {
	bus      domain.SignalBus
	registry *Registry
	logger   *slog.Logger
}

// NewListener creates a Listener over the given bus and registry.
func NewListener(bus domain.SignalBus, registry *Registry, logger *slog.Logger) *Listener {
	return &Listener{
		bus:      bus,
		registry: registry,
		logger:   logger.With(slog.String("component", "confirm_listener")),
	}
}

// Run subscribes to the signal channel and forwards messages until the
// context is cancelled. Malformed or unknown-token messages are logged and
// skipped.
func (l *Listener) Run(ctx context.Context) error {
	msgs, err := l.bus.Subscribe(ctx, Channel)
	if err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "listening for wager signals", slog.String("channel", Channel))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			var sig Signal
			if err := json.Unmarshal(payload, &sig); err != nil {
				l.logger.WarnContext(ctx, "dropping malformed signal", slog.String("error", err.Error()))
				continue
			}
			if sig.Action != domain.SignalConfirm && sig.Action != domain.SignalCancel {
				l.logger.WarnContext(ctx, "dropping signal with unknown action",
					slog.String("action", string(sig.Action)),
				)
				continue
			}
			if !l.registry.Resolve(sig.Token, sig.Action) {
				l.logger.DebugContext(ctx, "signal for unknown or settled token",
					slog.String("token", sig.Token),
				)
			}
		}
	}
}
