// Package server exposes the engine over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/server/handler"
	"github.com/lunabets/fairydust/internal/server/middleware"
	"github.com/lunabets/fairydust/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per window per client IP; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health       *handler.HealthHandler
	Markets      *handler.MarketHandler
	Wagers       *handler.WagerHandler
	Participants *handler.ParticipantHandler
}

// Server is the HTTP + WebSocket API server for the wagering engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market lifecycle.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/lock", handlers.Markets.LockMarket)
	mux.HandleFunc("PUT /api/markets/{id}/odds", handlers.Markets.UpdateOdds)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Markets.ResolveMarket)
	mux.HandleFunc("POST /api/markets/{id}/annul", handlers.Markets.AnnulMarket)

	// Wager placement and confirmation signals.
	mux.HandleFunc("POST /api/wagers", handlers.Wagers.PlaceWager)
	mux.HandleFunc("POST /api/wagers/{token}/confirm", handlers.Wagers.ConfirmWager)
	mux.HandleFunc("POST /api/wagers/{token}/cancel", handlers.Wagers.CancelWager)

	// Participant economy.
	mux.HandleFunc("GET /api/participants/{id}", handlers.Participants.GetParticipant)
	mux.HandleFunc("POST /api/participants/{id}/daily", handlers.Participants.ClaimDaily)
	mux.HandleFunc("GET /api/participants/{id}/history", handlers.Participants.History)
	mux.HandleFunc("GET /api/participants/{id}/wagers", handlers.Wagers.ListOpenWagers)
	mux.HandleFunc("POST /api/transfers", handlers.Participants.Transfer)
	mux.HandleFunc("GET /api/leaderboard", handlers.Participants.Leaderboard)

	// WebSocket event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: h,
		// Wager placement long-polls for the confirmation window, so the
		// write timeout must comfortably exceed it.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
