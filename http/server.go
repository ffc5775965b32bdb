// Package http serves the prediction API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"diagserve/config"
	"diagserve/monitoring"
)

// Server wraps http.Server with the API routes and middleware chain.
type Server struct {
	server *http.Server
	config config.HTTP
	logger *zap.Logger
}

// NewServer registers the API on a fresh mux and wraps it in the middleware
// chain. Order matters: recovery sees every panic, CORS answers preflight
// before routing.
func NewServer(cfg config.HTTP, svc Predictor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := monitoring.NewMetrics()
	mux := http.NewServeMux()
	RegisterHandlers(mux, svc, metrics, logger)

	chain := Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger, metrics),
		SecurityHeadersMiddleware,
		CORSMiddleware(cfg.AllowedOrigin),
		TimeoutMiddleware(cfg.Timeout),
		RequestSizeMiddleware(cfg.MaxBodyBytes),
	)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      chain(mux),
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout + time.Second,
			IdleTimeout:  120 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", s.Addr()),
		zap.String("allowed_origin", s.config.AllowedOrigin))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// Handler exposes the wrapped mux, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
