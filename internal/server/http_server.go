// Package server constructs and starts the chat HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Tyrowin/chatroom/internal/chat"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Server ties the chat hub to its HTTP surface.
type Server struct {
	cfg      *Config
	hub      *chat.Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
	logger   log.FieldLogger
}

// New creates a Server serving hub with the given configuration.
func New(cfg *Config, hub *chat.Hub, logger log.FieldLogger) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	s := &Server{
		cfg:     cfg,
		hub:     hub,
		origins: newOriginPolicy(cfg.AllowedOrigins, logger),
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// CreateServer creates and configures an HTTP server with the specified
// address and handler. Timeouts apply to plain HTTP requests; upgraded
// WebSocket connections are hijacked and not subject to them.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer starts the HTTP server and blocks until it stops. A server
// stopped by ShutdownServer returns nil.
func StartServer(server *http.Server, logger log.FieldLogger) error {
	logger.Infof("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownServer stops accepting HTTP requests and then shuts the hub down,
// closing every live WebSocket session. Both phases share timeout.
func ShutdownServer(server *http.Server, hub *chat.Hub, timeout time.Duration, logger log.FieldLogger) error {
	logger.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
		return err
	}
	logger.Info("HTTP server shutdown completed")

	remaining := time.Until(deadlineOf(ctx, timeout))
	return hub.Shutdown(remaining)
}

func deadlineOf(ctx context.Context, fallback time.Duration) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(fallback)
}
