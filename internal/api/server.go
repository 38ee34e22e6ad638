// Package api exposes the monitor over HTTP: analysis triggering, alert
// listing and detail, and a component health check.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brightpath/campaign-monitor/internal/config"
)

// Server wraps the HTTP server with sane timeouts and graceful shutdown.
type Server struct {
	srv *http.Server
}

// NewServer creates a server bound per config, serving the given handler.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute, // analysis runs can be slow with retries
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Addr returns the bind address.
func (s *Server) Addr() string { return s.srv.Addr }

// ListenAndServe blocks serving requests until shutdown.
func (s *Server) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
