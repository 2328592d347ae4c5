// Package server exposes the tally engine over HTTP.
//
// POST /all and POST /per accept multipart uploads, GET /ws keeps a session that
// re-runs the engine whenever documents or settings change, and GET /healthz
// reports counters. Uploaded content only lives for the request or connection.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chriscorrea/tally/internal/config"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps the HTTP server serving the tally routes.
type Server struct {
	httpServer *http.Server
	handler    *Handler
}

// New builds a Server from cfg. The handler accepts HTTP/1.1 and cleartext HTTP/2.
func New(cfg *config.Config) (*Server, error) {
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Server.Port,
			Handler:           h2c.NewHandler(handler.Routes(), &http2.Server{}),
			ReadTimeout:       cfg.Server.ReadTimeout(),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		handler: handler,
	}, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("Starting tally server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones to finish.
// Hijacked websocket connections are not tracked and close with the process.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
