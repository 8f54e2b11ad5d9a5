// Package api provides HTTP handlers and the main API server for SwiftSend.
//
// It exposes the WhatsApp webhook endpoints and the dashboard REST API, and
// integrates the router, engine, messaging, and store modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/engine"
	"github.com/SwiftSendNG/SwiftSend/internal/messaging"
	"github.com/SwiftSendNG/SwiftSend/internal/router"
	"github.com/SwiftSendNG/SwiftSend/internal/store"
)

// Default server configuration.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 5 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string
	VerifyToken string // webhook verification token
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) {
		o.VerifyToken = token
	}
}

// Server routes HTTP traffic to the webhook and dashboard handlers.
type Server struct {
	st          store.Store
	eng         *engine.Engine
	rt          *router.Router
	gateway     messaging.Gateway
	verifyToken string
	addr        string

	httpServer *http.Server
}

// NewServer creates a Server over its collaborators.
func NewServer(st store.Store, eng *engine.Engine, rt *router.Router, gateway messaging.Gateway, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		st:          st,
		eng:         eng,
		rt:          rt,
		gateway:     gateway,
		verifyToken: cfg.VerifyToken,
		addr:        cfg.Addr,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/api/link-code", s.linkCodeHandler)
	mux.HandleFunc("/api/vendors", s.createVendorHandler)
	mux.HandleFunc("/api/vendors/{id}", s.getVendorHandler)
	mux.HandleFunc("/api/sessions", s.listSessionsHandler)
	mux.HandleFunc("/api/sessions/{id}/status", s.overrideStatusHandler)
	mux.HandleFunc("/api/riders", s.ridersHandler)
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	slog.Info("Server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
