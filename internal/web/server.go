// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

// Package web exposes the auth service as an HTTP JSON API and guards the
// role dashboards.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/guard"
	"github.com/Skets-max/Project-473/internal/observability"
)

// AuthService is the part of *auth.Service the handlers call.
type AuthService interface {
	Register(ctx context.Context, reg auth.Registration) (auth.Profile, error)
	Login(ctx context.Context, email, password string, client auth.ClientInfo) (*auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*auth.SessionContext, error)
	ForgotPassword(ctx context.Context, email string) error
	ResendVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, token string) (auth.Profile, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, sc *auth.SessionContext, currentPassword, newPassword string) error
	SetStatus(ctx context.Context, actor *auth.SessionContext, userID ulid.ULID, status auth.Status) (auth.Profile, error)
}

// DefaultCookieName carries the access token for browser clients.
const DefaultCookieName = "neighborhood_watch_session"

// Options configure a Server.
type Options struct {
	CookieName   string
	CookieSecure bool
	// CORSOrigins lists origins allowed to call the API with credentials.
	// "*" allows any origin.
	CORSOrigins []string
	// Metrics is optional.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Server serves the auth API.
type Server struct {
	svc     AuthService
	table   *guard.Table
	opts    Options
	logger  *slog.Logger
	handler http.Handler

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds a Server. A nil table uses the built-in authorization table.
func NewServer(svc AuthService, table *guard.Table, opts Options) (*Server, error) {
	if svc == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("auth service is required")
	}
	if table == nil {
		table = guard.MustDefaultTable()
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{svc: svc, table: table, opts: opts, logger: opts.Logger}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on addr and serves in the background. The returned channel
// receives a serve error, if any, and is closed when the server stops.
func (s *Server) Start(addr string) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_web_server").Wrap(err)
		}
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
