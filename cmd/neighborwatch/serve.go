// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/config"
	"github.com/Skets-max/Project-473/internal/guard"
	"github.com/Skets-max/Project-473/internal/logging"
	"github.com/Skets-max/Project-473/internal/observability"
	"github.com/Skets-max/Project-473/internal/web"
	"github.com/Skets-max/Project-473/pkg/errutil"
)

// purgeInterval is how often expired sessions and one-time tokens are removed.
const purgeInterval = 15 * time.Minute

// shutdownTimeout bounds graceful shutdown of the listeners.
const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth API server",
		Long: `Start the HTTP API that registers, verifies and logs in accounts,
together with the metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.BackendFactory == nil {
		deps.BackendFactory = openBackend
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, slog.LevelInfo)
	logger.Info("starting server",
		"addr", cfg.HTTP.Addr,
		"db_driver", cfg.Database.Driver,
		"session_store", cfg.Session.Store,
		"mail_provider", cfg.Mail.Provider,
	)

	table, err := loadTable(cfg.Policy.File)
	if err != nil {
		return err
	}

	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return oops.Code("BACKEND_OPEN_FAILED").With("driver", cfg.Database.Driver).Wrap(err)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			errutil.LogError(logger, "error closing backend", closeErr)
		}
	}()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, backend.Ping)
		metrics = obsServer.Metrics()
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	var sender auth.Notifier = notifier
	if metrics != nil {
		sender = metrics.CountNotifierFailures(notifier)
	}

	svc, err := newService(cfg, backend, sender, logger)
	if err != nil {
		return err
	}
	if metrics != nil {
		svc.OnSessionChange(metrics.ObserveSessionEvent)
	}

	webServer, err := web.NewServer(svc, table, web.Options{
		CookieName:   cfg.HTTP.CookieName,
		CookieSecure: cfg.HTTP.CookieSecure,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		Metrics:      metrics,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	webErrChan, err := webServer.Start(cfg.HTTP.Addr)
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, webErrChan, "web")
	logger.Info("web server started", "addr", webServer.Addr())

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if stopErr := webServer.Stop(shutdownCtx); stopErr != nil {
				slog.Warn("failed to stop web server during cleanup", "error", stopErr)
			}
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	go purgeLoop(ctx, svc, purgeInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Server started on", webServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// loadTable compiles the configured policy file, or the built-in table when path is empty.
func loadTable(path string) (*guard.Table, error) {
	policy, err := guard.LoadPolicy(path)
	if err != nil {
		return nil, err
	}
	return guard.NewTable(policy)
}

// purger is the part of auth.Service the purge loop drives.
type purger interface {
	PurgeExpired(ctx context.Context) (sessions, tokens int64, err error)
}

// purgeLoop removes expired sessions and tokens every interval until ctx ends.
func purgeLoop(ctx context.Context, p purger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions, tokens, err := p.PurgeExpired(ctx)
			if err != nil {
				errutil.LogWarn(ctx, slog.Default(), "purge of expired records failed", err)
				continue
			}
			if sessions > 0 || tokens > 0 {
				slog.Info("purged expired records", "sessions", sessions, "tokens", tokens)
			}
		}
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
