// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/auth/gormstore"
	"github.com/Skets-max/Project-473/internal/auth/postgres"
	"github.com/Skets-max/Project-473/internal/auth/redisstore"
	"github.com/Skets-max/Project-473/internal/config"
	"github.com/Skets-max/Project-473/internal/mail"
	"github.com/Skets-max/Project-473/internal/store"
)

// Backend is the set of repositories the auth service runs on.
type Backend struct {
	Users    auth.UserRepository
	Sessions auth.SessionRepository
	Tokens   auth.TokenRepository

	pings   []func(ctx context.Context) error
	closers []func() error
}

// Ping checks every underlying connection. It backs the readiness probe.
func (b *Backend) Ping(ctx context.Context) error {
	for _, ping := range b.pings {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// openBackend connects to the configured database and, when asked, a redis
// session store.
func openBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{}

	var err error
	if cfg.Database.Driver == store.DriverPostgres {
		err = b.openPostgres(ctx, cfg.Database)
	} else {
		err = b.openGorm(cfg.Database)
	}
	if err != nil {
		_ = b.Close() //nolint:errcheck // open error wins
		return nil, err
	}

	if cfg.Session.Store == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.Sessions = redisstore.NewSessionRepository(rdb, "")
		b.pings = append(b.pings, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		b.closers = append(b.closers, rdb.Close)
		slog.Info("using redis session store", "addr", cfg.Redis.Addr)
	}
	return b, nil
}

func (b *Backend) openPostgres(ctx context.Context, cfg config.DatabaseConfig) error {
	if cfg.AutoMigrate {
		if err := applyMigrations(cfg.URL); err != nil {
			return err
		}
	}

	opts := store.DefaultConnectOptions()
	opts.Attempts = cfg.ConnectRetries
	pool, err := store.Connect(ctx, cfg.URL, opts)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() error { pool.Close(); return nil })
	b.pings = append(b.pings, pool.Ping)

	b.Users = postgres.NewUserRepository(pool)
	b.Sessions = postgres.NewSessionRepository(pool)
	b.Tokens = postgres.NewTokenRepository(pool)
	return nil
}

func (b *Backend) openGorm(cfg config.DatabaseConfig) error {
	db, err := store.OpenGorm(cfg.Driver, cfg.URL)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Driver).Wrap(err)
	}
	b.closers = append(b.closers, sqlDB.Close)
	b.pings = append(b.pings, sqlDB.PingContext)

	if cfg.AutoMigrate {
		if err := gormstore.AutoMigrate(db); err != nil {
			return err
		}
	}

	b.Users = gormstore.NewUserRepository(db)
	b.Sessions = gormstore.NewSessionRepository(db)
	b.Tokens = gormstore.NewTokenRepository(db)
	return nil
}

func applyMigrations(databaseURL string) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	return m.Up()
}

// newNotifier builds the mail notifier selected by cfg.Mail.Provider.
func newNotifier(cfg *config.Config, logger *slog.Logger) (*mail.Notifier, error) {
	var transport mail.Transport
	switch cfg.Mail.Provider {
	case "resend":
		t, err := mail.NewResendTransport(cfg.Mail.ResendAPIKey, cfg.Mail.From, cfg.Mail.ResendBaseURL)
		if err != nil {
			return nil, err
		}
		transport = t
	default:
		transport = mail.NewLogTransport(logger)
	}
	return mail.NewNotifier(transport, cfg.HTTP.BaseURL)
}

// newService assembles the auth service over b.
func newService(cfg *config.Config, b *Backend, notifier auth.Notifier, logger *slog.Logger) (*auth.Service, error) {
	issuer, err := auth.NewTokenIssuer([]byte(cfg.Session.JWTSecret), cfg.Session.Issuer)
	if err != nil {
		return nil, err
	}
	return auth.NewServiceWithLogger(auth.Deps{
		Users:    b.Users,
		Sessions: b.Sessions,
		Tokens:   b.Tokens,
		Hasher:   auth.NewHasher(),
		Issuer:   issuer,
		Notifier: notifier,
	}, cfg.AuthPolicy(), logger)
}
