// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// sqliteConfig returns a valid configuration backed by a fresh SQLite file.
func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Metrics.Addr = ""
	cfg.Log.Format = "text"
	cfg.Database.Driver = "sqlite"
	cfg.Database.URL = filepath.Join(t.TempDir(), "neighborwatch.db")
	cfg.Session.JWTSecret = testSecret
	return &cfg
}

// outbox captures the tokens the service would have mailed.
type outbox struct {
	mu     sync.Mutex
	verify map[string]string
}

func newOutbox() *outbox {
	return &outbox{verify: map[string]string{}}
}

func (o *outbox) SendVerification(_ context.Context, user auth.Profile, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verify[user.Email] = token
	return nil
}

func (o *outbox) SendPasswordReset(context.Context, auth.Profile, string) error {
	return nil
}

func (o *outbox) verifyToken(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.verify[email]
}

// fixedPasswords answers prompts in order.
func fixedPasswords(answers ...string) func(string) (string, error) {
	return func(string) (string, error) {
		if len(answers) == 0 {
			return "", nil
		}
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
}
