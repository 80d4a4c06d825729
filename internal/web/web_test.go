// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/auth/gormstore"
	"github.com/Skets-max/Project-473/internal/store"
	"github.com/Skets-max/Project-473/internal/web"
)

const testPassword = "Abcd123!"

// outbox captures the tokens the service would have mailed.
type outbox struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
}

func (o *outbox) SendVerification(_ context.Context, user auth.Profile, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verify[user.Email] = token
	return nil
}

func (o *outbox) SendPasswordReset(_ context.Context, user auth.Profile, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset[user.Email] = token
	return nil
}

func (o *outbox) verifyToken(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.verify[email]
}

func (o *outbox) resetToken(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reset[email]
}

type harness struct {
	svc     *auth.Service
	mail    *outbox
	handler http.Handler
}

func newHarness(t *testing.T, opts web.Options) *harness {
	t.Helper()

	db, err := store.OpenGorm(store.DriverSQLite, filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	require.NoError(t, gormstore.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	issuer, err := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), auth.DefaultIssuer)
	require.NoError(t, err)

	mail := &outbox{verify: map[string]string{}, reset: map[string]string{}}
	svc, err := auth.NewService(auth.Deps{
		Users:    gormstore.NewUserRepository(db),
		Sessions: gormstore.NewSessionRepository(db),
		Tokens:   gormstore.NewTokenRepository(db),
		Hasher:   auth.NewHasherWithParams(auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}),
		Issuer:   issuer,
		Notifier: mail,
	}, auth.DefaultPolicy())
	require.NoError(t, err)

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	server, err := web.NewServer(svc, nil, opts)
	require.NoError(t, err)

	return &harness{svc: svc, mail: mail, handler: server.Handler()}
}

type reqOpt func(*http.Request)

func bearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func header(key, value string) reqOpt {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (h *harness) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) web.Response {
	t.Helper()
	var resp web.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return resp
}

func aliceRegistration() map[string]string {
	return map[string]string{
		"email":     "alice@example.com",
		"password":  testPassword,
		"firstName": "Alice",
		"lastName":  "Smith",
		"phone":     "+1 555 0100",
		"userType":  "member",
		"address":   "12 Main St, Townsville",
	}
}

// verifiedMember registers and verifies alice and returns her access token.
func (h *harness) verifiedMember(t *testing.T) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/register", aliceRegistration())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/verify-email?token="+h.mail.verifyToken("alice@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return h.login(t, "alice@example.com", testPassword)
}

func (h *harness) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeResponse(t, rec).Token
}

func (h *harness) admin(t *testing.T) string {
	t.Helper()
	_, _, err := h.svc.CreateAdmin(context.Background(), auth.Registration{
		Email:     "root@example.com",
		Password:  "R00t!pass",
		FirstName: "Root",
		LastName:  "Admin",
		Role:      auth.RoleAdmin,
	})
	require.NoError(t, err)
	return h.login(t, "root@example.com", "R00t!pass")
}
