// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/client"
	"github.com/Skets-max/Project-473/internal/web"
)

type clientEnv struct {
	svc         *auth.Service
	mail        *outbox
	server      *httptest.Server
	sessionFile string
}

func newClientEnv(t *testing.T) *clientEnv {
	t.Helper()
	cfg := sqliteConfig(t)
	backend, err := openBackend(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	mail := newOutbox()
	logger := slog.New(slog.DiscardHandler)
	svc, err := newService(cfg, backend, mail, logger)
	require.NoError(t, err)
	table, err := loadTable("")
	require.NoError(t, err)
	srv, err := web.NewServer(svc, table, web.Options{Logger: logger})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &clientEnv{
		svc:         svc,
		mail:        mail,
		server:      ts,
		sessionFile: filepath.Join(t.TempDir(), "session.json"),
	}
}

func (e *clientEnv) run(t *testing.T, passwords []string, args ...string) (string, error) {
	t.Helper()
	cmd := newClientCmd(&clientOptions{password: fixedPasswords(passwords...)})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--server", e.server.URL, "--session-file", e.sessionFile))
	err := cmd.Execute()
	return buf.String(), err
}

func (e *clientEnv) stored(t *testing.T) *client.Session {
	t.Helper()
	s, err := client.NewSessionHolder(e.sessionFile).Load()
	require.NoError(t, err)
	return s
}

func TestClientCommands_MemberLifecycle(t *testing.T) {
	env := newClientEnv(t)
	const password = "Abcd123!"

	out, err := env.run(t, []string{password}, "register",
		"--email", "alice@example.com", "--first-name", "Alice", "--last-name", "Smith",
		"--role", "member", "--address", "12 Main St, Townsville")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Account alice@example.com is pending")

	out, err = env.run(t, []string{password}, "login", "--email", "alice@example.com")
	require.Error(t, err)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, auth.MsgEmailNotVerified, apiErr.Message, out)
	assert.Nil(t, env.stored(t))

	_, err = env.svc.VerifyEmail(context.Background(), env.mail.verifyToken("alice@example.com"))
	require.NoError(t, err)

	out, err = env.run(t, []string{password}, "login", "--email", "alice@example.com")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged in as alice@example.com (member)")
	assert.Contains(t, out, "Dashboard: /member/dashboard")

	session := env.stored(t)
	require.NotNil(t, session)
	assert.True(t, session.Authenticated)
	assert.Equal(t, auth.RoleMember, session.Role)
	assert.NotEmpty(t, session.Token)

	out, err = env.run(t, nil, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice Smith <alice@example.com>")
	assert.Contains(t, out, "Role: member")

	out, err = env.run(t, nil, "dashboard", "member")
	require.NoError(t, err, out)

	out, err = env.run(t, nil, "dashboard", "admin")
	require.Error(t, err)
	assert.Contains(t, out, "Access denied, redirect to /login")

	out, err = env.run(t, nil, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Nil(t, env.stored(t))

	out, err = env.run(t, nil, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestClientCommands_WhoamiClearsRevokedSession(t *testing.T) {
	env := newClientEnv(t)

	holder := client.NewSessionHolder(env.sessionFile)
	require.NoError(t, holder.Save(&client.Session{Authenticated: true, Role: auth.RoleMember, Token: "revoked"}))

	out, err := env.run(t, nil, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
	assert.Nil(t, env.stored(t))
}

func TestClientCommands_EmailRequests(t *testing.T) {
	env := newClientEnv(t)

	out, err := env.run(t, nil, "forgot-password", "--email", "ghost@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	out, err = env.run(t, nil, "resend-verification", "--email", "ghost@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestClientCommands_DashboardWithoutSession(t *testing.T) {
	env := newClientEnv(t)

	out, err := env.run(t, nil, "dashboard", "member")
	require.Error(t, err)
	assert.Contains(t, out, "redirect to /login")

	_, err = env.run(t, nil, "dashboard", "janitor")
	assert.ErrorIs(t, err, auth.ErrValidation)
}

func TestClientCommands_LogoutWithoutSession(t *testing.T) {
	env := newClientEnv(t)

	out, err := env.run(t, nil, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestClientCommands_LogoutDiscardsCorruptSessionFile(t *testing.T) {
	env := newClientEnv(t)
	require.NoError(t, os.WriteFile(env.sessionFile, []byte("{not json"), 0o600))

	out, err := env.run(t, nil, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.NoFileExists(t, env.sessionFile)
}
