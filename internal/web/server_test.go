// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package web_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Skets-max/Project-473/internal/web"
)

func TestNewServer_RequiresService(t *testing.T) {
	_, err := web.NewServer(nil, nil, web.Options{})
	assert.Error(t, err)
}

func TestServer_StartStop(t *testing.T) {
	h := newHarness(t, web.Options{})
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server, err := web.NewServer(h.svc, nil, web.Options{Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)

	errCh, err := server.Start("127.0.0.1:0")
	require.NoError(t, err)

	_, err = server.Start("127.0.0.1:0")
	assert.Error(t, err, "second start must fail")

	client := &http.Client{
		Timeout: 5 * time.Second,
		// The guard redirects; the test inspects the redirect itself.
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Get("http://" + server.Addr() + "/member/dashboard")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
	require.NoError(t, server.Stop(ctx), "stop is idempotent")

	select {
	case err, ok := <-errCh:
		assert.False(t, ok && err != nil, "unexpected serve error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("error channel not closed after stop")
	}
}

func TestRequestID(t *testing.T) {
	h := newHarness(t, web.Options{})

	rec := h.do(t, http.MethodGet, "/api/me", nil)
	generated := rec.Header().Get(web.RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	incoming := uuid.NewString()
	rec = h.do(t, http.MethodGet, "/api/me", nil, header(web.RequestIDHeader, incoming))
	assert.Equal(t, incoming, rec.Header().Get(web.RequestIDHeader))

	rec = h.do(t, http.MethodGet, "/api/me", nil, header(web.RequestIDHeader, "bogus\nvalue"))
	assert.NotEqual(t, "bogus\nvalue", rec.Header().Get(web.RequestIDHeader))
}

func TestCORS(t *testing.T) {
	h := newHarness(t, web.Options{CORSOrigins: []string{"http://localhost:3000"}})

	preflight := func(origin string) *http.Response {
		rec := h.do(t, http.MethodOptions, "/api/login", nil,
			header("Origin", origin),
			header("Access-Control-Request-Method", http.MethodPost))
		return rec.Result()
	}

	allowed := preflight("http://localhost:3000")
	assert.Equal(t, http.StatusNoContent, allowed.StatusCode)
	assert.Equal(t, "http://localhost:3000", allowed.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", allowed.Header.Get("Access-Control-Allow-Credentials"))

	denied := preflight("http://evil.example")
	assert.Equal(t, http.StatusNoContent, denied.StatusCode)
	assert.Empty(t, denied.Header.Get("Access-Control-Allow-Origin"))

	rec := h.do(t, http.MethodGet, "/api/me", nil, header("Origin", "http://localhost:3000"))
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	h := newHarness(t, web.Options{CORSOrigins: []string{"*", "http://localhost:3000"}})

	rec := h.do(t, http.MethodOptions, "/api/login", nil,
		header("Origin", "http://anywhere.example"),
		header("Access-Control-Request-Method", http.MethodPost))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = h.do(t, http.MethodGet, "/api/me", nil, header("Origin", "http://localhost:3000"))
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
