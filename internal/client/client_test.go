// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/web"
	"github.com/Skets-max/Project-473/pkg/errutil"
)

func reply(w http.ResponseWriter, code int, resp web.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080", nil)
	errutil.AssertErrorCode(t, err, "CLIENT_BAD_URL")
}

func TestClient_Login(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	alice := &auth.Profile{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Email: "alice@example.com", Role: auth.RoleMember, EmailVerified: true}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "Abcd123!" {
			reply(w, http.StatusUnauthorized, web.Response{Status: web.StatusError, Message: auth.MessageInvalidCredentials})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: web.DefaultCookieName, Value: "tok", Expires: expires})
		reply(w, http.StatusOK, web.Response{
			Status: web.StatusSuccess, Message: auth.MsgLoginSuccess, User: alice, Token: "tok", Redirect: "/member/dashboard",
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)

	result, err := c.Login(context.Background(), "alice@example.com", "Abcd123!")
	require.NoError(t, err)
	assert.Equal(t, "tok", result.Token)
	assert.Equal(t, "/member/dashboard", result.Redirect)
	assert.True(t, expires.Equal(result.ExpiresAt))

	_, err = c.Login(context.Background(), "alice@example.com", "wrong")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, auth.MessageInvalidCredentials, apiErr.Message)
	errutil.AssertErrorCode(t, err, "CLIENT_REJECTED")
	errutil.AssertPublic(t, err, auth.MessageInvalidCredentials)
}

func TestClient_MeAndLogout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorized := r.Header.Get("Authorization") == "Bearer tok"
		switch r.URL.Path {
		case "/api/me":
			resp := web.Response{Status: web.StatusSuccess, Message: "Not logged in."}
			if authorized {
				resp.User = &auth.Profile{Email: "alice@example.com"}
			}
			reply(w, http.StatusOK, resp)
		case "/api/logout":
			assert.True(t, authorized)
			reply(w, http.StatusOK, web.Response{Status: web.StatusSuccess, Message: auth.MsgLogoutSuccess})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", nil)
	require.NoError(t, err)
	ctx := context.Background()

	user, err := c.Me(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice@example.com", user.Email)

	user, err = c.Me(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.NoError(t, c.Logout(ctx, "tok"))
}

func TestClient_GuardDenialCarriesRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusUnauthorized, web.Response{
			Status: web.StatusError, Message: auth.MessageUnauthenticated, Redirect: "/login",
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Dashboard(context.Background(), "tok", auth.RoleAdmin)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "/login", apiErr.Redirect)
}

func TestClient_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, nil)
	require.NoError(t, err)

	_, err = c.ForgotPassword(context.Background(), "alice@example.com")
	errutil.AssertErrorCode(t, err, "CLIENT_REQUEST_FAILED")
	errutil.AssertPublic(t, err, auth.MessageProviderFailure)
}
