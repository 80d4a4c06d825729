// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

// Package client talks to the neighborwatch HTTP API and keeps the
// logged-in session on disk between invocations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/web"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 15 * time.Second

// Client calls the auth API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New returns a Client for the server at baseURL. A nil httpClient uses one
// with DefaultTimeout that does not follow redirects.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, oops.Code("CLIENT_BAD_URL").With("url", baseURL).Errorf("base URL must be absolute")
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// APIError is a non-2xx reply. Message is the server's user-facing text.
type APIError struct {
	StatusCode int
	Message    string
	Redirect   string
}

func (e *APIError) Error() string {
	return e.Message
}

// LoginResult is a successful login.
type LoginResult struct {
	web.Response
	ExpiresAt time.Time
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg auth.Registration) (*web.Response, error) {
	resp, _, err := c.call(ctx, http.MethodPost, "/api/register", "", reg)
	return resp, err
}

// Login authenticates and returns the access token and its expiry.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	resp, httpResp, err := c.call(ctx, http.MethodPost, "/api/login", "", body)
	if err != nil {
		return nil, err
	}
	result := &LoginResult{Response: *resp}
	for _, cookie := range httpResp.Cookies() {
		if cookie.Value == resp.Token && !cookie.Expires.IsZero() {
			result.ExpiresAt = cookie.Expires
		}
	}
	return result, nil
}

// Logout ends the session behind token.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, _, err := c.call(ctx, http.MethodPost, "/api/logout", token, nil)
	return err
}

// Me returns the current user, or nil when token names no live session.
func (c *Client) Me(ctx context.Context, token string) (*auth.Profile, error) {
	resp, _, err := c.call(ctx, http.MethodGet, "/api/me", token, nil)
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

// ForgotPassword requests a reset link. The reply does not reveal whether
// the email is registered.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*web.Response, error) {
	resp, _, err := c.call(ctx, http.MethodPost, "/api/forgot-password", "", map[string]string{"email": email})
	return resp, err
}

// ResendVerification requests a new verification link.
func (c *Client) ResendVerification(ctx context.Context, email string) (*web.Response, error) {
	resp, _, err := c.call(ctx, http.MethodPost, "/api/resend-verification", "", map[string]string{"email": email})
	return resp, err
}

// Dashboard fetches a role's dashboard.
func (c *Client) Dashboard(ctx context.Context, token string, role auth.Role) (*web.Response, error) {
	resp, _, err := c.call(ctx, http.MethodGet, role.DashboardPath(), token, nil)
	return resp, err
}

func (c *Client) call(ctx context.Context, method, path, token string, body any) (*web.Response, *http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, oops.Code("CLIENT_ENCODE_FAILED").With("path", path).Wrap(err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), rd)
	if err != nil {
		return nil, nil, oops.Code("CLIENT_REQUEST_FAILED").With("path", path).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, oops.Code("CLIENT_REQUEST_FAILED").
			With("method", method).
			With("path", path).
			Public(auth.MessageProviderFailure).
			Wrap(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	var resp web.Response
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, 1<<20)).Decode(&resp); err != nil {
		return nil, nil, oops.Code("CLIENT_DECODE_FAILED").
			With("path", path).
			With("status", httpResp.StatusCode).
			Wrap(err)
	}

	if httpResp.StatusCode >= http.StatusMultipleChoices || resp.Status != web.StatusSuccess {
		return nil, nil, oops.Code("CLIENT_REJECTED").
			With("path", path).
			With("status", httpResp.StatusCode).
			Public(resp.Message).
			Wrap(&APIError{StatusCode: httpResp.StatusCode, Message: resp.Message, Redirect: resp.Redirect})
	}
	return &resp, httpResp, nil
}
