// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package web

import (
	"context"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/guard"
	"github.com/Skets-max/Project-473/internal/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const tracerName = "github.com/Skets-max/Project-473/internal/web"

// requestInfo is shared by the middleware chain so outer layers can see what
// inner layers learned.
type requestInfo struct {
	route string
	err   error
}

type requestInfoKey struct{}

func infoFrom(ctx context.Context) *requestInfo {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		return info
	}
	return &requestInfo{}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// withRequestID assigns each request an ID, honoring a well-formed incoming one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// withTracing starts a server span and records the access log line.
func (s *Server) withTracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		ctx := context.WithValue(r.Context(), requestInfoKey{}, info)
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		route := info.route
		if route == "" {
			route = "unmatched"
		}
		span.SetName(route)
		span.SetAttributes(attribute.Int("http.response.status_code", sw.status))
		if sw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.status))
		}

		elapsed := time.Since(start)
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveRequest(route, sw.status, elapsed)
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", sw.status,
			"duration", elapsed,
			"remote", clientIP(r),
		}
		if info.err != nil {
			attrs = append(attrs, "error", info.err)
		}
		s.logger.InfoContext(ctx, "request", attrs...)
	})
}

// withCORS answers preflight requests and adds CORS headers for allowed origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			h := w.Header()
			switch {
			case slices.Contains(s.opts.CORSOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			case slices.Contains(s.opts.CORSOrigins, "*"):
				// A wildcard never carries credentials.
				h.Set("Access-Control-Allow-Origin", "*")
			}
			if h.Get("Access-Control-Allow-Origin") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
			}
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withSession resolves the request's token to a session context. Requests
// without a live session proceed anonymously. Logout always reaches its
// handler so the cookie is cleared even when the session store is down.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.tokenFrom(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		sc, err := s.svc.Authenticate(r.Context(), token)
		if err != nil {
			infoFrom(r.Context()).err = err
			if r.Method == http.MethodPost && r.URL.Path == logoutPath {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, err)
			return
		}
		if sc != nil {
			r = r.WithContext(auth.WithSession(r.Context(), sc))
		}
		next.ServeHTTP(w, r)
	})
}

// withGuard applies the authorization table. Denied browsers are redirected
// to the login page; API clients get 401 with the redirect in the body.
func (s *Server) withGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		decision := s.table.Authorize(auth.SessionFrom(r.Context()), r.URL.Path)
		if decision.Allow {
			next.ServeHTTP(w, r)
			return
		}

		if s.opts.Metrics != nil {
			s.opts.Metrics.GuardDecisions.WithLabelValues(string(decision.Reason)).Inc()
		}
		s.logger.DebugContext(r.Context(), "guard denied request",
			"path", r.URL.Path, "reason", string(decision.Reason))

		if wantsJSON(r) {
			writeJSON(w, http.StatusUnauthorized, Response{
				Status:   StatusError,
				Message:  auth.MessageUnauthenticated,
				Redirect: decision.Redirect,
			})
			return
		}
		http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// tokenFrom reads the access token from the cookie or a bearer header.
func (s *Server) tokenFrom(r *http.Request) string {
	if c, err := r.Cookie(s.opts.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{UserAgent: r.UserAgent(), IPAddress: clientIP(r)}
}

// decisionFor checks the request's session against a single role.
func (s *Server) decisionFor(r *http.Request, role auth.Role) guard.Decision {
	return guard.Check(auth.SessionFrom(r.Context()), role)
}
