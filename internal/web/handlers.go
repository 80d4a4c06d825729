// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Skets-max/Project-473/internal/auth"
)

// logoutPath is served even when the caller's session cannot be resolved.
const logoutPath = "/api/logout"

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "POST /api/register", s.handleRegister)
	s.handle(mux, "POST /login", s.handleLogin)
	s.handle(mux, "POST /api/login", s.handleLogin)
	s.handle(mux, "POST "+logoutPath, s.handleLogout)
	s.handle(mux, "GET /api/me", s.handleMe)
	s.handle(mux, "POST /api/forgot-password", s.handleForgotPassword)
	s.handle(mux, "POST /api/resend-verification", s.handleResendVerification)
	s.handle(mux, "GET /api/verify-email", s.handleVerifyEmail)
	s.handle(mux, "POST /api/reset-password", s.handleResetPassword)
	s.handle(mux, "POST /api/password", s.handleChangePassword)
	s.handle(mux, "POST /api/admin/users/{id}/status", s.handleSetStatus)
	s.handle(mux, "GET /{role}/dashboard", s.handleDashboard)
	s.handle(mux, "GET /{role}/dashboard/{rest...}", s.handleDashboard)

	var h http.Handler = mux
	h = s.withGuard(h)
	h = s.withSession(h)
	h = s.withCORS(h)
	h = s.withTracing(h)
	h = withRequestID(h)
	return h
}

// handle registers h and records its pattern as the route label.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		infoFrom(r.Context()).route = pattern
		h(w, r)
	})
}

// fail writes err and remembers it for the access log.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	infoFrom(r.Context()).err = err
	s.observe(operation, err)
	writeError(w, err)
}

func (s *Server) observe(operation string, err error) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveAuth(operation, err)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg auth.Registration
	if !decode(w, r, &reg) {
		return
	}
	profile, err := s.svc.Register(r.Context(), reg)
	if err != nil {
		s.fail(w, r, "register", err)
		return
	}
	s.observe("register", nil)
	resp := success(auth.MsgRegisterSuccess)
	resp.User = &profile
	writeJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, Response{Status: StatusError, Message: msgMissingFields})
		return
	}

	result, err := s.svc.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		s.fail(w, r, "login", err)
		return
	}
	s.observe("login", nil)

	s.setSessionCookie(w, result.Token, result.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, Response{
		Status:   StatusSuccess,
		Message:  auth.MsgLoginSuccess,
		User:     &result.User,
		Token:    result.Token,
		Redirect: result.Redirect,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Logout(r.Context(), s.tokenFrom(r))
	s.clearSessionCookie(w)
	if err != nil {
		s.fail(w, r, "logout", err)
		return
	}
	s.observe("logout", nil)
	resp := success(auth.MsgLogoutSuccess)
	resp.Redirect = s.table.LoginPath()
	writeJSON(w, http.StatusOK, resp)
}

// handleMe reports the current user. An anonymous caller gets success with no user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sc := auth.SessionFrom(r.Context())
	if !sc.Authenticated() {
		writeJSON(w, http.StatusOK, success("Not logged in."))
		return
	}
	profile := sc.User
	resp := success("Current user.")
	resp.User = &profile
	writeJSON(w, http.StatusOK, resp)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		s.fail(w, r, "forgot_password", err)
		return
	}
	s.observe("forgot_password", nil)
	writeJSON(w, http.StatusOK, success(auth.MsgResetRequested))
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.ResendVerification(r.Context(), req.Email); err != nil {
		s.fail(w, r, "resend_verification", err)
		return
	}
	s.observe("resend_verification", nil)
	writeJSON(w, http.StatusOK, success(auth.MsgVerificationSent))
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.fail(w, r, "verify_email", err)
		return
	}
	s.observe("verify_email", nil)
	resp := success(auth.MsgEmailVerified)
	resp.User = &profile
	resp.Redirect = s.table.LoginPath()
	writeJSON(w, http.StatusOK, resp)
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		s.fail(w, r, "reset_password", err)
		return
	}
	s.observe("reset_password", nil)
	resp := success(auth.MsgPasswordReset)
	resp.Redirect = s.table.LoginPath()
	writeJSON(w, http.StatusOK, resp)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	err := s.svc.ChangePassword(r.Context(), auth.SessionFrom(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		s.fail(w, r, "change_password", err)
		return
	}
	s.observe("change_password", nil)
	writeJSON(w, http.StatusOK, success(auth.MsgPasswordChanged))
}

type statusRequest struct {
	Status auth.Status `json:"status"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := ulid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: StatusError, Message: auth.MsgUserNotFound})
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}

	profile, err := s.svc.SetStatus(r.Context(), auth.SessionFrom(r.Context()), id, req.Status)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		// Administrators may learn that an ID does not exist.
		infoFrom(r.Context()).err = err
		s.observe("set_status", err)
		writeJSON(w, http.StatusNotFound, Response{Status: StatusError, Message: auth.MsgUserNotFound})
		return
	case errors.Is(err, auth.ErrAuth):
		infoFrom(r.Context()).err = err
		s.observe("set_status", err)
		writeJSON(w, http.StatusForbidden, Response{Status: StatusError, Message: auth.Message(err)})
		return
	case err != nil:
		s.fail(w, r, "set_status", err)
		return
	}
	s.observe("set_status", nil)
	resp := success(auth.MsgStatusUpdated)
	resp.User = &profile
	writeJSON(w, http.StatusOK, resp)
}

// handleDashboard answers for a role's dashboard. The guard has already run
// for paths in the table; the direct check covers tables that omit a role.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	role, err := auth.ParseRole(r.PathValue("role"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if d := s.decisionFor(r, role); !d.Allow {
		if wantsJSON(r) {
			writeJSON(w, http.StatusUnauthorized, Response{
				Status: StatusError, Message: auth.MessageUnauthenticated, Redirect: d.Redirect,
			})
			return
		}
		http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
		return
	}

	profile := auth.SessionFrom(r.Context()).User
	resp := success("Welcome, " + profile.DisplayName + ".")
	resp.User = &profile
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
