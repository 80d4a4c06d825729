// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import "context"

// SessionContext is the explicit session handed to the route guard and to
// request handlers. A nil *SessionContext means no session.
type SessionContext struct {
	Session *Session
	User    Profile

	// VerificationWaived is set when deployment policy lets this role in
	// without a verified email.
	VerificationWaived bool
}

// Authenticated reports whether sc holds a live session.
func (sc *SessionContext) Authenticated() bool {
	return sc != nil && sc.Session != nil && !sc.Session.IsExpired()
}

// Role returns the current role from the freshly loaded user, or "" when unauthenticated.
func (sc *SessionContext) Role() Role {
	if !sc.Authenticated() {
		return ""
	}
	return sc.User.Role
}

// Verified reports whether the current user has verified their email or is
// exempt from verification.
func (sc *SessionContext) Verified() bool {
	return sc.Authenticated() && (sc.User.EmailVerified || sc.VerificationWaived)
}

type sessionKey struct{}

// WithSession returns a context carrying sc.
func WithSession(ctx context.Context, sc *SessionContext) context.Context {
	return context.WithValue(ctx, sessionKey{}, sc)
}

// SessionFrom returns the session stored by WithSession, or nil.
func SessionFrom(ctx context.Context) *SessionContext {
	sc, _ := ctx.Value(sessionKey{}).(*SessionContext)
	return sc
}
