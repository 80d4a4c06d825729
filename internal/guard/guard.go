// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

// Package guard decides whether a session may reach a role's resources.
//
// Check is the pure decision for a single required role. Table maps
// request paths to the role that owns them and is loaded from a
// declarative policy file.
package guard

import (
	"github.com/Skets-max/Project-473/internal/auth"
)

// DefaultLoginPath is where denied navigation is sent.
const DefaultLoginPath = "/login"

// Reason explains a decision. Callers must not vary behavior by reason;
// every denial redirects to the login page. Reasons exist for logs and metrics.
type Reason string

// Decision reasons.
const (
	ReasonAllowed         Reason = "allowed"
	ReasonPublic          Reason = "public"
	ReasonNoSession       Reason = "no_session"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonUnverified      Reason = "unverified"
	ReasonRoleMismatch    Reason = "role_mismatch"
)

// Decision is the outcome of a guard check.
type Decision struct {
	Allow    bool
	Redirect string
	Reason   Reason
}

func allow(reason Reason) Decision {
	return Decision{Allow: true, Reason: reason}
}

func deny(loginPath string, reason Reason) Decision {
	return Decision{Redirect: loginPath, Reason: reason}
}

// Check decides whether sc may access resources owned by required.
// Roles do not nest: an admin session is denied member resources.
func Check(sc *auth.SessionContext, required auth.Role) Decision {
	return check(sc, required, DefaultLoginPath)
}

func check(sc *auth.SessionContext, required auth.Role, loginPath string) Decision {
	switch {
	case sc == nil || sc.Session == nil:
		return deny(loginPath, ReasonNoSession)
	case !sc.Authenticated():
		return deny(loginPath, ReasonUnauthenticated)
	case !sc.Verified():
		return deny(loginPath, ReasonUnverified)
	case sc.Role() != required:
		return deny(loginPath, ReasonRoleMismatch)
	}
	return allow(ReasonAllowed)
}
