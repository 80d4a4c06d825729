// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

// Package auth provides the account, session and password primitives for
// Neighborhood Watch.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User from a validated Registration and a password hash
//   - NewSession - creates a Session with validated user, role and expiry
//   - NewOneTimeToken - creates a single-use verification or reset token record
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Service
//
// Service is the facade over the credential store. It covers registration,
// login, logout, current-user lookup, email verification, password reset and
// administrator status changes. Every error it returns carries one of the
// kinds ErrValidation, ErrAuth, ErrNotFound or ErrProvider (or none, for
// internal failures); transports turn them into user-readable results with
// Message and ResultOf.
package auth
