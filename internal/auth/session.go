// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session secret configuration.
const (
	SessionTokenBytes = 32 // 32 bytes = 64 hex chars
	DefaultSessionTTL = 24 * time.Hour
)

// Session is an authenticated login. Only the hash of its secret is stored.
type Session struct {
	ID            ulid.ULID
	UserID        ulid.ULID
	Role          Role
	EmailVerified bool
	TokenHash     string
	UserAgent     string
	IPAddress     string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	LastSeenAt    time.Time
}

// NewSession creates a validated Session.
// UserAgent and IPAddress are optional and may be empty.
func NewSession(user *User, tokenHash string, client ClientInfo, expiresAt time.Time) (*Session, error) {
	if user == nil || user.ID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if !user.Role.Valid() {
		return nil, oops.Code("SESSION_INVALID_ROLE").Errorf("invalid role %q", user.Role)
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now().UTC()
	return &Session{
		ID:            ulid.Make(),
		UserID:        user.ID,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		TokenHash:     tokenHash,
		UserAgent:     client.UserAgent,
		IPAddress:     client.IPAddress,
		ExpiresAt:     expiresAt.UTC(),
		CreatedAt:     now,
		LastSeenAt:    now,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// ClientInfo describes the client that opened a session.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// GenerateSessionToken creates a secure random secret and its hash.
// The plaintext goes to the client; only the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	return generateSecret("SESSION_TOKEN_GENERATE_FAILED")
}

func generateSecret(code string) (token, hash string, err error) {
	b := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", oops.Code(code).
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	token = hex.EncodeToString(b)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the hex SHA-256 of a secret.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifySessionToken checks a plaintext secret against a stored hash in constant time.
func VerifySessionToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashSessionToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByID retrieves a session by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Session, error)

	// UpdateLastSeen updates the LastSeenAt timestamp.
	UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes every session of a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteExpired removes expired sessions and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
