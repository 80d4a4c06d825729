// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenTTL is how long a verification or reset link stays valid.
const DefaultTokenTTL = time.Hour

// Purpose says what a one-time token may be used for.
type Purpose string

// Token purposes.
const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

// OneTimeToken is a single-use, time-limited link secret. Only its hash is stored.
type OneTimeToken struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Purpose   Purpose
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewOneTimeToken creates a token record for userID with the given purpose and lifetime.
func NewOneTimeToken(userID ulid.ULID, purpose Purpose, tokenHash string, ttl time.Duration) (*OneTimeToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("TOKEN_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if purpose != PurposeVerifyEmail && purpose != PurposeResetPassword {
		return nil, oops.Code("TOKEN_INVALID_PURPOSE").Errorf("invalid purpose %q", purpose)
	}
	if tokenHash == "" {
		return nil, oops.Code("TOKEN_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("TOKEN_INVALID_TTL").Errorf("ttl must be positive")
	}
	now := time.Now().UTC()
	return &OneTimeToken{
		ID:        ulid.Make(),
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// IsExpired returns true if the token has expired.
func (t *OneTimeToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// GenerateOneTimeToken creates a random link secret and its hash.
func GenerateOneTimeToken() (token, hash string, err error) {
	return generateSecret("TOKEN_GENERATE_FAILED")
}

// TokenRepository manages one-time token persistence.
type TokenRepository interface {
	// Create stores a new token.
	Create(ctx context.Context, token *OneTimeToken) error

	// GetByTokenHash retrieves a token of the given purpose. Returns ErrNotFound if absent.
	GetByTokenHash(ctx context.Context, purpose Purpose, tokenHash string) (*OneTimeToken, error)

	// Delete removes a token by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes all of a user's tokens with the given purpose.
	DeleteByUser(ctx context.Context, userID ulid.ULID, purpose Purpose) error

	// DeleteExpired removes expired tokens and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
