// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSigningKeyLength is the shortest accepted HS256 key.
const MinSigningKeyLength = 32

// DefaultIssuer is the iss claim used when none is configured.
const DefaultIssuer = "neighborwatch"

// AccessClaims are carried by the bearer token handed to clients.
// The session secret makes a token useless once its session row is gone.
type AccessClaims struct {
	SessionID     string `json:"sid"`
	Secret        string `json:"sec"`
	Role          Role   `json:"role"`
	EmailVerified bool   `json:"ev"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses access tokens.
type TokenIssuer struct {
	key    []byte
	issuer string
}

// NewTokenIssuer creates a TokenIssuer. key must be at least MinSigningKeyLength bytes.
func NewTokenIssuer(key []byte, issuer string) (*TokenIssuer, error) {
	if len(key) < MinSigningKeyLength {
		return nil, oops.Code("JWT_KEY_TOO_SHORT").
			With("length", len(key)).
			Errorf("signing key must be at least %d bytes", MinSigningKeyLength)
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &TokenIssuer{key: key, issuer: issuer}, nil
}

// Issue signs a token for session, carrying the plaintext session secret.
func (t *TokenIssuer) Issue(session *Session, secret string) (string, error) {
	claims := AccessClaims{
		SessionID:     session.ID.String(),
		Secret:        secret,
		Role:          session.Role,
		EmailVerified: session.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   session.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", oops.Code("JWT_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
func (t *TokenIssuer) Parse(token string) (*AccessClaims, ulid.ULID, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return nil, ulid.ULID{}, oops.Code("JWT_INVALID").Wrap(err)
	}
	if !parsed.Valid {
		return nil, ulid.ULID{}, oops.Code("JWT_INVALID").Errorf("token is not valid")
	}
	sid, err := ulid.Parse(claims.SessionID)
	if err != nil {
		return nil, ulid.ULID{}, oops.Code("JWT_INVALID_SESSION").Wrap(err)
	}
	return claims, sid, nil
}
