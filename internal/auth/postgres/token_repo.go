// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/Skets-max/Project-473/internal/auth"
)

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool poolIface
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool poolIface) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Create stores a new one-time token.
func (r *TokenRepository) Create(ctx context.Context, token *auth.OneTimeToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO one_time_tokens (id, user_id, purpose, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		token.ID.String(),
		token.UserID.String(),
		string(token.Purpose),
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert one_time_token").
			With("user_id", token.UserID.String()).
			With("purpose", string(token.Purpose)).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a token by purpose and hash.
func (r *TokenRepository) GetByTokenHash(ctx context.Context, purpose auth.Purpose, tokenHash string) (*auth.OneTimeToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, purpose, token_hash, expires_at, created_at
		FROM one_time_tokens
		WHERE purpose = $1 AND token_hash = $2
	`, string(purpose), tokenHash)

	var (
		token     auth.OneTimeToken
		idStr     string
		userIDStr string
		purp      string
	)
	err := row.Scan(&idStr, &userIDStr, &purp, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").
			With("purpose", string(purpose)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get token by hash").
			Wrap(err)
	}

	if token.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("TOKEN_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if token.UserID, err = ulid.Parse(userIDStr); err != nil {
		return nil, oops.Code("TOKEN_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}
	token.Purpose = auth.Purpose(purp)
	return &token, nil
}

// Delete removes a token by ID.
func (r *TokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM one_time_tokens WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "delete one_time_token").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes all of a user's tokens for one purpose.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID ulid.ULID, purpose auth.Purpose) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM one_time_tokens WHERE user_id = $1 AND purpose = $2
	`, userID.String(), string(purpose))
	if err != nil {
		return oops.Code("TOKEN_DELETE_BY_USER_FAILED").
			With("operation", "delete tokens by user").
			With("user_id", userID.String()).
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired tokens and returns the count.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM one_time_tokens WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.TokenRepository = (*TokenRepository)(nil)
