// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"gorm.io/gorm"

	"github.com/Skets-max/Project-473/internal/auth"
)

// TokenRepository implements auth.TokenRepository with gorm.
type TokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create stores a new one-time token.
func (r *TokenRepository) Create(ctx context.Context, t *auth.OneTimeToken) error {
	err := r.db.WithContext(ctx).Create(&tokenModel{
		ID:        t.ID.String(),
		UserID:    t.UserID.String(),
		Purpose:   string(t.Purpose),
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}).Error
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("user_id", t.UserID.String()).
			With("purpose", string(t.Purpose)).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a token by purpose and hash.
func (r *TokenRepository) GetByTokenHash(ctx context.Context, purpose auth.Purpose, tokenHash string) (*auth.OneTimeToken, error) {
	var m tokenModel
	err := r.db.WithContext(ctx).
		Where("purpose = ? AND token_hash = ?", string(purpose), tokenHash).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Code("TOKEN_NOT_FOUND").With("purpose", string(purpose)).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").Wrap(err)
	}
	return m.toDomain()
}

// Delete removes a token by ID.
func (r *TokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&tokenModel{}).Error; err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

// DeleteByUser removes a user's tokens for one purpose.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID ulid.ULID, purpose auth.Purpose) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID.String(), string(purpose)).
		Delete(&tokenModel{}).Error
	if err != nil {
		return oops.Code("TOKEN_DELETE_BY_USER_FAILED").
			With("user_id", userID.String()).
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes expired tokens.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&tokenModel{})
	if result.Error != nil {
		return 0, oops.Code("TOKEN_DELETE_EXPIRED_FAILED").Wrap(result.Error)
	}
	return result.RowsAffected, nil
}

var _ auth.TokenRepository = (*TokenRepository)(nil)
