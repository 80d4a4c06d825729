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

// SessionRepository implements auth.SessionRepository with gorm.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	err := r.db.WithContext(ctx).Create(&sessionModel{
		ID:            s.ID.String(),
		UserID:        s.UserID.String(),
		Role:          string(s.Role),
		EmailVerified: s.EmailVerified,
		TokenHash:     s.TokenHash,
		UserAgent:     s.UserAgent,
		IPAddress:     s.IPAddress,
		ExpiresAt:     s.ExpiresAt,
		CreatedAt:     s.CreatedAt,
		LastSeenAt:    s.LastSeenAt,
	}).Error
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", s.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a session by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Session, error) {
	var m sessionModel
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return m.toDomain()
}

// UpdateLastSeen updates the LastSeenAt timestamp.
func (r *SessionRepository) UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	result := r.db.WithContext(ctx).Model(&sessionModel{}).Where("id = ?", id.String()).Update("last_seen_at", lastSeen)
	if result.Error != nil {
		return oops.Code("SESSION_UPDATE_LAST_SEEN_FAILED").With("id", id.String()).Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&sessionModel{}).Error; err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

// DeleteByUser removes every session of a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID.String()).Delete(&sessionModel{}).Error; err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}

// DeleteExpired removes expired sessions.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&sessionModel{})
	if result.Error != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").Wrap(result.Error)
	}
	return result.RowsAffected, nil
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
