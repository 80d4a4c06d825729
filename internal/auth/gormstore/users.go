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

// UserRepository implements auth.UserRepository with gorm.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	err := r.db.WithContext(ctx).Create(toUserModel(user)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return oops.Code("USER_DUPLICATE_EMAIL").
			With("email", user.Email).
			Wrap(auth.ErrDuplicateEmail)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return r.first(ctx, "id = ?", id.String())
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.first(ctx, "email_key = ?", auth.NormalizeEmail(email))
}

func (r *UserRepository) first(ctx context.Context, query string, arg string) (*auth.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).Where(query, arg).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("operation", "get user").Wrap(err)
	}
	return m.toDomain()
}

// Update saves profile, verification and lockout fields.
func (r *UserRepository) Update(ctx context.Context, user *auth.User) error {
	return r.update(ctx, user.ID, "USER_UPDATE_FAILED", map[string]any{
		"first_name":      user.FirstName,
		"last_name":       user.LastName,
		"phone":           user.Phone,
		"address":         user.Address,
		"email_verified":  user.EmailVerified,
		"failed_attempts": user.FailedAttempts,
		"locked_until":    user.LockedUntil,
	})
}

// UpdateStatus sets the account status.
func (r *UserRepository) UpdateStatus(ctx context.Context, id ulid.ULID, status auth.Status) error {
	return r.update(ctx, id, "USER_UPDATE_STATUS_FAILED", map[string]any{"status": string(status)})
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return r.update(ctx, id, "USER_UPDATE_PASSWORD_FAILED", map[string]any{"password_hash": passwordHash})
}

func (r *UserRepository) update(ctx context.Context, id ulid.ULID, code string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id.String()).Updates(fields)
	if result.Error != nil {
		return oops.Code(code).With("id", id.String()).Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
