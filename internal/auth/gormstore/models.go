// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

// Package gormstore implements the auth repositories with gorm, for
// deployments on MySQL or SQLite.
package gormstore

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"gorm.io/gorm"

	"github.com/Skets-max/Project-473/internal/auth"
)

type userModel struct {
	ID             string `gorm:"primaryKey;size:26"`
	Email          string `gorm:"size:254;not null"`
	EmailKey       string `gorm:"uniqueIndex;size:254;not null"`
	PasswordHash   string `gorm:"size:255;not null"`
	FirstName      string `gorm:"size:100;not null"`
	LastName       string `gorm:"size:100;not null"`
	Phone          string `gorm:"size:32"`
	Role           string `gorm:"size:16;not null;index"`
	Address        string `gorm:"size:255"`
	Status         string `gorm:"size:16;not null;default:pending"`
	EmailVerified  bool   `gorm:"not null;default:false"`
	FailedAttempts int    `gorm:"not null;default:0"`
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userModel) TableName() string { return "users" }

type sessionModel struct {
	ID            string    `gorm:"primaryKey;size:26"`
	UserID        string    `gorm:"size:26;not null;index"`
	Role          string    `gorm:"size:16;not null"`
	EmailVerified bool      `gorm:"not null"`
	TokenHash     string    `gorm:"size:64;not null"`
	UserAgent     string    `gorm:"size:512"`
	IPAddress     string    `gorm:"size:64"`
	ExpiresAt     time.Time `gorm:"index"`
	CreatedAt     time.Time
	LastSeenAt    time.Time
}

func (sessionModel) TableName() string { return "sessions" }

type tokenModel struct {
	ID        string    `gorm:"primaryKey;size:26"`
	UserID    string    `gorm:"size:26;not null;index:idx_token_user"`
	Purpose   string    `gorm:"size:32;not null;index:idx_token_user;uniqueIndex:idx_token_hash"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex:idx_token_hash"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (tokenModel) TableName() string { return "one_time_tokens" }

// AutoMigrate creates or updates the auth tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&userModel{}, &sessionModel{}, &tokenModel{}); err != nil {
		return oops.Code("MIGRATION_UP_FAILED").With("operation", "gorm automigrate").Wrap(err)
	}
	return nil
}

func toUserModel(u *auth.User) *userModel {
	return &userModel{
		ID:             u.ID.String(),
		Email:          u.Email,
		EmailKey:       auth.NormalizeEmail(u.Email),
		PasswordHash:   u.PasswordHash,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Phone:          u.Phone,
		Role:           string(u.Role),
		Address:        u.Address,
		Status:         string(u.Status),
		EmailVerified:  u.EmailVerified,
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    u.LockedUntil,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (m *userModel) toDomain() (*auth.User, error) {
	id, err := ulid.Parse(m.ID)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").With("id", m.ID).Wrap(err)
	}
	return &auth.User{
		ID:             id,
		Email:          m.Email,
		PasswordHash:   m.PasswordHash,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Phone:          m.Phone,
		Role:           auth.Role(m.Role),
		Address:        m.Address,
		Status:         auth.Status(m.Status),
		EmailVerified:  m.EmailVerified,
		FailedAttempts: m.FailedAttempts,
		LockedUntil:    m.LockedUntil,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}

func (m *sessionModel) toDomain() (*auth.Session, error) {
	id, err := ulid.Parse(m.ID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", m.ID).Wrap(err)
	}
	userID, err := ulid.Parse(m.UserID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").With("user_id", m.UserID).Wrap(err)
	}
	return &auth.Session{
		ID:            id,
		UserID:        userID,
		Role:          auth.Role(m.Role),
		EmailVerified: m.EmailVerified,
		TokenHash:     m.TokenHash,
		UserAgent:     m.UserAgent,
		IPAddress:     m.IPAddress,
		ExpiresAt:     m.ExpiresAt,
		CreatedAt:     m.CreatedAt,
		LastSeenAt:    m.LastSeenAt,
	}, nil
}

func (m *tokenModel) toDomain() (*auth.OneTimeToken, error) {
	id, err := ulid.Parse(m.ID)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ID").With("id", m.ID).Wrap(err)
	}
	userID, err := ulid.Parse(m.UserID)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_USER_ID").With("user_id", m.UserID).Wrap(err)
	}
	return &auth.OneTimeToken{
		ID:        id,
		UserID:    userID,
		Purpose:   auth.Purpose(m.Purpose),
		TokenHash: m.TokenHash,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}, nil
}
