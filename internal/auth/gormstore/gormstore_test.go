// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package gormstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/auth/gormstore"
	"github.com/Skets-max/Project-473/internal/store"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.OpenGorm(store.DriverSQLite, filepath.Join(t.TempDir(), "watch.db"))
	require.NoError(t, err)
	require.NoError(t, gormstore.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func member(t *testing.T, email string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(auth.Registration{
		Email:     email,
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      auth.RoleMember,
		Address:   "12 Main St, Townsville",
	}, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", auth.StatusPending)
	require.NoError(t, err)
	return user
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := gormstore.NewUserRepository(openDB(t))
	user := member(t, "alice@example.com")

	require.NoError(t, repo.Create(ctx, user))

	t.Run("lookup ignores email case", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "ALICE@Example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, auth.RoleMember, got.Role)
		assert.Equal(t, auth.StatusPending, got.Status)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.Create(ctx, member(t, "Alice@Example.com"))
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("updates", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, user.ID, auth.StatusActive))
		require.NoError(t, repo.UpdatePassword(ctx, user.ID, "$2b$10$replaced"))

		until := time.Now().Add(time.Minute).UTC()
		user.FailedAttempts = 7
		user.LockedUntil = &until
		require.NoError(t, repo.Update(ctx, user))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.StatusActive, got.Status)
		assert.Equal(t, "$2b$10$replaced", got.PasswordHash)
		assert.Equal(t, 7, got.FailedAttempts)
		require.NotNil(t, got.LockedUntil)
		assert.WithinDuration(t, until, *got.LockedUntil, time.Millisecond)

		user.RecordSuccess()
		require.NoError(t, repo.Update(ctx, user))
		got, err = repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, got.LockedUntil)
	})

	t.Run("update unknown user", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, member(t, "bob@example.com").ID, auth.StatusActive)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	users := gormstore.NewUserRepository(db)
	repo := gormstore.NewSessionRepository(db)

	user := member(t, "alice@example.com")
	require.NoError(t, users.Create(ctx, user))

	live, err := auth.NewSession(user, auth.HashSessionToken("live"), auth.ClientInfo{IPAddress: "10.0.0.1"}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	stale, err := auth.NewSession(user, auth.HashSessionToken("stale"), auth.ClientInfo{}, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
	assert.Equal(t, live.TokenHash, got.TokenHash)

	require.NoError(t, repo.UpdateLastSeen(ctx, live.ID, time.Now().UTC()))
	require.NoError(t, repo.DeleteByUser(ctx, user.ID))
	_, err = repo.GetByID(ctx, live.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.NoError(t, repo.Delete(ctx, live.ID), "deleting a missing session is not an error")
	assert.ErrorIs(t, repo.UpdateLastSeen(ctx, live.ID, time.Now()), auth.ErrNotFound)
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	users := gormstore.NewUserRepository(db)
	repo := gormstore.NewTokenRepository(db)

	user := member(t, "alice@example.com")
	require.NoError(t, users.Create(ctx, user))

	verify, err := auth.NewOneTimeToken(user.ID, auth.PurposeVerifyEmail, auth.HashSessionToken("v"), time.Hour)
	require.NoError(t, err)
	reset, err := auth.NewOneTimeToken(user.ID, auth.PurposeResetPassword, auth.HashSessionToken("r"), time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, verify))
	require.NoError(t, repo.Create(ctx, reset))

	_, err = repo.GetByTokenHash(ctx, auth.PurposeResetPassword, verify.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound, "purpose must match")

	got, err := repo.GetByTokenHash(ctx, auth.PurposeVerifyEmail, verify.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, verify.ID, got.ID)

	require.NoError(t, repo.DeleteByUser(ctx, user.ID, auth.PurposeVerifyEmail))
	_, err = repo.GetByTokenHash(ctx, auth.PurposeVerifyEmail, verify.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, reset.ID))
	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
