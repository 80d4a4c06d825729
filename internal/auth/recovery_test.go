// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/pkg/errutil"
)

func TestService_ForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("sends reset link for existing account", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		user := activeUser(auth.RoleMember)
		var sent string

		f.users.On("GetByEmail", ctx, "alice@example.com").Return(user, nil)
		f.tokens.On("DeleteByUser", ctx, user.ID, auth.PurposeResetPassword).Return(nil)
		f.tokens.On("Create", ctx, mock.MatchedBy(func(tok *auth.OneTimeToken) bool {
			return tok.Purpose == auth.PurposeResetPassword &&
				tok.ExpiresAt.Sub(tok.CreatedAt) == time.Hour
		})).Return(nil)
		f.notifier.On("SendPasswordReset", ctx, user.Profile(), mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { sent = args.String(2) }).
			Return(nil)

		require.NoError(t, f.svc.ForgotPassword(ctx, "Alice@Example.com"))
		assert.Len(t, sent, 64)
	})

	t.Run("unknown email returns the same result", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		f.users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, auth.ErrNotFound)

		assert.NoError(t, f.svc.ForgotPassword(ctx, "ghost@example.com"))
	})

	t.Run("suspended account gets no link", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		user := activeUser(auth.RoleMember)
		user.Status = auth.StatusSuspended
		f.users.On("GetByEmail", ctx, "alice@example.com").Return(user, nil)

		assert.NoError(t, f.svc.ForgotPassword(ctx, "alice@example.com"))
	})

	t.Run("delivery and token failures are hidden", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		user := activeUser(auth.RoleMember)
		f.users.On("GetByEmail", ctx, "alice@example.com").Return(user, nil)
		f.tokens.On("DeleteByUser", ctx, user.ID, auth.PurposeResetPassword).Return(errors.New("down"))

		assert.NoError(t, f.svc.ForgotPassword(ctx, "alice@example.com"))
	})

	t.Run("lookup failure is a provider error", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		f.users.On("GetByEmail", ctx, "alice@example.com").Return(nil, errors.New("down"))

		err := f.svc.ForgotPassword(ctx, "alice@example.com")
		assert.ErrorIs(t, err, auth.ErrProvider)
	})
}

func TestService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	plain := "reset-token"
	hash := auth.HashSessionToken(plain)

	t.Run("sets new password and invalidates sessions", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		user := activeUser(auth.RoleMember)
		until := time.Now().Add(time.Minute)
		user.FailedAttempts = auth.LockoutThreshold
		user.LockedUntil = &until
		tok := &auth.OneTimeToken{
			ID: ulid.Make(), UserID: user.ID, Purpose: auth.PurposeResetPassword,
			TokenHash: hash, ExpiresAt: time.Now().Add(time.Hour),
		}

		f.tokens.On("GetByTokenHash", ctx, auth.PurposeResetPassword, hash).Return(tok, nil)
		f.tokens.On("Delete", ctx, tok.ID).Return(nil)
		f.users.On("GetByID", ctx, user.ID).Return(user, nil)
		f.hasher.On("Hash", "N3w!Passw").Return("$argon2id$new", nil)
		f.users.On("UpdatePassword", ctx, user.ID, "$argon2id$new").Return(nil)
		f.users.On("Update", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.FailedAttempts == 0 && u.LockedUntil == nil
		})).Return(nil)
		f.tokens.On("DeleteByUser", ctx, user.ID, auth.PurposeResetPassword).Return(nil)
		f.sessions.On("DeleteByUser", ctx, user.ID).Return(nil)

		require.NoError(t, f.svc.ResetPassword(ctx, plain, "N3w!Passw"))
		require.Len(t, f.events, 1)
		assert.Equal(t, auth.SessionInvalidated, f.events[0].Type)
	})

	t.Run("weak password is rejected before consuming the token", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		err := f.svc.ResetPassword(ctx, plain, "weak")
		errutil.AssertErrorCode(t, err, "PASSWORD_TOO_SHORT")
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		f.tokens.On("GetByTokenHash", ctx, auth.PurposeResetPassword, hash).Return(nil, auth.ErrNotFound)

		err := f.svc.ResetPassword(ctx, plain, "N3w!Passw")
		assert.ErrorIs(t, err, auth.ErrValidation)
		assert.Equal(t, auth.MsgInvalidLink, auth.Message(err))
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	session := func(user *auth.User) *auth.SessionContext {
		return &auth.SessionContext{
			Session: &auth.Session{ID: ulid.Make(), UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)},
			User:    user.Profile(),
		}
	}

	t.Run("changes password", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		user := activeUser(auth.RoleMember)

		f.users.On("GetByID", ctx, user.ID).Return(user, nil)
		f.hasher.On("Verify", "Abcd123!", storedHash).Return(true, nil)
		f.hasher.On("Hash", "N3w!Passw").Return("$argon2id$new", nil)
		f.users.On("UpdatePassword", ctx, user.ID, "$argon2id$new").Return(nil)

		assert.NoError(t, f.svc.ChangePassword(ctx, session(user), "Abcd123!", "N3w!Passw"))
	})

	t.Run("requires a session", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		err := f.svc.ChangePassword(ctx, nil, "Abcd123!", "N3w!Passw")
		errutil.AssertErrorCode(t, err, "AUTH_UNAUTHENTICATED")
		assert.Equal(t, auth.MsgLoginRequired, auth.Message(err))
	})

	t.Run("wrong current password", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		user := activeUser(auth.RoleMember)

		f.users.On("GetByID", ctx, user.ID).Return(user, nil)
		f.hasher.On("Verify", "Wrong123!", storedHash).Return(false, nil)

		err := f.svc.ChangePassword(ctx, session(user), "Wrong123!", "N3w!Passw")
		errutil.AssertErrorCode(t, err, "AUTH_CURRENT_PASSWORD")
	})

	t.Run("new password must meet policy", func(t *testing.T) {
		f := newFixture(t, auth.DefaultPolicy())
		user := activeUser(auth.RoleMember)

		err := f.svc.ChangePassword(ctx, session(user), "Abcd123!", "alllowercase1!")
		errutil.AssertErrorCode(t, err, "PASSWORD_NO_UPPERCASE")
	})
}
