// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/pkg/errutil"
)

func TestTokenRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "user_id", "purpose", "token_hash", "expires_at", "created_at"}

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id, userID := ulid.Make(), ulid.Make()
		now := time.Now().UTC()
		mock.ExpectQuery(`FROM one_time_tokens`).
			WithArgs("verify_email", "hash").
			WillReturnRows(pgxmock.NewRows(columns).AddRow(
				id.String(), userID.String(), "verify_email", "hash", now.Add(time.Hour), now,
			))

		got, err := NewTokenRepository(mock).GetByTokenHash(ctx, auth.PurposeVerifyEmail, "hash")
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, auth.PurposeVerifyEmail, got.Purpose)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM one_time_tokens`).
			WithArgs("reset_password", "nope").
			WillReturnError(pgx.ErrNoRows)

		_, err = NewTokenRepository(mock).GetByTokenHash(ctx, auth.PurposeResetPassword, "nope")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "TOKEN_NOT_FOUND")
	})
}

func TestTokenRepository_Writes(t *testing.T) {
	ctx := context.Background()
	token := &auth.OneTimeToken{
		ID:        ulid.Make(),
		UserID:    ulid.Make(),
		Purpose:   auth.PurposeResetPassword,
		TokenHash: "hash",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}

	t.Run("create", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO one_time_tokens`).
			WithArgs(token.ID.String(), token.UserID.String(), "reset_password", "hash", token.ExpiresAt, token.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewTokenRepository(mock).Create(ctx, token))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete by user is scoped to purpose", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM one_time_tokens WHERE user_id = \$1 AND purpose = \$2`).
			WithArgs(token.UserID.String(), "reset_password").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, NewTokenRepository(mock).DeleteByUser(ctx, token.UserID, auth.PurposeResetPassword))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM one_time_tokens WHERE id`).
			WithArgs(token.ID.String()).
			WillReturnError(errors.New("boom"))

		err = NewTokenRepository(mock).Delete(ctx, token.ID)
		errutil.AssertErrorCode(t, err, "TOKEN_DELETE_FAILED")
	})

	t.Run("delete expired", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM one_time_tokens WHERE expires_at`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))

		n, err := NewTokenRepository(mock).DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
