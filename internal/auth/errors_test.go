// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/Skets-max/Project-473/internal/auth"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auth.Kind
	}{
		{"nil", nil, ""},
		{"validation", oops.Wrapf(auth.ErrValidation, "bad"), auth.KindValidation},
		{"auth", oops.Wrapf(auth.ErrAuth, "bad"), auth.KindAuth},
		{"not found", oops.Wrapf(auth.ErrNotFound, "missing"), auth.KindNotFound},
		{"provider", oops.Wrapf(auth.ErrProvider, "down"), auth.KindProvider},
		{"plain", errors.New("boom"), auth.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.KindOf(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	t.Run("not found is rendered as generic credential failure", func(t *testing.T) {
		err := oops.Code("USER_NOT_FOUND").Public("No account found with this email.").Wrap(auth.ErrNotFound)
		assert.Equal(t, auth.MessageInvalidCredentials, auth.Message(err))
	})

	t.Run("internal errors do not leak", func(t *testing.T) {
		err := errors.New("pq: connection refused at 10.0.0.3")
		assert.Equal(t, auth.MessageInternalFailure, auth.Message(err))
	})

	t.Run("public message is used", func(t *testing.T) {
		err := oops.Public("Email not verified.").Wrapf(auth.ErrAuth, "unverified")
		assert.Equal(t, "Email not verified.", auth.Message(err))
	})

	t.Run("provider fallback", func(t *testing.T) {
		err := oops.Wrapf(auth.ErrProvider, "smtp down")
		assert.Equal(t, auth.MessageProviderFailure, auth.Message(err))
	})
}

func TestResultOf(t *testing.T) {
	assert.Equal(t, auth.Result{Success: true, Message: "done"}, auth.ResultOf(nil, "done"))

	res := auth.ResultOf(auth.ValidatePassword("short"), "done")
	assert.False(t, res.Success)
	assert.Equal(t, auth.MsgPasswordTooShort, res.Message)
}
