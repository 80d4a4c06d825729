// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/oops"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skets-max/Project-473/internal/auth"
)

func TestIsLockedOut(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Minute)

	assert.False(t, auth.IsLockedOut(nil))
	assert.False(t, auth.IsLockedOut(&past))
	assert.True(t, auth.IsLockedOut(&future))
}

func TestComputeLockoutTime(t *testing.T) {
	assert.Nil(t, auth.ComputeLockoutTime(0))
	assert.Nil(t, auth.ComputeLockoutTime(auth.LockoutThreshold-1))

	lockout := auth.ComputeLockoutTime(auth.LockoutThreshold)
	require.NotNil(t, lockout)
	assert.WithinDuration(t, time.Now().Add(auth.LockoutDuration), *lockout, time.Second)
}

func TestLockoutRemaining(t *testing.T) {
	assert.Zero(t, auth.LockoutRemaining(nil))

	until := time.Now().Add(10 * time.Minute)
	remaining := auth.LockoutRemaining(&until)
	assert.Greater(t, remaining, 9*time.Minute)
	assert.LessOrEqual(t, remaining, 10*time.Minute)
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, auth.RetryAfter(nil))
	assert.Zero(t, auth.RetryAfter(errors.New("plain")))
	assert.Zero(t, auth.RetryAfter(oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(auth.ErrAuth)))
}
