// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"time"

	"github.com/samber/oops"
)

// Lockout policy.
const (
	// LockoutDuration is how long an account stays locked after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of consecutive failures that locks the account.
	LockoutThreshold = 7
)

// IsLockedOut returns true if the lockout time is in the future.
func IsLockedOut(lockedUntil *time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(time.Now())
}

// ComputeLockoutTime returns the lockout timestamp for the given failure count.
// Returns nil if failures < LockoutThreshold.
func ComputeLockoutTime(failures int) *time.Time {
	if failures < LockoutThreshold {
		return nil
	}
	lockout := time.Now().UTC().Add(LockoutDuration)
	return &lockout
}

// LockoutRemaining returns the time until lockedUntil, or zero if not locked.
func LockoutRemaining(lockedUntil *time.Time) time.Duration {
	if !IsLockedOut(lockedUntil) {
		return 0
	}
	return time.Until(*lockedUntil)
}

const retryAfterKey = "retry_after"

// RetryAfter reports how long a locked-out caller should wait before trying
// again. It is zero for any error other than a lockout.
func RetryAfter(err error) time.Duration {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0
	}
	d, _ := oopsErr.Context()[retryAfterKey].(time.Duration)
	return d
}
