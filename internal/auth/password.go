// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"strings"
	"unicode/utf8"
)

// Password policy.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128

	// PasswordSymbols is the set a password must draw at least one character from.
	PasswordSymbols = "@$!%*?&"
)

// Password policy messages, one per rule.
const (
	MsgPasswordRequired  = "Password is required"
	MsgPasswordTooShort  = "Password must be at least 8 characters long"
	MsgPasswordTooLong   = "Password must be at most 128 characters long"
	MsgPasswordLowercase = "Password must contain at least one lowercase letter"
	MsgPasswordUppercase = "Password must contain at least one uppercase letter"
	MsgPasswordDigit     = "Password must contain at least one number"
	MsgPasswordSymbol    = "Password must contain at least one special character (@$!%*?&)"
)

// ValidatePassword checks password against the strength policy.
// The returned error is a validation error naming the first rule that failed.
func ValidatePassword(password string) error {
	if password == "" {
		return validationError("PASSWORD_REQUIRED", MsgPasswordRequired)
	}
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return validationError("PASSWORD_TOO_SHORT", MsgPasswordTooShort)
	}
	if n > MaxPasswordLength {
		return validationError("PASSWORD_TOO_LONG", MsgPasswordTooLong)
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}

	switch {
	case !lower:
		return validationError("PASSWORD_NO_LOWERCASE", MsgPasswordLowercase)
	case !upper:
		return validationError("PASSWORD_NO_UPPERCASE", MsgPasswordUppercase)
	case !digit:
		return validationError("PASSWORD_NO_DIGIT", MsgPasswordDigit)
	case !symbol:
		return validationError("PASSWORD_NO_SYMBOL", MsgPasswordSymbol)
	}
	return nil
}
