// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Error kinds. Errors returned from this package wrap at most one of them.
var (
	// ErrValidation marks malformed input, rejected before any store call.
	ErrValidation = errors.New("validation failed")

	// ErrAuth marks credential mismatch, unverified email or suspended account.
	ErrAuth = errors.New("authentication failed")

	// ErrNotFound is returned when a requested entity does not exist.
	// It is never shown to users as such.
	ErrNotFound = errors.New("not found")

	// ErrProvider marks store, delivery or rate-limit conditions.
	ErrProvider = errors.New("provider unavailable")

	// ErrDuplicateEmail is returned by repositories when the email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Kind classifies an error for presentation.
type Kind string

// Error kinds as reported by KindOf.
const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindProvider   Kind = "provider"
	KindInternal   Kind = "internal"
)

// User-facing fallback messages.
const (
	MessageInvalidCredentials = "Invalid email or password."
	MessageProviderFailure    = "Service temporarily unavailable. Please try again later."
	MessageInternalFailure    = "Something went wrong. Please try again."
	MessageInvalidInput       = "Invalid input."
	MessageUnauthenticated    = "Please log in to continue."
)

// KindOf returns the kind carried by err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrProvider):
		return KindProvider
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// Message returns the message to show a user for err.
// NotFound is rendered as the generic credential failure to avoid account enumeration.
func Message(err error) string {
	switch KindOf(err) {
	case "":
		return ""
	case KindNotFound:
		return MessageInvalidCredentials
	case KindInternal:
		return MessageInternalFailure
	case KindValidation:
		return oops.GetPublic(err, MessageInvalidInput)
	case KindAuth:
		return oops.GetPublic(err, MessageInvalidCredentials)
	default:
		return oops.GetPublic(err, MessageProviderFailure)
	}
}

// Result is the outcome shape every operation is reduced to at the boundary.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ResultOf converts an operation outcome to a Result.
func ResultOf(err error, successMessage string) Result {
	if err != nil {
		return Result{Success: false, Message: Message(err)}
	}
	return Result{Success: true, Message: successMessage}
}

func validationError(code, message string) error {
	return oops.Code(code).Public(message).Wrapf(ErrValidation, "%s", message)
}

func authError(code, message string) error {
	return oops.Code(code).Public(message).Wrapf(ErrAuth, "%s", message)
}

// providerError wraps an infrastructure failure so it is reported as ErrProvider
// while keeping the cause in the chain for logs.
func providerError(code, operation string, cause error) error {
	return oops.Code(code).
		With("operation", operation).
		With("cause", cause.Error()).
		Public(MessageProviderFailure).
		Wrapf(ErrProvider, "%s", operation)
}
