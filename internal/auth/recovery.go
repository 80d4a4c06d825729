// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Password recovery messages.
const (
	MsgResetRequested  = "If an account exists for this email, a password reset link has been sent."
	MsgPasswordReset   = "Your password has been reset. Please log in with your new password."
	MsgPasswordChanged = "Password updated successfully!"
	MsgLoginRequired   = "Please login again to change your password."
	MsgCurrentPassword = "Current password is incorrect."
)

// ForgotPassword sends a single-use reset link if email names an active or
// pending account. Unknown and suspended accounts get the same nil result.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return providerError("RESET_REQUEST_FAILED", "get user by email", err)
	}
	if user.Status == StatusSuspended {
		return nil
	}

	token, err := s.issueOneTimeToken(ctx, user.ID, PurposeResetPassword)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to create password reset token",
			"user_id", user.ID.String(), "error", err)
		return nil
	}
	if err := s.notifier.SendPasswordReset(ctx, user.Profile(), token); err != nil {
		s.logger.WarnContext(ctx, "failed to send password reset email",
			"user_id", user.ID.String(), "error", err)
	}
	return nil
}

// ResetPassword consumes a reset link and sets a new password. Every session
// of the user is invalidated and any lockout is cleared.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.consumeOneTimeToken(ctx, PurposeResetPassword, token)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	user.RecordSuccess()
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to clear lockout after reset",
			"user_id", user.ID.String(), "error", err)
	}
	if err := s.tokens.DeleteByUser(ctx, user.ID, PurposeResetPassword); err != nil {
		s.logger.WarnContext(ctx, "failed to delete reset tokens",
			"user_id", user.ID.String(), "error", err)
	}
	if err := s.invalidateUserSessions(ctx, user); err != nil {
		return providerError("RESET_FAILED", "delete sessions", err)
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID.String())
	return nil
}

// ChangePassword replaces the password of the session's user after checking
// the current one.
func (s *Service) ChangePassword(ctx context.Context, sc *SessionContext, currentPassword, newPassword string) error {
	if !sc.Authenticated() {
		return authError("AUTH_UNAUTHENTICATED", MsgLoginRequired)
	}
	if currentPassword == "" {
		return validationError("PASSWORD_REQUIRED", MsgPasswordRequired)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, sc.Session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return authError("AUTH_UNAUTHENTICATED", MsgLoginRequired)
		}
		return providerError("PASSWORD_CHANGE_FAILED", "get user", err)
	}
	valid, err := s.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return oops.Code("PASSWORD_CHANGE_FAILED").With("operation", "verify password").Wrap(err)
	}
	if !valid {
		return authError("AUTH_CURRENT_PASSWORD", MsgCurrentPassword)
	}
	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", user.ID.String())
	return nil
}

func (s *Service) setPassword(ctx context.Context, userID ulid.ULID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return providerError("PASSWORD_UPDATE_FAILED", "update password", err)
	}
	return nil
}
