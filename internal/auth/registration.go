// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"context"
	"errors"
	"slices"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Registration and verification messages.
const (
	MsgRegisterSuccess  = "Registration successful! Please check your email to verify your account. You must verify your email before you can login."
	MsgDuplicateEmail   = "This email is already registered. Please use a different email or login."
	MsgInvalidRole      = "Please select a valid account type"
	MsgVerificationSent = "If an unverified account exists for this email, a verification link has been sent."
	MsgEmailVerified    = "Your email has been verified. You can now log in."
	MsgInvalidLink      = "This link is invalid or has expired."
	MsgAdminCreated     = "Admin account created."
	MsgAdminExists      = "Admin account already exists."
	msgEmailNotAdmin    = "This email belongs to a non-admin account."
)

// Register creates a self-service account and sends a verification link.
// A duplicate email fails without writing anything. A delivery failure is
// logged and does not fail the registration.
func (s *Service) Register(ctx context.Context, reg Registration) (Profile, error) {
	reg.Normalize()
	if err := reg.Validate(); err != nil {
		return Profile{}, err
	}
	if !slices.Contains(s.policy.SelfServiceRoles, reg.Role) {
		return Profile{}, validationError("ROLE_NOT_ALLOWED", MsgInvalidRole)
	}

	_, err := s.users.GetByEmail(ctx, reg.Email)
	switch {
	case err == nil:
		return Profile{}, duplicateEmail()
	case !errors.Is(err, ErrNotFound):
		return Profile{}, providerError("REGISTER_FAILED", "get user by email", err)
	}

	user, err := s.createUser(ctx, reg, s.policy.RegistrationStatus, false)
	if err != nil {
		return Profile{}, err
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(), "role", string(user.Role), "status", string(user.Status))

	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to send verification email",
			"user_id", user.ID.String(), "error", err)
	}
	return user.Profile(), nil
}

// CreateAdmin creates an active, verified admin account. It is idempotent on
// email: if an admin with that email exists, its profile is returned with
// created=false.
func (s *Service) CreateAdmin(ctx context.Context, reg Registration) (profile Profile, created bool, err error) {
	reg.Role = RoleAdmin
	reg.Normalize()
	if err := reg.Validate(); err != nil {
		return Profile{}, false, err
	}

	existing, err := s.users.GetByEmail(ctx, reg.Email)
	switch {
	case err == nil:
		if existing.Role != RoleAdmin {
			return Profile{}, false, validationError("ADMIN_EMAIL_TAKEN", msgEmailNotAdmin)
		}
		return existing.Profile(), false, nil
	case !errors.Is(err, ErrNotFound):
		return Profile{}, false, providerError("ADMIN_CREATE_FAILED", "get user by email", err)
	}

	user, err := s.createUser(ctx, reg, StatusActive, true)
	if err != nil {
		return Profile{}, false, err
	}
	s.logger.InfoContext(ctx, "admin account created", "user_id", user.ID.String())
	return user.Profile(), true, nil
}

func (s *Service) createUser(ctx context.Context, reg Registration, status Status, verified bool) (*User, error) {
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}
	reg.Password = ""

	user, err := NewUser(reg, hash, status)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "create user").Wrap(err)
	}
	user.EmailVerified = verified

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, duplicateEmail()
		}
		return nil, providerError("REGISTER_FAILED", "persist user", err)
	}
	return user, nil
}

func duplicateEmail() error {
	return oops.Code("REGISTER_DUPLICATE_EMAIL").
		Public(MsgDuplicateEmail).
		Wrapf(errors.Join(ErrValidation, ErrDuplicateEmail), "%s", MsgDuplicateEmail)
}

// ResendVerification sends a fresh verification link. The outcome is the same
// whether or not the email names an account, so callers cannot probe for one.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return providerError("VERIFY_RESEND_FAILED", "get user by email", err)
	}
	if user.EmailVerified || user.Status == StatusSuspended {
		return nil
	}
	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to resend verification email",
			"user_id", user.ID.String(), "error", err)
	}
	return nil
}

func (s *Service) sendVerification(ctx context.Context, user *User) error {
	token, err := s.issueOneTimeToken(ctx, user.ID, PurposeVerifyEmail)
	if err != nil {
		return err
	}
	return s.notifier.SendVerification(ctx, user.Profile(), token)
}

// issueOneTimeToken replaces any outstanding token of the same purpose.
func (s *Service) issueOneTimeToken(ctx context.Context, userID ulid.ULID, purpose Purpose) (string, error) {
	token, hash, err := GenerateOneTimeToken()
	if err != nil {
		return "", err
	}
	record, err := NewOneTimeToken(userID, purpose, hash, s.policy.TokenTTL)
	if err != nil {
		return "", err
	}
	if err := s.tokens.DeleteByUser(ctx, userID, purpose); err != nil {
		return "", oops.Code("TOKEN_CREATE_FAILED").With("operation", "delete previous tokens").Wrap(err)
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return "", oops.Code("TOKEN_CREATE_FAILED").With("operation", "persist token").Wrap(err)
	}
	return token, nil
}

// consumeOneTimeToken resolves and deletes a token. Unknown, expired and
// orphaned tokens all report MsgInvalidLink.
func (s *Service) consumeOneTimeToken(ctx context.Context, purpose Purpose, token string) (*User, error) {
	if token == "" {
		return nil, validationError("TOKEN_INVALID", MsgInvalidLink)
	}
	record, err := s.tokens.GetByTokenHash(ctx, purpose, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, validationError("TOKEN_INVALID", MsgInvalidLink)
		}
		return nil, providerError("TOKEN_LOOKUP_FAILED", "get token", err)
	}
	if err := s.tokens.Delete(ctx, record.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, providerError("TOKEN_CONSUME_FAILED", "delete token", err)
	}
	if record.IsExpired() {
		return nil, validationError("TOKEN_EXPIRED", MsgInvalidLink)
	}
	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, validationError("TOKEN_INVALID", MsgInvalidLink)
		}
		return nil, providerError("TOKEN_LOOKUP_FAILED", "get user", err)
	}
	return user, nil
}

// VerifyEmail consumes a verification link, marks the email verified and
// activates a pending account unless approval is required.
func (s *Service) VerifyEmail(ctx context.Context, token string) (Profile, error) {
	user, err := s.consumeOneTimeToken(ctx, PurposeVerifyEmail, token)
	if err != nil {
		return Profile{}, err
	}

	user.EmailVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return Profile{}, providerError("VERIFY_FAILED", "update user", err)
	}
	if user.Status == StatusPending && !s.policy.RequireApproval {
		if err := s.users.UpdateStatus(ctx, user.ID, StatusActive); err != nil {
			return Profile{}, providerError("VERIFY_FAILED", "activate user", err)
		}
		user.Status = StatusActive
	}
	if err := s.tokens.DeleteByUser(ctx, user.ID, PurposeVerifyEmail); err != nil {
		s.logger.WarnContext(ctx, "failed to delete verification tokens",
			"user_id", user.ID.String(), "error", err)
	}

	s.logger.InfoContext(ctx, "email verified", "user_id", user.ID.String())
	return user.Profile(), nil
}
