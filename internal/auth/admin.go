// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Administrator messages.
const (
	MsgStatusUpdated = "Account status updated."
	MsgAdminOnly     = "Only administrators can change account status."
	MsgOwnStatus     = "You cannot change the status of your own account."
	MsgUserNotFound  = "User not found."
)

// SetStatus changes the status of userID on behalf of an administrator.
// Suspending an account destroys all of its sessions. Role is never changed.
func (s *Service) SetStatus(ctx context.Context, actor *SessionContext, userID ulid.ULID, status Status) (Profile, error) {
	if !actor.Authenticated() || actor.Role() != RoleAdmin {
		return Profile{}, authError("AUTH_FORBIDDEN", MsgAdminOnly)
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return Profile{}, err
	}
	if actor.Session.UserID == userID {
		return Profile{}, validationError("STATUS_OWN_ACCOUNT", MsgOwnStatus)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, oops.Code("USER_NOT_FOUND").
				With("user_id", userID.String()).
				Public(MsgUserNotFound).
				Wrap(err)
		}
		return Profile{}, providerError("STATUS_UPDATE_FAILED", "get user", err)
	}
	if user.Status == status {
		return user.Profile(), nil
	}

	if err := s.users.UpdateStatus(ctx, user.ID, status); err != nil {
		return Profile{}, providerError("STATUS_UPDATE_FAILED", "update status", err)
	}
	previous := user.Status
	user.Status = status

	if status == StatusSuspended {
		if err := s.invalidateUserSessions(ctx, user); err != nil {
			return Profile{}, providerError("STATUS_UPDATE_FAILED", "delete sessions", err)
		}
	}

	s.logger.InfoContext(ctx, "account status changed",
		"user_id", user.ID.String(),
		"from", string(previous),
		"to", string(status),
		"by", actor.Session.UserID.String())
	return user.Profile(), nil
}
