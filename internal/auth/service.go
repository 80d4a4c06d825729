// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Notifier delivers verification and password reset links.
type Notifier interface {
	SendVerification(ctx context.Context, user Profile, token string) error
	SendPasswordReset(ctx context.Context, user Profile, token string) error
}

// Deps are the collaborators a Service needs.
type Deps struct {
	Users    UserRepository
	Sessions SessionRepository
	Tokens   TokenRepository
	Hasher   PasswordHasher
	Issuer   *TokenIssuer
	Notifier Notifier
}

// Policy holds deployment-dependent account rules.
type Policy struct {
	// RegistrationStatus is the status given to self-registered accounts.
	RegistrationStatus Status

	// RequireApproval keeps verified accounts pending until an administrator activates them.
	RequireApproval bool

	// AdminSkipVerification lets admin accounts log in without a verified email.
	AdminSkipVerification bool

	SessionTTL time.Duration
	TokenTTL   time.Duration

	// SelfServiceRoles are the roles the public registration form may request.
	SelfServiceRoles []Role
}

// DefaultPolicy returns the rules used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		RegistrationStatus: StatusPending,
		SessionTTL:         DefaultSessionTTL,
		TokenTTL:           DefaultTokenTTL,
		SelfServiceRoles:   []Role{RoleSecurity, RoleMember},
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.RegistrationStatus == "" {
		p.RegistrationStatus = d.RegistrationStatus
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = d.SessionTTL
	}
	if p.TokenTTL <= 0 {
		p.TokenTTL = d.TokenTTL
	}
	if len(p.SelfServiceRoles) == 0 {
		p.SelfServiceRoles = d.SelfServiceRoles
	}
	return p
}

// SessionEventType says what happened to a session.
type SessionEventType string

// Session event types.
const (
	SessionCreated     SessionEventType = "created"
	SessionDestroyed   SessionEventType = "destroyed"
	SessionInvalidated SessionEventType = "invalidated"
)

// SessionEvent is delivered to listeners registered with OnSessionChange.
// SessionID is zero when every session of UserID was invalidated at once.
type SessionEvent struct {
	Type      SessionEventType
	SessionID ulid.ULID
	UserID    ulid.ULID
	Role      Role
}

// Service is the facade over the credential store.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	tokens   TokenRepository
	hasher   PasswordHasher
	issuer   *TokenIssuer
	notifier Notifier
	policy   Policy
	logger   *slog.Logger

	mu        sync.RWMutex
	listeners []func(SessionEvent)
}

// dummyPasswordHash is verified when a login names an unknown email so the
// response takes as long as a real check. It never matches a password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// NewService creates a Service with a no-op logger.
// Returns an error if any required dependency is nil.
func NewService(deps Deps, policy Policy) (*Service, error) {
	return NewServiceWithLogger(deps, policy, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a Service with the provided logger.
// Returns an error if any required dependency is nil.
func NewServiceWithLogger(deps Deps, policy Policy, logger *slog.Logger) (*Service, error) {
	switch {
	case deps.Users == nil:
		return nil, oops.Errorf("users repository is required")
	case deps.Sessions == nil:
		return nil, oops.Errorf("sessions repository is required")
	case deps.Tokens == nil:
		return nil, oops.Errorf("tokens repository is required")
	case deps.Hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case deps.Issuer == nil:
		return nil, oops.Errorf("token issuer is required")
	case deps.Notifier == nil:
		return nil, oops.Errorf("notifier is required")
	case logger == nil:
		return nil, oops.Errorf("logger is required")
	}
	policy = policy.withDefaults()
	if _, err := ParseStatus(string(policy.RegistrationStatus)); err != nil {
		return nil, oops.Errorf("invalid registration status %q", policy.RegistrationStatus)
	}

	return &Service{
		users:    deps.Users,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		hasher:   deps.Hasher,
		issuer:   deps.Issuer,
		notifier: deps.Notifier,
		policy:   policy,
		logger:   logger,
	}, nil
}

// Policy returns the effective account rules.
func (s *Service) Policy() Policy {
	return s.policy
}

// OnSessionChange registers fn to be called after sessions are created,
// destroyed or invalidated. Listeners run synchronously and must not block.
func (s *Service) OnSessionChange(fn func(SessionEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) emit(ev SessionEvent) {
	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Session  *Session
	Token    string
	User     Profile
	Redirect string
}

// Login messages.
const (
	MsgLoginSuccess     = "Login successful!"
	MsgEmailNotVerified = "Email not verified. Please verify your email before logging in."
	MsgAccountSuspended = "This account has been suspended. Please contact support."
	MsgAwaitingApproval = "Your account is awaiting administrator approval."
	MsgTooManyAttempts  = "Too many failed attempts. Please try again later."
	MsgLogoutSuccess    = "Logged out successfully"
)

// Login authenticates a user and creates a session.
// Unknown emails and wrong passwords produce the same error, and an unknown
// email still runs a full hash verification.
func (s *Service) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, validationError("EMAIL_REQUIRED", "Email is required")
	}
	if password == "" {
		return nil, validationError("PASSWORD_REQUIRED", MsgPasswordRequired)
	}

	user, lookupErr := s.users.GetByEmail(ctx, email)
	exists := lookupErr == nil
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return nil, providerError("AUTH_LOGIN_FAILED", "get user by email", lookupErr)
	}

	target := dummyPasswordHash
	if exists {
		target = user.PasswordHash
	}

	valid, verifyErr := s.hasher.Verify(password, target)
	if verifyErr != nil && exists {
		s.logger.WarnContext(ctx, "stored password hash is unreadable",
			"user_id", user.ID.String(), "error", verifyErr)
	}

	if !exists || !valid {
		if exists {
			user.RecordFailure()
			if err := s.users.Update(ctx, user); err != nil {
				s.logger.WarnContext(ctx, "failed to record login failure",
					"user_id", user.ID.String(), "error", err)
			}
		}
		return nil, authError("AUTH_INVALID_CREDENTIALS", MessageInvalidCredentials)
	}

	// Lockout is checked after verification so timing does not reveal it.
	if user.IsLocked() {
		return nil, oops.Code("AUTH_ACCOUNT_LOCKED").
			With("locked_until", user.LockedUntil).
			With(retryAfterKey, LockoutRemaining(user.LockedUntil)).
			Public(MsgTooManyAttempts).
			Wrapf(ErrProvider, "account is temporarily locked")
	}

	if user.Status == StatusSuspended {
		return nil, authError("AUTH_ACCOUNT_SUSPENDED", MsgAccountSuspended)
	}
	if !user.EmailVerified && !s.verificationWaived(user.Role) {
		return nil, authError("AUTH_EMAIL_NOT_VERIFIED", MsgEmailNotVerified)
	}
	if user.Status == StatusPending && s.policy.RequireApproval {
		return nil, authError("AUTH_AWAITING_APPROVAL", MsgAwaitingApproval)
	}

	user.RecordSuccess()
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, err := s.hasher.Hash(password); err == nil {
			user.PasswordHash = newHash
			if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
				s.logger.WarnContext(ctx, "failed to upgrade password hash",
					"user_id", user.ID.String(), "error", err)
			}
		}
	}
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to reset login failures",
			"user_id", user.ID.String(), "error", err)
	}

	secret, secretHash, err := GenerateSessionToken()
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "generate session token").Wrap(err)
	}
	session, err := NewSession(user, secretHash, client, time.Now().Add(s.policy.SessionTTL))
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "create session").Wrap(err)
	}
	token, err := s.issuer.Issue(session, secret)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue access token").Wrap(err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, providerError("AUTH_SESSION_CREATE_FAILED", "persist session", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID.String(), "session_id", session.ID.String(), "role", string(user.Role))
	s.emit(SessionEvent{Type: SessionCreated, SessionID: session.ID, UserID: user.ID, Role: user.Role})

	return &LoginResult{
		Session:  session,
		Token:    token,
		User:     user.Profile(),
		Redirect: user.Role.DashboardPath(),
	}, nil
}

func (s *Service) verificationWaived(role Role) bool {
	return role == RoleAdmin && s.policy.AdminSkipVerification
}

// Logout destroys the session behind token. It is idempotent: an empty,
// invalid or already-destroyed token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, sid, err := s.issuer.Parse(token)
	if err != nil {
		return nil //nolint:nilerr // an unreadable token has no session to destroy
	}
	session, err := s.sessions.GetByID(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return providerError("AUTH_LOGOUT_FAILED", "get session", err)
	}
	if !VerifySessionToken(claims.Secret, session.TokenHash) {
		return nil
	}
	if err := s.sessions.Delete(ctx, sid); err != nil && !errors.Is(err, ErrNotFound) {
		return providerError("AUTH_LOGOUT_FAILED", "delete session", err)
	}
	s.emit(SessionEvent{Type: SessionDestroyed, SessionID: sid, UserID: session.UserID, Role: session.Role})
	return nil
}

// Authenticate resolves token to a session and the user's current record.
// It returns (nil, nil) when the token does not name a live session; errors
// are reserved for store failures.
func (s *Service) Authenticate(ctx context.Context, token string) (*SessionContext, error) {
	if token == "" {
		return nil, nil
	}
	claims, sid, err := s.issuer.Parse(token)
	if err != nil {
		return nil, nil //nolint:nilerr // invalid tokens are unauthenticated, not failures
	}

	session, err := s.sessions.GetByID(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, providerError("SESSION_VALIDATE_FAILED", "get session", err)
	}
	if !VerifySessionToken(claims.Secret, session.TokenHash) {
		return nil, nil
	}
	if session.IsExpired() {
		s.dropSession(ctx, session, SessionInvalidated)
		return nil, nil
	}

	// Role and status can change between requests, so the user is always re-read.
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.dropSession(ctx, session, SessionInvalidated)
			return nil, nil
		}
		return nil, providerError("SESSION_VALIDATE_FAILED", "get user", err)
	}
	if user.Status == StatusSuspended {
		s.dropSession(ctx, session, SessionInvalidated)
		return nil, nil
	}

	now := time.Now().UTC()
	if err := s.sessions.UpdateLastSeen(ctx, session.ID, now); err != nil {
		s.logger.WarnContext(ctx, "failed to update session last seen",
			"session_id", session.ID.String(), "error", err)
	} else {
		session.LastSeenAt = now
	}

	return &SessionContext{
		Session:            session,
		User:               user.Profile(),
		VerificationWaived: s.verificationWaived(user.Role),
	}, nil
}

// CurrentUser returns the profile behind token, or nil if unauthenticated.
func (s *Service) CurrentUser(ctx context.Context, token string) (*Profile, error) {
	sc, err := s.Authenticate(ctx, token)
	if err != nil || sc == nil {
		return nil, err
	}
	p := sc.User
	return &p, nil
}

func (s *Service) dropSession(ctx context.Context, session *Session, ev SessionEventType) {
	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to delete session",
			"session_id", session.ID.String(), "error", err)
		return
	}
	s.emit(SessionEvent{Type: ev, SessionID: session.ID, UserID: session.UserID, Role: session.Role})
}

func (s *Service) invalidateUserSessions(ctx context.Context, user *User) error {
	if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		return err
	}
	s.emit(SessionEvent{Type: SessionInvalidated, UserID: user.ID, Role: user.Role})
	return nil
}

// PurgeExpired removes expired sessions and one-time tokens.
func (s *Service) PurgeExpired(ctx context.Context) (sessions, tokens int64, err error) {
	sessions, err = s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, 0, providerError("PURGE_FAILED", "delete expired sessions", err)
	}
	tokens, err = s.tokens.DeleteExpired(ctx)
	if err != nil {
		return sessions, 0, providerError("PURGE_FAILED", "delete expired tokens", err)
	}
	return sessions, tokens, nil
}
