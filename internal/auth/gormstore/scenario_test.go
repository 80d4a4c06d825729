// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package gormstore_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/auth/gormstore"
	"github.com/Skets-max/Project-473/pkg/errutil"
)

// outbox records the links a Notifier would have mailed.
type outbox struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
}

func newOutbox() *outbox {
	return &outbox{verify: map[string]string{}, reset: map[string]string{}}
}

func (o *outbox) SendVerification(_ context.Context, user auth.Profile, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verify[user.Email] = token
	return nil
}

func (o *outbox) SendPasswordReset(_ context.Context, user auth.Profile, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset[user.Email] = token
	return nil
}

func newService(t *testing.T, mail *outbox) *auth.Service {
	t.Helper()
	db := openDB(t)
	issuer, err := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), auth.DefaultIssuer)
	require.NoError(t, err)

	svc, err := auth.NewService(auth.Deps{
		Users:    gormstore.NewUserRepository(db),
		Sessions: gormstore.NewSessionRepository(db),
		Tokens:   gormstore.NewTokenRepository(db),
		Hasher:   auth.NewHasherWithParams(auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}),
		Issuer:   issuer,
		Notifier: mail,
	}, auth.DefaultPolicy())
	require.NoError(t, err)
	return svc
}

func TestMemberRegistrationLifecycle(t *testing.T) {
	ctx := context.Background()
	mail := newOutbox()
	svc := newService(t, mail)

	profile, err := svc.Register(ctx, auth.Registration{
		Email:     "alice@example.com",
		Password:  "Abcd123!",
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      auth.RoleMember,
		Address:   "12 Main St, Townsville",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.StatusPending, profile.Status)
	assert.False(t, profile.EmailVerified)

	_, err = svc.Login(ctx, "alice@example.com", "Abcd123!", auth.ClientInfo{})
	errutil.AssertErrorCode(t, err, "AUTH_EMAIL_NOT_VERIFIED")
	assert.Equal(t, auth.MsgEmailNotVerified, auth.Message(err))

	token := mail.verify["alice@example.com"]
	require.NotEmpty(t, token, "verification link should have been sent")
	verified, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	result, err := svc.Login(ctx, "Alice@Example.com", "Abcd123!", auth.ClientInfo{UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleMember, result.User.Role)
	assert.Equal(t, "/member/dashboard", result.Redirect)

	raw, err := json.Marshal(result.User)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "password")
	assert.NotContains(t, fields, "passwordHash")
	assert.Equal(t, "member", fields["userType"])

	current, err := svc.CurrentUser(ctx, result.Token)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "alice@example.com", current.Email)

	require.NoError(t, svc.Logout(ctx, result.Token))
	current, err = svc.CurrentUser(ctx, result.Token)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = svc.VerifyEmail(ctx, token)
	assert.Equal(t, auth.MsgInvalidLink, auth.Message(err), "links are single use")
}

func TestPasswordResetLifecycle(t *testing.T) {
	ctx := context.Background()
	mail := newOutbox()
	svc := newService(t, mail)

	_, err := svc.Register(ctx, auth.Registration{
		Email:     "guard@example.com",
		Password:  "Abcd123!",
		FirstName: "Gary",
		LastName:  "Guard",
		Role:      auth.RoleSecurity,
	})
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, mail.verify["guard@example.com"])
	require.NoError(t, err)

	first, err := svc.Login(ctx, "guard@example.com", "Abcd123!", auth.ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "/security/dashboard", first.Redirect)

	require.NoError(t, svc.ForgotPassword(ctx, "guard@example.com"))
	require.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"), "unknown accounts look the same")
	require.NoError(t, svc.ResetPassword(ctx, mail.reset["guard@example.com"], "N3w!Passw"))

	current, err := svc.CurrentUser(ctx, first.Token)
	require.NoError(t, err)
	assert.Nil(t, current, "reset signs out existing sessions")

	_, err = svc.Login(ctx, "guard@example.com", "Abcd123!", auth.ClientInfo{})
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	_, err = svc.Login(ctx, "guard@example.com", "N3w!Passw", auth.ClientInfo{})
	require.NoError(t, err)
}
