// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/auth/postgres"
)

func newMember(email string) *auth.User {
	user, err := auth.NewUser(auth.Registration{
		Email:     email,
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      auth.RoleMember,
		Address:   "12 Main St, Townsville",
	}, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", auth.StatusPending)
	Expect(err).NotTo(HaveOccurred())
	return user
}

var _ = Describe("Repositories", func() {
	var (
		ctx      context.Context
		users    *postgres.UserRepository
		sessions *postgres.SessionRepository
		tokens   *postgres.TokenRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = postgres.NewUserRepository(testPool)
		sessions = postgres.NewSessionRepository(testPool)
		tokens = postgres.NewTokenRepository(testPool)
		DeferCleanup(func() {
			_, _ = testPool.Exec(ctx, `DELETE FROM users`)
		})
	})

	Describe("UserRepository", func() {
		It("round-trips a user and finds it by any email casing", func() {
			user := newMember("alice@example.com")
			Expect(users.Create(ctx, user)).To(Succeed())

			got, err := users.GetByEmail(ctx, "ALICE@example.COM")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(user.ID))
			Expect(got.Role).To(Equal(auth.RoleMember))
			Expect(got.Status).To(Equal(auth.StatusPending))
			Expect(got.Address).To(Equal("12 Main St, Townsville"))
		})

		It("rejects a duplicate email regardless of case", func() {
			Expect(users.Create(ctx, newMember("alice@example.com"))).To(Succeed())
			err := users.Create(ctx, newMember("Alice@Example.com"))
			Expect(err).To(MatchError(auth.ErrDuplicateEmail))
		})

		It("updates status, password and lockout fields", func() {
			user := newMember("bob@example.com")
			Expect(users.Create(ctx, user)).To(Succeed())

			Expect(users.UpdateStatus(ctx, user.ID, auth.StatusActive)).To(Succeed())
			Expect(users.UpdatePassword(ctx, user.ID, "$2b$10$new")).To(Succeed())
			until := time.Now().Add(time.Minute).UTC().Truncate(time.Microsecond)
			user.FailedAttempts = 3
			user.LockedUntil = &until
			user.EmailVerified = true
			Expect(users.Update(ctx, user)).To(Succeed())

			got, err := users.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(auth.StatusActive))
			Expect(got.PasswordHash).To(Equal("$2b$10$new"))
			Expect(got.FailedAttempts).To(Equal(3))
			Expect(got.EmailVerified).To(BeTrue())
			Expect(got.LockedUntil).NotTo(BeNil())
			Expect(got.LockedUntil.Equal(until)).To(BeTrue())
		})
	})

	Describe("SessionRepository", func() {
		It("stores, expires and deletes sessions", func() {
			user := newMember("carol@example.com")
			Expect(users.Create(ctx, user)).To(Succeed())

			live, err := auth.NewSession(user, auth.HashSessionToken("live"), auth.ClientInfo{UserAgent: "curl/8"}, time.Now().Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			stale, err := auth.NewSession(user, auth.HashSessionToken("stale"), auth.ClientInfo{}, time.Now().Add(time.Millisecond))
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(ctx, live)).To(Succeed())
			Expect(sessions.Create(ctx, stale)).To(Succeed())

			time.Sleep(5 * time.Millisecond)
			n, err := sessions.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			got, err := sessions.GetByID(ctx, live.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UserAgent).To(Equal("curl/8"))
			Expect(got.Role).To(Equal(auth.RoleMember))

			Expect(sessions.DeleteByUser(ctx, user.ID)).To(Succeed())
			_, err = sessions.GetByID(ctx, live.ID)
			Expect(err).To(MatchError(auth.ErrNotFound))
			Expect(sessions.Delete(ctx, live.ID)).To(Succeed())
		})
	})

	Describe("TokenRepository", func() {
		It("scopes lookups and deletes to a purpose", func() {
			user := newMember("dave@example.com")
			Expect(users.Create(ctx, user)).To(Succeed())

			verify, err := auth.NewOneTimeToken(user.ID, auth.PurposeVerifyEmail, auth.HashSessionToken("v"), time.Hour)
			Expect(err).NotTo(HaveOccurred())
			reset, err := auth.NewOneTimeToken(user.ID, auth.PurposeResetPassword, auth.HashSessionToken("r"), time.Hour)
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.Create(ctx, verify)).To(Succeed())
			Expect(tokens.Create(ctx, reset)).To(Succeed())

			_, err = tokens.GetByTokenHash(ctx, auth.PurposeResetPassword, verify.TokenHash)
			Expect(err).To(MatchError(auth.ErrNotFound))

			Expect(tokens.DeleteByUser(ctx, user.ID, auth.PurposeVerifyEmail)).To(Succeed())
			got, err := tokens.GetByTokenHash(ctx, auth.PurposeResetPassword, reset.TokenHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(reset.ID))
		})
	})
})
