// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

//go:build integration

package postgres_test

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/petadopt/petadopt/internal/auth"
	"github.com/petadopt/petadopt/internal/auth/postgres"
)

var _ = Describe("Auth repositories", func() {
	var (
		users    *postgres.UserRepository
		sessions *postgres.SessionRepository
		now      time.Time
	)

	newUser := func(email string) *auth.User {
		u, err := auth.NewUser(email, "Ann", "$argon2id$placeholder", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, u)).To(Succeed())
		return u
	}

	newSession := func(u *auth.User, hash string, expires time.Time) *auth.Session {
		s, err := auth.NewSession(u.ID, hash, false, "agent", "127.0.0.1", now, expires)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.Create(ctx, s)).To(Succeed())
		return s
	}

	BeforeEach(func() {
		users = postgres.NewUserRepository(db.Pool)
		sessions = postgres.NewSessionRepository(db.Pool)
		now = time.Now().UTC().Truncate(time.Microsecond)
	})

	Describe("UserRepository", func() {
		It("round-trips a user", func() {
			u := newUser("ann@example.com")

			got, err := users.GetByEmail(ctx, "ann@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(u.ID))
			Expect(got.Verified).To(BeFalse())
			Expect(got.LockedUntil).To(BeNil())

			byID, err := users.GetByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Email).To(Equal(u.Email))
		})

		It("rejects a duplicate email", func() {
			newUser("ann@example.com")
			dup, err := auth.NewUser("ann@example.com", "Other", "$argon2id$x", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(users.Create(ctx, dup)).To(MatchError(auth.ErrDuplicateEmail))
		})

		It("counts every concurrent login failure", func() {
			u := newUser("ann@example.com")

			var wg sync.WaitGroup
			for range auth.LockoutThreshold {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, _, err := users.RecordLoginFailure(ctx, u.Email, now)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			got, err := users.GetByEmail(ctx, u.Email)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FailedAttempts).To(BeZero())
			Expect(got.LockedUntil).NotTo(BeNil())
			Expect(got.LockedUntil.Equal(now.Add(auth.LockoutDuration))).To(BeTrue())
		})

		It("keeps the lockout until failures are reset", func() {
			u := newUser("ann@example.com")
			failures, lock, err := users.RecordLoginFailure(ctx, u.Email, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(failures).To(Equal(1))
			Expect(lock).To(BeNil())

			u.DisplayName = "Annie"
			u.UpdatedAt = now
			Expect(users.Update(ctx, u)).To(Succeed())
			got, err := users.GetByEmail(ctx, u.Email)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FailedAttempts).To(Equal(1), "profile updates leave the counter alone")
			Expect(got.DisplayName).To(Equal("Annie"))

			Expect(users.ResetLoginFailures(ctx, u.Email, now)).To(Succeed())
			got, err = users.GetByEmail(ctx, u.Email)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FailedAttempts).To(BeZero())
			Expect(got.LockedUntil).To(BeNil())
		})

		It("marks a user verified", func() {
			u := newUser("ann@example.com")
			Expect(users.MarkVerified(ctx, u.Email)).To(Succeed())

			got, err := users.GetByEmail(ctx, u.Email)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Verified).To(BeTrue())
		})

		It("reports missing users", func() {
			_, err := users.GetByEmail(ctx, "nobody@example.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
			Expect(users.MarkVerified(ctx, "nobody@example.com")).To(MatchError(auth.ErrNotFound))
			Expect(users.Delete(ctx, "nobody@example.com")).To(MatchError(auth.ErrNotFound))
			_, _, err = users.RecordLoginFailure(ctx, "nobody@example.com", now)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("cascades sessions on delete", func() {
			u := newUser("ann@example.com")
			s := newSession(u, "hash-1", now.Add(time.Hour))

			Expect(users.Delete(ctx, u.Email)).To(Succeed())
			_, err := sessions.GetByTokenHash(ctx, s.TokenHash)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("SessionRepository", func() {
		It("finds a session by token hash", func() {
			u := newUser("ann@example.com")
			s := newSession(u, "hash-1", now.Add(time.Hour))

			got, err := sessions.GetByTokenHash(ctx, "hash-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(s.ID))
			Expect(got.UserID).To(Equal(u.ID))
		})

		It("lists sessions newest first", func() {
			u := newUser("ann@example.com")
			older := newSession(u, "hash-1", now.Add(time.Hour))
			now = now.Add(time.Second)
			newer := newSession(u, "hash-2", now.Add(time.Hour))

			list, err := sessions.ListByUser(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal(newer.ID))
			Expect(list[1].ID).To(Equal(older.ID))
		})

		It("updates last seen", func() {
			u := newUser("ann@example.com")
			s := newSession(u, "hash-1", now.Add(time.Hour))
			later := now.Add(time.Minute)

			Expect(sessions.UpdateLastSeen(ctx, s.ID, later)).To(Succeed())
			got, err := sessions.GetByTokenHash(ctx, "hash-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.LastSeenAt.Equal(later)).To(BeTrue())

			Expect(sessions.UpdateLastSeen(ctx, ulid.Make(), later)).To(MatchError(auth.ErrNotFound))
		})

		It("prunes only expired sessions", func() {
			u := newUser("ann@example.com")
			newSession(u, "stale", now.Add(time.Minute))
			newSession(u, "fresh", now.Add(time.Hour))

			n, err := sessions.DeleteExpired(ctx, now.Add(time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			_, err = sessions.GetByTokenHash(ctx, "fresh")
			Expect(err).NotTo(HaveOccurred())
		})

		It("deletes all sessions of a user", func() {
			u := newUser("ann@example.com")
			newSession(u, "hash-1", now.Add(time.Hour))
			newSession(u, "hash-2", now.Add(time.Hour))

			Expect(sessions.DeleteByUser(ctx, u.ID)).To(Succeed())
			list, err := sessions.ListByUser(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})
	})
})
