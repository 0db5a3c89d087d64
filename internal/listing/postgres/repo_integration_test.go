// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

//go:build integration

package postgres_test

import (
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/petadopt/petadopt/internal/auth"
	authpg "github.com/petadopt/petadopt/internal/auth/postgres"
	"github.com/petadopt/petadopt/internal/listing"
	"github.com/petadopt/petadopt/internal/listing/postgres"
)

var _ = Describe("Listing repository", func() {
	var (
		repo  *postgres.Repository
		owner *auth.User
		now   time.Time
	)

	BeforeEach(func() {
		repo = postgres.NewRepository(db.Pool)
		now = time.Now().UTC().Truncate(time.Microsecond)

		var err error
		owner, err = auth.NewUser("poster@example.com", "Poster", "$argon2id$x", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(authpg.NewUserRepository(db.Pool).Create(ctx, owner)).To(Succeed())
	})

	create := func(pet string, created time.Time) *listing.Listing {
		l := &listing.Listing{
			ID: uuid.New(), OwnerEmail: owner.Email, PetName: pet, Species: "dog", CreatedAt: created,
		}
		Expect(repo.Create(ctx, l)).To(Succeed())
		return l
	}

	It("round-trips a listing", func() {
		l := create("Rex", now)
		got, err := repo.Get(ctx, l.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PetName).To(Equal("Rex"))
		Expect(got.OwnerEmail).To(Equal(owner.Email))
		Expect(got.CreatedAt.Equal(now)).To(BeTrue())
	})

	It("returns ErrNotFound for an unknown id", func() {
		_, err := repo.Get(ctx, uuid.New())
		Expect(err).To(MatchError(listing.ErrNotFound))
	})

	It("lists newest first and honors the limit", func() {
		create("Alpha", now)
		create("Beta", now.Add(time.Minute))

		all, err := repo.List(ctx, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))
		Expect(all[0].PetName).To(Equal("Beta"))

		one, err := repo.List(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(one).To(HaveLen(1))
	})

	It("lists by owner and cascades on user delete", func() {
		create("Rex", now)
		mine, err := repo.ListByOwner(ctx, owner.Email)
		Expect(err).NotTo(HaveOccurred())
		Expect(mine).To(HaveLen(1))

		Expect(authpg.NewUserRepository(db.Pool).Delete(ctx, owner.Email)).To(Succeed())
		mine, err = repo.ListByOwner(ctx, owner.Email)
		Expect(err).NotTo(HaveOccurred())
		Expect(mine).To(BeEmpty())
	})

	It("rejects a listing for an unknown owner", func() {
		l := &listing.Listing{
			ID: uuid.New(), OwnerEmail: "ghost@example.com", PetName: "Rex", Species: "dog", CreatedAt: now,
		}
		Expect(repo.Create(ctx, l)).NotTo(Succeed())
	})
})
