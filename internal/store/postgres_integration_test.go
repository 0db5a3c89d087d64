// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/petadopt/petadopt/internal/store"
	"github.com/petadopt/petadopt/internal/store/storetest"
)

var _ = Describe("Schema", func() {
	var db *storetest.Database
	ctx := context.Background()

	BeforeEach(func() {
		var err error
		db, err = storetest.StartPostgres(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		db.Close(ctx)
	})

	insertUser := func(id, email string) error {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO users (id, email, display_name, password_hash)
			VALUES ($1, $2, 'Ann', 'hash')
		`, id, email)
		return err
	}

	It("reports readiness", func() {
		Expect(store.ReadinessCheck(db.Pool, time.Second)(ctx)).To(Succeed())
	})

	It("rejects duplicate emails with a unique violation", func() {
		Expect(insertUser("01HZX0000000000000000000A1", "ann@example.com")).To(Succeed())
		err := insertUser("01HZX0000000000000000000A2", "ann@example.com")
		Expect(store.IsUniqueViolation(err)).To(BeTrue())
	})

	It("rejects mixed-case emails", func() {
		Expect(insertUser("01HZX0000000000000000000A3", "Ann@example.com")).NotTo(Succeed())
	})

	It("cascades user deletion to sessions and listings", func() {
		Expect(insertUser("01HZX0000000000000000000A4", "bob@example.com")).To(Succeed())
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO sessions (id, user_id, token_hash, expires_at)
			VALUES ('01HZX0000000000000000000S1', '01HZX0000000000000000000A4', 'h1', NOW() + INTERVAL '1 hour')
		`)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.Pool.Exec(ctx, `
			INSERT INTO listings (id, owner_email, pet_name, species)
			VALUES ('6f1c1c2e-9d7a-4a53-8f0e-2b7f5d0c9a11', 'bob@example.com', 'Rex', 'dog')
		`)
		Expect(err).NotTo(HaveOccurred())

		_, err = db.Pool.Exec(ctx, `DELETE FROM users WHERE email = 'bob@example.com'`)
		Expect(err).NotTo(HaveOccurred())

		var sessions, listings int
		Expect(db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&sessions)).To(Succeed())
		Expect(db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&listings)).To(Succeed())
		Expect(sessions).To(Equal(0))
		Expect(listings).To(Equal(0))
	})

	It("rejects listings for unknown owners", func() {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO listings (id, owner_email, pet_name, species)
			VALUES ('6f1c1c2e-9d7a-4a53-8f0e-2b7f5d0c9a12', 'ghost@example.com', 'Rex', 'dog')
		`)
		Expect(store.IsForeignKeyViolation(err)).To(BeTrue())
	})
})
