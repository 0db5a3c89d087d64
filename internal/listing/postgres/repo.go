// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

// Package postgres implements listing.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/petadopt/petadopt/internal/listing"
	"github.com/petadopt/petadopt/internal/store"
)

const listingColumns = `id, owner_email, pet_name, species, description, created_at`

// Repository implements listing.Repository using PostgreSQL.
type Repository struct {
	pool store.Pool
}

// NewRepository creates a new Repository.
func NewRepository(pool store.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns up to limit listings, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]*listing.Listing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+listingColumns+` FROM listings
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, oops.With("operation", "list listings").Wrap(err)
	}
	return collect(rows)
}

// Get retrieves a listing by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(listing.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get listing").With("id", id.String()).Wrap(err)
	}
	return l, nil
}

// Create stores a new listing.
func (r *Repository) Create(ctx context.Context, l *listing.Listing) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, l.ID, l.OwnerEmail, l.PetName, l.Species, l.Description, l.CreatedAt)
	if err != nil {
		return oops.With("operation", "insert listing").With("owner", l.OwnerEmail).Wrap(err)
	}
	return nil
}

// ListByOwner returns the listings posted by email, newest first.
func (r *Repository) ListByOwner(ctx context.Context, email string) ([]*listing.Listing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE owner_email = $1
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, oops.With("operation", "list listings by owner").Wrap(err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*listing.Listing, error) {
	defer rows.Close()

	var listings []*listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, oops.With("operation", "scan listings").Wrap(err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate listing rows").Wrap(err)
	}
	return listings, nil
}

// scanListing scans one row. pgx.ErrNoRows is returned unwrapped.
func scanListing(row pgx.Row) (*listing.Listing, error) {
	var l listing.Listing
	err := row.Scan(&l.ID, &l.OwnerEmail, &l.PetName, &l.Species, &l.Description, &l.CreatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}
	return &l, nil
}

var _ listing.Repository = (*Repository)(nil)
