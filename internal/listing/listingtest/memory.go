// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

// Package listingtest provides an in-memory listing.Repository for tests.
package listingtest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/petadopt/petadopt/internal/listing"
)

// Store is an in-memory listing.Repository. Set Err to make every call fail.
type Store struct {
	mu       sync.Mutex
	listings map[uuid.UUID]listing.Listing
	Err      error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{listings: make(map[uuid.UUID]listing.Listing)}
}

func (s *Store) sorted(keep func(listing.Listing) bool) []*listing.Listing {
	out := make([]*listing.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if keep(l) {
			c := l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// List returns up to limit listings, newest first.
func (s *Store) List(_ context.Context, limit int) ([]*listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.sorted(func(listing.Listing) bool { return true })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a copy of the listing.
func (s *Store) Get(_ context.Context, id uuid.UUID) (*listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	l, ok := s.listings[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	return &l, nil
}

// Create stores a copy of l.
func (s *Store) Create(_ context.Context, l *listing.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.listings[l.ID] = *l
	return nil
}

// ListByOwner returns the owner's listings, newest first.
func (s *Store) ListByOwner(_ context.Context, email string) ([]*listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.sorted(func(l listing.Listing) bool { return l.OwnerEmail == email }), nil
}

// Len returns the number of stored listings.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listings)
}

var _ listing.Repository = (*Store)(nil)
