// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

// Package authtest provides in-memory repositories and a controllable clock
// for exercising auth.Service without a database.
package authtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/petadopt/petadopt/internal/auth"
)

// UserStore is an in-memory auth.UserRepository. Set Err to fail every call.
type UserStore struct {
	mu    sync.Mutex
	users map[string]auth.User // keyed by email
	Err   error
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]auth.User)}
}

func (s *UserStore) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[user.Email]; ok {
		return auth.ErrDuplicateEmail
	}
	s.users[user.Email] = *user
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) Update(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	existing, ok := s.users[user.Email]
	if !ok {
		return auth.ErrNotFound
	}
	existing.DisplayName = user.DisplayName
	existing.PasswordHash = user.PasswordHash
	existing.Phone = user.Phone
	existing.UpdatedAt = user.UpdatedAt
	s.users[user.Email] = existing
	return nil
}

func (s *UserStore) RecordLoginFailure(_ context.Context, email string, now time.Time) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, nil, s.Err
	}
	u, ok := s.users[email]
	if !ok {
		return 0, nil, auth.ErrNotFound
	}
	failures, lock := auth.RecordFailure(u.FailedAttempts, now)
	u.FailedAttempts = failures
	if lock != nil {
		u.LockedUntil = lock
	}
	u.UpdatedAt = now
	s.users[email] = u
	return u.FailedAttempts, u.LockedUntil, nil
}

func (s *UserStore) ResetLoginFailures(_ context.Context, email string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.users[email]
	if !ok {
		return auth.ErrNotFound
	}
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = now
	s.users[email] = u
	return nil
}

func (s *UserStore) MarkVerified(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.users[email]
	if !ok {
		return auth.ErrNotFound
	}
	u.Verified = true
	s.users[email] = u
	return nil
}

func (s *UserStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[email]; !ok {
		return auth.ErrNotFound
	}
	delete(s.users, email)
	return nil
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// SessionStore is an in-memory auth.SessionRepository. Set Err to fail every call.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[ulid.ULID]auth.Session
	Err      error
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[ulid.ULID]auth.Session)}
}

func (s *SessionStore) Create(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *SessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash {
			return &sess, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *SessionStore) ListByUser(_ context.Context, userID ulid.ULID) ([]*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*auth.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, &sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *SessionStore) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	sess, ok := s.sessions[id]
	if !ok {
		return auth.ErrNotFound
	}
	sess.LastSeenAt = lastSeen
	s.sessions[id] = sess
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.sessions[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for id, sess := range s.sessions {
		if sess.IsExpiredAt(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Clock is a settable clock safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock set to now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FastHasher returns an argon2id hasher with minimal cost for tests.
func FastHasher() *auth.Argon2idHasher {
	h, err := auth.NewArgon2idHasher(auth.Argon2Params{
		Time:      1,
		MemoryKiB: 64,
		Threads:   1,
		SaltLen:   16,
		KeyLen:    32,
	})
	if err != nil {
		panic(err)
	}
	return h
}

var (
	_ auth.UserRepository    = (*UserStore)(nil)
	_ auth.SessionRepository = (*SessionStore)(nil)
)
