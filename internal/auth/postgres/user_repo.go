// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

// Package postgres implements the auth repositories on PostgreSQL.
//
// Errors are wrapped with context but no oops code so that the service
// layer's codes are the ones callers see.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/petadopt/petadopt/internal/auth"
	"github.com/petadopt/petadopt/internal/store"
)

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, email, display_name, password_hash, verified, phone, failed_attempts, locked_until, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool store.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool store.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, verified, phone, failed_attempts, locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.ID.String(),
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.Verified,
		user.Phone,
		user.FailedAttempts,
		user.LockedUntil,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if store.IsUniqueViolation(err) {
		return oops.With("email", user.Email).Wrap(auth.ErrDuplicateEmail)
	}
	if err != nil {
		return oops.With("operation", "insert user").With("user_id", user.ID.String()).Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get user by id").With("id", id.String()).Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get user by email").Wrap(err)
	}
	return user, nil
}

// Update writes the profile fields of the user with user.Email.
// Email, verified and the lockout counters are not written here.
func (r *UserRepository) Update(ctx context.Context, user *auth.User) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users
		SET display_name = $2, password_hash = $3, phone = $4, updated_at = $5
		WHERE email = $1
	`,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.Phone,
		user.UpdatedAt,
	)
	if err != nil {
		return oops.With("operation", "update user").With("user_id", user.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("email", user.Email).Wrap(auth.ErrNotFound)
	}
	return nil
}

// RecordLoginFailure increments the failure counter in one statement so
// concurrent failures are all counted. The row lock taken by UPDATE
// serializes them.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, email string, now time.Time) (int, *time.Time, error) {
	var (
		failures int
		lock     *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET failed_attempts = CASE WHEN failed_attempts + 1 >= $2::int THEN 0 ELSE failed_attempts + 1 END,
		    locked_until = CASE WHEN failed_attempts + 1 >= $2::int THEN $3::timestamptz ELSE locked_until END,
		    updated_at = $4
		WHERE email = $1
		RETURNING failed_attempts, locked_until
	`, email, auth.LockoutThreshold, now.Add(auth.LockoutDuration), now).Scan(&failures, &lock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, nil, oops.With("operation", "record login failure").Wrap(err)
	}
	return failures, lock, nil
}

// ResetLoginFailures clears the failure counter and any lockout.
func (r *UserRepository) ResetLoginFailures(ctx context.Context, email string, now time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = $2
		WHERE email = $1
	`, email, now)
	if err != nil {
		return oops.With("operation", "reset login failures").Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	return nil
}

// MarkVerified sets verified in a single statement.
func (r *UserRepository) MarkVerified(ctx context.Context, email string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET verified = TRUE, updated_at = NOW()
		WHERE email = $1
	`, email)
	if err != nil {
		return oops.With("operation", "mark user verified").Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a user; sessions and listings cascade.
func (r *UserRepository) Delete(ctx context.Context, email string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return oops.With("operation", "delete user").Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans one row. pgx.ErrNoRows is returned unwrapped.
func scanUser(row scanner) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
		phone *string
		lock  *time.Time
	)
	err := row.Scan(
		&idStr,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.Verified,
		&phone,
		&user.FailedAttempts,
		&lock,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers add context
		}
		return nil, oops.With("operation", "scan user").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse user id").With("id", idStr).Wrap(err)
	}
	user.ID = id
	user.Phone = phone
	user.LockedUntil = lock
	return &user, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
