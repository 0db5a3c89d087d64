// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Field limits.
const (
	MaxEmailLength       = 254
	MinPasswordLength    = 8
	MaxPasswordLength    = 128
	MaxDisplayNameLength = 100
)

// User is a registered account. Email is the natural key and never changes.
type User struct {
	ID             ulid.ULID
	Email          string
	DisplayName    string
	PasswordHash   string
	Verified       bool
	Phone          *string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLocked returns true if the account is locked at now.
func (u *User) IsLocked(now time.Time) bool {
	return IsLockedOut(u.LockedUntil, now)
}

// NewUser creates an unverified User from already-normalized fields.
func NewUser(email, displayName, passwordHash string, now time.Time) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateDisplayName(displayName); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, validationError("password", "password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare RFC 5322 address of at most MaxEmailLength bytes.
// Display-name forms such as "Ann <ann@example.com>" are rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return validationError("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return validationError("email", "email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return validationError("email", "email address is not valid")
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return validationError("email", "email address is not valid")
	}
	return nil
}

// ValidateDisplayName requires 1 to MaxDisplayNameLength characters after trimming.
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return validationError("name", "name is required")
	}
	if utf8.RuneCountInString(trimmed) > MaxDisplayNameLength {
		return validationError("name", "name must be at most %d characters", MaxDisplayNameLength)
	}
	return nil
}

// ValidatePassword enforces the password policy: MinPasswordLength to
// MaxPasswordLength characters with at least one letter and one digit.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return validationError("password", "password must be at least %d characters", MinPasswordLength)
	}
	if n > MaxPasswordLength {
		return validationError("password", "password must be at most %d characters", MaxPasswordLength)
	}
	if strings.TrimSpace(password) == "" {
		return validationError("password", "password cannot be blank")
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return validationError("password", "password must contain at least one letter and one digit")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateEmail if the email exists.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by normalized email. Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update writes the profile fields of the user identified by user.Email.
	// The lockout counters are only changed through the two methods below.
	Update(ctx context.Context, user *User) error

	// RecordLoginFailure atomically counts one failed login and returns the
	// new counter and lockout. Reaching LockoutThreshold locks the account
	// until now+LockoutDuration and resets the counter. Returns ErrNotFound
	// if no user has the email.
	RecordLoginFailure(ctx context.Context, email string, now time.Time) (failures int, lockedUntil *time.Time, err error)

	// ResetLoginFailures clears the counter and any lockout.
	// Returns ErrNotFound if no user has the email.
	ResetLoginFailures(ctx context.Context, email string, now time.Time) error

	// MarkVerified sets verified=true for the email in a single statement.
	// Returns ErrNotFound if no user has the email.
	MarkVerified(ctx context.Context, email string) error

	// Delete removes the user and, through the foreign key, their sessions.
	// Returns ErrNotFound if absent.
	Delete(ctx context.Context, email string) error
}
