// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petadopt/petadopt/internal/auth"
	"github.com/petadopt/petadopt/pkg/errutil"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ann@example.com", auth.NormalizeEmail("  Ann@Example.COM "))
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"ann@example.com",
		"first.last+tag@sub.example.org",
	}
	for _, email := range valid {
		assert.NoError(t, auth.ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"ann",
		"ann@",
		"@example.com",
		"ann@localhost",
		"Ann <ann@example.com>",
		"ann@example.com extra",
		strings.Repeat("a", 250) + "@example.com",
	}
	for _, email := range invalid {
		err := auth.ValidateEmail(email)
		require.Error(t, err, email)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
		errutil.AssertErrorContext(t, err, "field", "email")
	}
}

func TestValidateDisplayName(t *testing.T) {
	assert.NoError(t, auth.ValidateDisplayName("Ann"))
	assert.NoError(t, auth.ValidateDisplayName(strings.Repeat("é", auth.MaxDisplayNameLength)))

	for _, name := range []string{"", "   ", strings.Repeat("a", auth.MaxDisplayNameLength+1)} {
		err := auth.ValidateDisplayName(name)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"letters and digits", "kitten123", false},
		{"exactly minimum", "abcdefg1", false},
		{"exactly maximum", strings.Repeat("a", auth.MaxPasswordLength-1) + "1", false},
		{"too short", "abc123", true},
		{"too long", strings.Repeat("a", auth.MaxPasswordLength) + "1", true},
		{"no digit", "abcdefghij", true},
		{"no letter", "1234567890", true},
		{"whitespace only", "          ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidatePassword(tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, auth.CodeValidation)
			errutil.AssertErrorContext(t, err, "field", "password")
		})
	}
}

func TestNewUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	u, err := auth.NewUser("ann@example.com", "Ann", "$argon2id$hash", now)
	require.NoError(t, err)
	assert.False(t, u.Verified)
	assert.Equal(t, now, u.CreatedAt)
	assert.NotZero(t, u.ID)

	_, err = auth.NewUser("ann@example.com", "Ann", "", now)
	errutil.AssertErrorCode(t, err, auth.CodeValidation)

	_, err = auth.NewUser("bad", "Ann", "hash", now)
	errutil.AssertErrorCode(t, err, auth.CodeValidation)
}
