// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petadopt/petadopt/internal/auth"
	"github.com/petadopt/petadopt/internal/auth/authtest"
	"github.com/petadopt/petadopt/pkg/errutil"
)

func TestHashPassword(t *testing.T) {
	hasher := authtest.FastHasher()

	t.Run("produces PHC argon2id hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"))
		assert.NotContains(t, hash, "password123")
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword1")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword1")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := authtest.FastHasher()
	hash, err := hasher.Hash("correctpassword1")
	require.NoError(t, err)

	t.Run("correct password verifies", func(t *testing.T) {
		ok, err := hasher.Verify("correctpassword1", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		ok, err := hasher.Verify("wrongpassword1", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty password is a validation error", func(t *testing.T) {
		ok, err := hasher.Verify("", hash)
		require.Error(t, err)
		assert.False(t, ok)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})

	t.Run("malformed hashes are rejected", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"plaintext",
			"$bcrypt$v=19$m=64,t=1,p=1$AAAA$AAAA",
			"$argon2id$v=18$m=64,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAA",
			"$argon2id$v=19$m=64,t=1,p=0$AAAAAAAAAAAAAAAAAAAAAA$AAAA",
			"$argon2id$v=19$m=64,t=1,p=300$AAAAAAAAAAAAAAAAAAAAAA$AAAA",
			"$argon2id$v=19$m=64,t=1,p=1$!!!$AAAA",
		} {
			_, err := hasher.Verify("password1", bad)
			require.Error(t, err, bad)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
		}
	})
}

func TestNeedsUpgrade(t *testing.T) {
	hasher := authtest.FastHasher()

	hash, err := hasher.Hash("password123")
	require.NoError(t, err)
	assert.False(t, hasher.NeedsUpgrade(hash))

	stronger, err := auth.NewArgon2idHasher(auth.Argon2Params{Time: 2, MemoryKiB: 64, Threads: 1, SaltLen: 16, KeyLen: 32})
	require.NoError(t, err)
	assert.True(t, stronger.NeedsUpgrade(hash))

	assert.True(t, hasher.NeedsUpgrade("$2a$10$abcdefghijklmnopqrstuv"))
}

func TestArgon2Params_Validate(t *testing.T) {
	require.NoError(t, auth.DefaultArgon2Params().Validate())

	tests := []struct {
		name   string
		mutate func(*auth.Argon2Params)
	}{
		{"zero time", func(p *auth.Argon2Params) { p.Time = 0 }},
		{"zero threads", func(p *auth.Argon2Params) { p.Threads = 0 }},
		{"memory below threads", func(p *auth.Argon2Params) { p.MemoryKiB = 8; p.Threads = 4 }},
		{"short salt", func(p *auth.Argon2Params) { p.SaltLen = 4 }},
		{"short key", func(p *auth.Argon2Params) { p.KeyLen = 8 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := auth.DefaultArgon2Params()
			tt.mutate(&p)
			_, err := auth.NewArgon2idHasher(p)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "HASHER_CONFIG_INVALID")
		})
	}
}
