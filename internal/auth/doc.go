// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

// Package auth provides account and session management for PetAdopt.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates an unverified User from normalized, validated fields
//   - NewSession - creates a Session for a user with an expiry
//
// Repository implementations receive pre-validated types from these constructors.
//
// # Verification Tokens
//
// TokenIssuer signs HS256 tokens whose subject is the user's email. Tokens
// are stateless: they stay valid until they expire or the secret changes.
// Validation failures are classified with TokenFailureKind.
//
// # Service
//
// Service coordinates signup, email verification, login, logout and session
// lookup. Every error it returns carries one of the Code* constants; use
// ErrorCode to switch on it. Email delivery failures are logged and never
// returned.
package auth
