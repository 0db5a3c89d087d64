// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// MinTokenSecretLen is the minimum HMAC secret length in bytes.
const MinTokenSecretLen = 32

// VerificationAudience is the aud claim carried by every verification token.
const VerificationAudience = "verify-email"

// TokenFailure classifies why a verification token was rejected.
type TokenFailure string

// Token failure kinds.
const (
	TokenBadSignature TokenFailure = "BAD_SIGNATURE"
	TokenExpired      TokenFailure = "EXPIRED"
	TokenMalformed    TokenFailure = "MALFORMED"
)

// Error codes for token validation failures.
const (
	CodeTokenBadSignature = "TOKEN_BAD_SIGNATURE"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeTokenMalformed    = "TOKEN_MALFORMED"
)

var failureCodes = map[TokenFailure]string{
	TokenBadSignature: CodeTokenBadSignature,
	TokenExpired:      CodeTokenExpired,
	TokenMalformed:    CodeTokenMalformed,
}

// TokenFailureKind returns the failure kind of a Validate error, or "" when
// err is not a token failure.
func TokenFailureKind(err error) TokenFailure {
	switch ErrorCode(err) {
	case CodeTokenBadSignature:
		return TokenBadSignature
	case CodeTokenExpired:
		return TokenExpired
	case CodeTokenMalformed:
		return TokenMalformed
	default:
		return ""
	}
}

func tokenFailure(kind TokenFailure, cause error) error {
	b := oops.Code(failureCodes[kind]).With("reason", string(kind))
	if cause != nil {
		return b.Wrap(cause)
	}
	return b.Errorf("verification token rejected: %s", strings.ToLower(string(kind)))
}

// VerificationTokens issues and validates email verification tokens.
type VerificationTokens interface {
	Issue(email string, ttl time.Duration) (string, error)
	Validate(token string) (string, error)
}

// TokenIssuer signs verification tokens with HS256.
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenClock overrides the clock used for issuing and validating.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer creates a TokenIssuer. The secret must be at least
// MinTokenSecretLen bytes.
func NewTokenIssuer(secret []byte, issuer string, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) < MinTokenSecretLen {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("min_len", MinTokenSecretLen).
			Errorf("token secret must be at least %d bytes", MinTokenSecretLen)
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("token issuer is required")
	}
	t := &TokenIssuer{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue returns a signed token for email that expires after ttl.
func (t *TokenIssuer) Issue(email string, ttl time.Duration) (string, error) {
	if email == "" {
		return "", oops.Code(CodeValidation).With("field", "email").Errorf("email is required")
	}
	if ttl <= 0 {
		return "", oops.Code(CodeValidation).With("field", "ttl").Errorf("ttl must be positive")
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		Issuer:    t.issuer,
		Audience:  jwt.ClaimStrings{VerificationAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", oops.With("operation", "sign token").Wrap(err)
	}
	return signed, nil
}

// Validate checks the token and returns the email it was issued for.
func (t *TokenIssuer) Validate(token string) (string, error) {
	// The MAC covers everything before the last dot, so any alteration of a
	// signed token, dots included, fails here rather than as malformed.
	cut := strings.LastIndexByte(token, '.')
	if cut < 0 {
		return "", tokenFailure(TokenMalformed, nil)
	}
	signingInput, encodedSig := token[:cut], token[cut+1:]

	sig, err := base64.RawURLEncoding.Strict().DecodeString(encodedSig)
	if err != nil {
		return "", tokenFailure(TokenBadSignature, nil)
	}
	if err := jwt.SigningMethodHS256.Verify(signingInput, sig, t.secret); err != nil {
		return "", tokenFailure(TokenBadSignature, nil)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", tokenFailure(TokenMalformed, nil)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(VerificationAudience),
		jwt.WithIssuer(t.issuer),
	)

	var claims jwt.RegisteredClaims
	_, err = parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", tokenFailure(TokenExpired, nil)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "", tokenFailure(TokenBadSignature, nil)
	default:
		return "", tokenFailure(TokenMalformed, nil)
	}

	if claims.Subject == "" {
		return "", tokenFailure(TokenMalformed, nil)
	}
	return claims.Subject, nil
}

var _ VerificationTokens = (*TokenIssuer)(nil)
