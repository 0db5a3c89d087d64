// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/petadopt/petadopt/pkg/errutil"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by repositories when the email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// Error codes returned by Service operations. The web layer switches on these.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenInvalid       = "TOKEN_INVALID_OR_EXPIRED"
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeTransient          = "TRANSIENT_FAILURE"
	CodeNotFound           = "NOT_FOUND"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
)

// ErrorCode returns the oops code of err, or "" when err carries none.
func ErrorCode(err error) string {
	return errutil.Code(err)
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

func validationError(field, format string, args ...any) error {
	return oops.Code(CodeValidation).With("field", field).Errorf(format, args...)
}

// transientError marks a store failure. err must not already carry a code,
// since the innermost oops code wins.
func transientError(operation string, err error) error {
	return oops.Code(CodeTransient).With("operation", operation).Wrap(err)
}

func invalidCredentialsError() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

func notAuthenticatedError() error {
	return oops.Code(CodeNotAuthenticated).Errorf("not authenticated")
}

func tokenInvalidError(reason string) error {
	return oops.Code(CodeTokenInvalid).
		With("reason", reason).
		Errorf("verification link is invalid or has expired")
}
