// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package auth

import (
	"time"
)

// Lockout configuration.
const (
	// LockoutDuration is the time an account is locked after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of consecutive failures that triggers a lockout.
	LockoutThreshold = 7
)

// IsLockedOut returns true if lockedUntil is after now.
func IsLockedOut(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// LockoutRemaining returns how long the lockout still lasts, or zero.
func LockoutRemaining(lockedUntil *time.Time, now time.Time) time.Duration {
	if !IsLockedOut(lockedUntil, now) {
		return 0
	}
	return lockedUntil.Sub(now)
}

// RecordFailure returns the failure count and lockout after one more failed
// attempt. Reaching LockoutThreshold locks the account and resets the count.
func RecordFailure(failures int, now time.Time) (int, *time.Time) {
	failures++
	if failures < LockoutThreshold {
		return failures, nil
	}
	lockout := now.Add(LockoutDuration)
	return 0, &lockout
}

