// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

// Package listing manages pets offered for adoption and relays adoption
// inquiries to the poster by email.
package listing

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/petadopt/petadopt/internal/auth"
)

// Field limits.
const (
	MaxPetNameLength     = 100
	MaxSpeciesLength     = 50
	MaxDescriptionLength = 2000
	MaxMessageLength     = 2000
	DefaultListLimit     = 50
	MaxListLimit         = 200
)

// ErrNotFound is returned when a listing does not exist.
var ErrNotFound = errors.New("listing not found")

// Listing is a pet offered for adoption.
type Listing struct {
	ID          uuid.UUID `json:"id"`
	OwnerEmail  string    `json:"owner_email"`
	PetName     string    `json:"pet_name"`
	Species     string    `json:"species"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Input is the create-listing form.
type Input struct {
	PetName     string
	Species     string
	Description string
}

// Normalize trims every field.
func (in Input) Normalize() Input {
	return Input{
		PetName:     strings.TrimSpace(in.PetName),
		Species:     strings.TrimSpace(in.Species),
		Description: strings.TrimSpace(in.Description),
	}
}

// Validate checks a normalized Input.
func (in Input) Validate() error {
	if err := requireText("pet_name", in.PetName, MaxPetNameLength); err != nil {
		return err
	}
	if err := requireText("species", in.Species, MaxSpeciesLength); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return validationError("description", "description exceeds maximum length of %d", MaxDescriptionLength)
	}
	return nil
}

// Inquiry is an adopter's message to a poster.
type Inquiry struct {
	Name    string
	Email   string
	Message string
}

// Normalize trims every field and normalizes the email.
func (q Inquiry) Normalize() Inquiry {
	return Inquiry{
		Name:    strings.TrimSpace(q.Name),
		Email:   auth.NormalizeEmail(q.Email),
		Message: strings.TrimSpace(q.Message),
	}
}

// Validate checks a normalized Inquiry.
func (q Inquiry) Validate() error {
	if err := auth.ValidateDisplayName(q.Name); err != nil {
		return err
	}
	if err := auth.ValidateEmail(q.Email); err != nil {
		return err
	}
	return requireText("message", q.Message, MaxMessageLength)
}

func requireText(field, value string, maxLen int) error {
	if value == "" {
		return validationError(field, "%s is required", field)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return validationError(field, "%s exceeds maximum length of %d", field, maxLen)
	}
	return nil
}

func validationError(field, format string, args ...any) error {
	return oops.Code(auth.CodeValidation).With("field", field).Errorf(format, args...)
}

// Repository persists listings.
type Repository interface {
	// List returns up to limit listings, newest first.
	List(ctx context.Context, limit int) ([]*Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*Listing, error)
	Create(ctx context.Context, l *Listing) error
	ListByOwner(ctx context.Context, email string) ([]*Listing, error)
}
