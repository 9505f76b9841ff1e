// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Email validation constraints.
const MaxEmailLength = 255

// emailRegex is a deliberately loose shape check (local@domain.tld).
// Real validation happens when mail is actually delivered; the constraint
// here only keeps obvious garbage out of the unique index.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User represents a registered account.
//
// Email is matched exactly and case-sensitively throughout the system:
// "A@x.com" and "a@x.com" are distinct accounts. PasswordHash holds the
// one-way digest; the plaintext is never persisted anywhere.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateEmail validates an email address against registration rules.
// Failures wrap ErrInvalidEmail.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Wrapf(ErrInvalidEmail, "email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Wrapf(ErrInvalidEmail, "email must be at most %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_INVALID_EMAIL").Wrapf(ErrInvalidEmail, "email must look like local@domain.tld")
	}
	return nil
}

// UserRepository manages user persistence. It is the single source of truth
// for durable account records and alone enforces the email uniqueness
// invariant under concurrent writers.
type UserRepository interface {
	// Create stores a new user, assigning its ID. Returns an error wrapping
	// ErrDuplicateEmail if the email is already taken; the uniqueness check
	// and the insert are atomic with respect to concurrent registrations.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns an error wrapping ErrNotFound
	// if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by exact, case-sensitive email match.
	// Returns an error wrapping ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces only the password hash for a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
