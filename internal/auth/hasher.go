// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt work factor bounds. DefaultBcryptCost matches the classic
// "10 salt rounds" default; raising it slows brute force at the price of
// login latency.
const (
	DefaultBcryptCost = 10
	MinBcryptCost     = bcrypt.MinCost
	MaxBcryptCost     = bcrypt.MaxCost
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted one-way digest of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the digest.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an error
	// only when the digest itself is malformed.
	Verify(password, digest string) (bool, error)

	// NeedsRehash returns true if the digest was produced with a weaker
	// work factor than currently configured.
	NeedsRehash(digest string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt. Each Hash call embeds
// a fresh random salt in the output, so equal passwords yield distinct
// digests.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given work factor.
// Costs outside the valid bcrypt range fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash produces a bcrypt digest of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").
			With("cost", h.cost).
			Wrap(err)
	}
	return string(digest), nil
}

// Verify checks if the password matches the digest. The salt and work factor
// are recovered from the digest itself; comparison inside bcrypt is constant
// time relative to the digest structure.
func (h *BcryptHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	// Anything else means the stored digest is not a well-formed bcrypt hash.
	return false, oops.Code("AUTH_INVALID_DIGEST").Wrap(err)
}

// NeedsRehash returns true if the digest carries a lower cost than the
// hasher is configured with. Malformed digests report false; they fail
// verification anyway.
func (h *BcryptHasher) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false
	}
	return cost < h.cost
}

// Compile-time interface check.
var _ PasswordHasher = (*BcryptHasher)(nil)
