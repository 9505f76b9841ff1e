// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

// Package authtest provides test helpers for the auth package.
package authtest

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/alcove-web/alcove/internal/auth"
)

// MemoryRepository is an in-memory auth.UserRepository. It enforces the same
// email uniqueness invariant as the PostgreSQL implementation, atomically
// under a single mutex, so it is safe for concurrent tests.
//
// The Err* fields inject failures: when set, the corresponding method
// returns that error instead of touching the store.
type MemoryRepository struct {
	ErrCreate         error
	ErrGetByID        error
	ErrGetByEmail     error
	ErrUpdatePassword error

	mu      sync.Mutex
	byID    map[ulid.ULID]*auth.User
	byEmail map[string]ulid.ULID
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[ulid.ULID]*auth.User),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Create stores a new user, assigning its ID when unset.
func (r *MemoryRepository) Create(_ context.Context, user *auth.User) error {
	if r.ErrCreate != nil {
		return r.ErrCreate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return oops.Code("USER_DUPLICATE_EMAIL").Wrap(auth.ErrDuplicateEmail)
	}
	if user.ID.Compare(ulid.ULID{}) == 0 {
		user.ID = ulid.Make()
	}

	stored := *user
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *MemoryRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	if r.ErrGetByID != nil {
		return nil, r.ErrGetByID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

// GetByEmail retrieves a user by exact email match.
func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	if r.ErrGetByEmail != nil {
		return nil, r.ErrGetByEmail
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	copied := *r.byID[id]
	return &copied, nil
}

// UpdatePassword replaces only the password hash for a user.
func (r *MemoryRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	if r.ErrUpdatePassword != nil {
		return r.ErrUpdatePassword
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	return nil
}

// Count returns the number of stored users.
func (r *MemoryRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Compile-time interface check.
var _ auth.UserRepository = (*MemoryRepository)(nil)
