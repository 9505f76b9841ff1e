// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Service provides the credential flows: authentication and registration.
// It holds no mutable state of its own; all durable state lives behind the
// UserRepository.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{users: users, hasher: hasher, logger: logger}, nil
}

// dummyPasswordDigest is verified against when a user doesn't exist so that
// lookups for unknown and known emails take comparable time. It is a
// syntactically valid bcrypt digest that matches no password.
//
//nolint:gosec // G101: intentionally fake digest for timing attack prevention, not a credential.
const dummyPasswordDigest = "$2a$10$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Authenticate resolves an email/password pair to a user.
// Returns the user on success, an error wrapping ErrInvalidCredentials when
// either the email is unknown or the password is wrong (the two are
// externally indistinguishable), or a wrapped repository/hasher failure.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	targetDigest := dummyPasswordDigest
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOOKUP_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
		// Unknown email: still verify against the dummy digest below.
	} else {
		targetDigest = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetDigest)
	if verifyErr != nil {
		if !userExists {
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		s.logger.Info("login rejected", "email_known", userExists)
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	// Transparently upgrade digests hashed with a weaker work factor.
	// Login succeeds regardless of the outcome.
	if s.hasher.NeedsRehash(user.PasswordHash) {
		if newDigest, hashErr := s.hasher.Hash(password); hashErr == nil {
			if updErr := s.users.UpdatePassword(ctx, user.ID, newDigest); updErr == nil {
				user.PasswordHash = newDigest
			}
		}
	}

	s.logger.Info("login succeeded", "user_id", user.ID.String())
	return user, nil
}

// Register creates a new user from an email/password pair.
//
// The flow is: uniqueness check, hash, insert. A duplicate detected at
// either the check or the insert (a registration that lost the race between
// the two) returns an error wrapping ErrDuplicateEmail; callers treat that
// as a rejection, not a failure. On any failure no user record is created
// and nothing else is mutated.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration rejected, email taken")
		return nil, oops.Code("AUTH_DUPLICATE_EMAIL").Wrap(ErrDuplicateEmail)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	now := time.Now()
	user := &User{
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost the race between the check and the insert. The database
			// constraint kept the invariant; report it as a plain rejection.
			s.logger.Info("registration lost duplicate race")
			return nil, oops.Code("AUTH_DUPLICATE_EMAIL").Wrap(ErrDuplicateEmail)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	s.logger.Info("user registered", "user_id", user.ID.String())
	return user, nil
}
