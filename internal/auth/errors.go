// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an insert would violate the email
// uniqueness constraint. Flows treat it as a rejection, not a failure.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned for both unknown email and wrong
// password so the two cases are externally indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidEmail is returned when a submitted email fails validation.
var ErrInvalidEmail = errors.New("invalid email address")
