// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// IdentityCodec maps a full user to the compact identity token stored in a
// session and back. The token is the user's ULID in its canonical text form;
// it never embeds the email, the password digest, or any other secret, so it
// is safe to keep in a server-side session store.
type IdentityCodec struct {
	users UserRepository
}

// NewIdentityCodec creates a new IdentityCodec.
func NewIdentityCodec(users UserRepository) (*IdentityCodec, error) {
	if users == nil {
		return nil, oops.Code("AUTH_CODEC_INVALID").Errorf("users repository is required")
	}
	return &IdentityCodec{users: users}, nil
}

// Serialize returns the identity token for a user. It always succeeds for a
// valid user.
func (c *IdentityCodec) Serialize(user *User) string {
	return user.ID.String()
}

// Deserialize resolves an identity token back to a user.
//
// A token that is malformed or no longer resolves to a user yields
// (nil, nil): callers must treat that as "not authenticated", never as an
// error. An error is returned only for storage failures.
func (c *IdentityCodec) Deserialize(ctx context.Context, token string) (*User, error) {
	id, err := ulid.Parse(token)
	if err != nil {
		return nil, nil
	}

	user, err := c.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("AUTH_IDENTITY_LOOKUP_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	return user, nil
}
