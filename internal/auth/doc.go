// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

// Package auth provides credential authentication primitives for Alcove.
//
// # Domain Types
//
// User is the durable account record. Users are created only through
// Service.Register, which enforces email uniqueness and stores a one-way
// password digest; direct struct initialization bypasses validation.
//
// # Services
//
// Service coordinates the credential flows:
//   - Authenticate - email/password verification against the repository
//   - Register - uniqueness check, hashing, and insertion
//
// IdentityCodec maps a full User to the compact identity token kept in a
// session (the ULID string) and resolves it back through the repository.
// Only the id ever enters a session; never the email or the digest.
package auth
