// Package password implements password hashing and verification with bcrypt.
//
// # Output format
//
// Hashes are standard bcrypt strings ($2a$/$2b$ prefix) and remain compatible
// with records hashed by earlier revisions of the platform.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Account lockout, attempt
// counting, and audit logging are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other medguard package.
//   - Log plaintext passwords at runtime.
package password
