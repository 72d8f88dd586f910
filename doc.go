// Package medguard provides the security core of a healthcare records
// platform: field-level encryption for protected health information,
// credential checking with automatic account lockout, TOTP-based MFA with
// single-use backup codes, short-lived email one-time passcodes, an
// append-only audit trail, and a rule-based anomaly scorer over that trail.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// medguard is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Account, AuditEntry, LoginResult, etc.). All internal
// coordination — challenge storage, lockout counting, audit dispatch, anomaly
// rules — lives under internal/ and is never exported. Account records are
// persisted by the caller behind [AccountProvider]; email delivery is behind
// [Mailer]; Redis backs everything this core owns (OTP challenges, lockout
// counters, the audit trail).
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Route HTTP, render UI, or schedule appointments — those are collaborators.
//   - Log plaintext passwords, codes, or decrypted PHI under any code path.
package medguard
