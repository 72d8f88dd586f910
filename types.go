package medguard

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/medguardlabs/medguard/internal/audit"
)

// Role represents the access role of an account.
type Role string

const (
	// RolePatient is an exported constant or variable used by the records security engine.
	RolePatient Role = "patient"
	// RoleDoctor is an exported constant or variable used by the records security engine.
	RoleDoctor Role = "doctor"
	// RoleNurse is an exported constant or variable used by the records security engine.
	RoleNurse Role = "nurse"
	// RoleAdmin is an exported constant or variable used by the records security engine.
	RoleAdmin Role = "admin"
)

// OTPPurpose identifies what a one-time passcode challenge is bound to.
// Challenges are keyed by (email, purpose); a code issued for one purpose is
// never accepted for another.
type OTPPurpose string

const (
	// PurposeRegistration is an exported constant or variable used by the records security engine.
	PurposeRegistration OTPPurpose = "registration"
	// PurposePasswordReset is an exported constant or variable used by the records security engine.
	PurposePasswordReset OTPPurpose = "password-reset"
	// PurposeLoginVerification is an exported constant or variable used by the records security engine.
	PurposeLoginVerification OTPPurpose = "login-verification"
)

// Account is the identity, credential, and security-state record returned by
// [AccountProvider]. The engine mutates login state through
// [AccountProvider.UpdateLoginState] only; it never persists accounts itself.
type Account struct {
	ID                string
	Email             string
	PasswordHash      string // empty for federated (OAuth) accounts
	Role              Role
	LoginAttempts     int
	LockUntil         time.Time // zero when not locked
	MFAEnabled        bool
	PasswordChangedAt time.Time
	IsActive          bool
	LastLogin         time.Time
	LastLoginIP       string
}

// IsLocked reports whether the account is locked at the given instant. Lock
// state is always derived from LockUntil, never stored as a boolean, so it
// can never go stale.
func (a Account) IsLocked(now time.Time) bool {
	return !a.LockUntil.IsZero() && a.LockUntil.After(now)
}

// ChangedPasswordAfter reports whether the account password changed after the
// given instant. Token validation rejects any token issued before the last
// password change. Comparison is at second granularity to match token
// issued-at claims.
func (a Account) ChangedPasswordAfter(t time.Time) bool {
	if a.PasswordChangedAt.IsZero() {
		return false
	}
	return t.Unix() < a.PasswordChangedAt.Unix()
}

// LoginState is the mutable security state written back to the account record
// after every login attempt.
type LoginState struct {
	Attempts    int
	LockUntil   time.Time // zero clears any stored lock
	LastLogin   time.Time
	LastLoginIP string
}

// MFARecord is retrieved from [AccountProvider.GetMFA]. The secret is stored
// as a fieldcipher envelope; the plaintext TOTP secret never reaches the
// account store.
type MFARecord struct {
	SecretEnvelope string
	Enabled        bool
	Verified       bool
}

// BackupCodeRecord stores the SHA-256 hash of a single backup code.
// The plaintext is never persisted.
type BackupCodeRecord struct {
	Hash [32]byte
}

// AccountProvider is the primary interface that callers must implement to
// integrate medguard with their account database. It covers credential
// lookup, login-state writes, password updates, MFA secret management, and
// backup code storage.
//
// Implementations must set PasswordChangedAt to the current time inside
// UpdatePasswordHash, and must treat ConsumeBackupCode as an atomic
// find-and-delete so each code is usable exactly once.
type AccountProvider interface {
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetAccountByID(ctx context.Context, accountID string) (Account, error)
	UpdateLoginState(ctx context.Context, accountID string, state LoginState) error
	UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error
	GetMFA(ctx context.Context, accountID string) (*MFARecord, error)
	SetPendingMFA(ctx context.Context, accountID string, secretEnvelope string) error
	ActivateMFA(ctx context.Context, accountID string) error
	DisableMFA(ctx context.Context, accountID string) error
	ReplaceBackupCodes(ctx context.Context, accountID string, codes []BackupCodeRecord) error
	ConsumeBackupCode(ctx context.Context, accountID string, codeHash [32]byte) (bool, error)
}

// Mailer delivers one-time passcodes. Delivery is best-effort and
// fire-and-forget: a failed send is logged to the side channel and never
// fails the issuing operation.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string, purpose OTPPurpose) error
}

// LoginResult is returned by [Engine.Login] and the MFA login variants. When
// MFARequired is set, no token has been issued yet and the caller must
// complete the second factor.
type LoginResult struct {
	AccountID   string
	AccessToken string

	MFARequired bool
}

// MFAProvision holds the raw base32 TOTP secret and otpauth:// URI returned
// by [Engine.ProvisionMFA] for authenticator-app enrollment.
type MFAProvision struct {
	Secret string
	URI    string
}

// TokenClaims is the validated content of an access token.
type TokenClaims struct {
	AccountID string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuditEntry is the structured audit record written to the trail.
//
//	Docs: docs/audit.md
type AuditEntry = internalaudit.Entry

// AuditSink receives [AuditEntry] values from the engine's audit dispatcher.
//
//	Docs: docs/audit.md
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all entries.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
//
//	Docs: docs/audit.md
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded entries to an
// [io.Writer].
//
//	Docs: docs/audit.md
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
//
//	Docs: docs/audit.md
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
//
//	Docs: docs/audit.md
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
