package medguard

import (
	"github.com/medguardlabs/medguard/fieldcipher"
	"github.com/medguardlabs/medguard/internal/audit"
	"github.com/medguardlabs/medguard/logger"
	"github.com/medguardlabs/medguard/password"
)

// Engine defines a public type used by medguard APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	accounts   AccountProvider
	cipher     *fieldcipher.Cipher
	hasher     *password.Hasher
	totp       *totpManager
	lockout    *lockoutCounter
	otpStore   *otpChallengeStore
	auditStore *auditStore
	audit      *audit.Dispatcher
	tokens     *tokenManager
	mailer     Mailer
	log        *logger.Logger
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// EncryptField describes the encryptfield operation and its observable behavior.
//
// EncryptField may return an error when input validation, dependency calls, or security checks fail.
// EncryptField does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) EncryptField(plaintext string) (string, error) {
	if e == nil || e.cipher == nil {
		return "", ErrEngineNotReady
	}
	return e.cipher.Encrypt(plaintext)
}

// DecryptField describes the decryptfield operation and its observable behavior.
//
// DecryptField may return an error when input validation, dependency calls, or security checks fail.
// DecryptField does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DecryptField(token string) (string, error) {
	if e == nil || e.cipher == nil {
		return "", ErrEngineNotReady
	}
	return e.cipher.Decrypt(token)
}
