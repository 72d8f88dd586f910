package medguard

import (
	"context"
	"strings"
	"time"

	"github.com/medguardlabs/medguard/internal"
)

// ProvisionMFA describes the provisionmfa operation and its observable behavior.
//
// ProvisionMFA may return an error when input validation, dependency calls, or security checks fail.
// ProvisionMFA does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// It generates a fresh TOTP secret and stores it encrypted in a pending
// state. MFA is not enabled until the account proves possession of the
// secret through ActivateMFA.
func (e *Engine) ProvisionMFA(ctx context.Context, accountID string) (*MFAProvision, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	if e.cipher == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	if account.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	_, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	envelope, err := e.cipher.Encrypt(secretBase32)
	if err != nil {
		return nil, err
	}

	if err := e.accounts.SetPendingMFA(ctx, accountID, envelope); err != nil {
		return nil, err
	}

	return &MFAProvision{
		Secret: secretBase32,
		URI:    e.totp.ProvisionURI(secretBase32, account.Email),
	}, nil
}

// ActivateMFA describes the activatemfa operation and its observable behavior.
//
// ActivateMFA may return an error when input validation, dependency calls, or security checks fail.
// ActivateMFA does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A valid code from the pending secret flips the account to MFA-enabled and
// returns the freshly generated single-use backup codes. The plaintext codes
// are shown exactly once; only their hashes are stored.
func (e *Engine) ActivateMFA(ctx context.Context, accountID, totpCode string) ([]string, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	record, err := e.accounts.GetMFA(ctx, accountID)
	if err != nil || record == nil {
		return nil, ErrMFANotConfigured
	}
	if record.Enabled {
		return nil, ErrMFAAlreadyEnabled
	}

	secret, err := e.pendingSecret(record)
	if err != nil {
		return nil, err
	}

	ok, err := e.totp.VerifyCode(secret, totpCode, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		e.auditMFAFailure(ctx, accountID, "activation_code_mismatch")
		return nil, ErrMFAInvalid
	}

	if err := e.accounts.ActivateMFA(ctx, accountID); err != nil {
		return nil, err
	}

	codes, err := e.issueBackupCodes(ctx, accountID)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, AuditEntry{
		AccountID: accountID,
		Action:    ActionMFAEnabled,
		Resource:  "mfa",
		Status:    StatusSuccess,
	})

	return codes, nil
}

// VerifyMFAToken describes the verifymfatoken operation and its observable behavior.
//
// VerifyMFAToken may return an error when input validation, dependency calls, or security checks fail.
// VerifyMFAToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Codes within one 30-second step of clock drift verify; malformed codes and
// codes further out are rejected. Every rejection writes a suspicious audit
// entry.
func (e *Engine) VerifyMFAToken(ctx context.Context, accountID, totpCode string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	record, err := e.accounts.GetMFA(ctx, accountID)
	if err != nil || record == nil || !record.Enabled {
		return ErrMFANotConfigured
	}

	secret, err := e.pendingSecret(record)
	if err != nil {
		return err
	}

	ok, err := e.totp.VerifyCode(secret, totpCode, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		e.auditMFAFailure(ctx, accountID, "totp_mismatch")
		return ErrMFAInvalid
	}

	return nil
}

// UseBackupCode describes the usebackupcode operation and its observable behavior.
//
// UseBackupCode may return an error when input validation, dependency calls, or security checks fail.
// UseBackupCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Consumption is an atomic find-and-delete in the account provider, so each
// code is accepted exactly once even under concurrent use.
func (e *Engine) UseBackupCode(ctx context.Context, accountID, code string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	record, err := e.accounts.GetMFA(ctx, accountID)
	if err != nil || record == nil || !record.Enabled {
		return ErrMFANotConfigured
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		e.auditMFAFailure(ctx, accountID, "backup_code_empty")
		return ErrBackupCodeInvalid
	}

	ok, err := e.accounts.ConsumeBackupCode(ctx, accountID, internal.HashSecret([]byte(normalized)))
	if err != nil {
		return err
	}
	if !ok {
		e.auditMFAFailure(ctx, accountID, "backup_code_mismatch")
		return ErrBackupCodeInvalid
	}

	e.emitAudit(ctx, AuditEntry{
		AccountID: accountID,
		Action:    ActionLogin,
		Resource:  "mfa",
		Status:    StatusWarning,
		Details:   map[string]string{"reason": "backup_code_used"},
	})

	return nil
}

// RegenerateBackupCodes describes the regeneratebackupcodes operation and its observable behavior.
//
// RegenerateBackupCodes may return an error when input validation, dependency calls, or security checks fail.
// RegenerateBackupCodes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The caller must present a currently valid TOTP code; the previous set of
// backup codes is discarded wholesale.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, accountID, totpCode string) ([]string, error) {
	if err := e.VerifyMFAToken(ctx, accountID, totpCode); err != nil {
		return nil, err
	}
	return e.issueBackupCodes(ctx, accountID)
}

// DisableMFA describes the disablemfa operation and its observable behavior.
//
// DisableMFA may return an error when input validation, dependency calls, or security checks fail.
// DisableMFA does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Disabling requires the account password so a stolen session alone cannot
// strip the second factor.
func (e *Engine) DisableMFA(ctx context.Context, accountID, password string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return ErrAccountNotFound
	}
	if !account.MFAEnabled {
		return ErrMFANotConfigured
	}

	ok, err := e.hasher.Verify(password, account.PasswordHash)
	if err != nil || !ok {
		e.auditMFAFailure(ctx, accountID, "disable_password_mismatch")
		return ErrInvalidCredentials
	}

	if err := e.accounts.DisableMFA(ctx, accountID); err != nil {
		return err
	}

	e.emitAudit(ctx, AuditEntry{
		AccountID: accountID,
		Email:     account.Email,
		Action:    ActionMFADisabled,
		Resource:  "mfa",
		Status:    StatusWarning,
	})

	return nil
}

func (e *Engine) issueBackupCodes(ctx context.Context, accountID string) ([]string, error) {
	count := e.config.TOTP.BackupCodeCount
	length := e.config.TOTP.BackupCodeLength

	codes := make([]string, 0, count)
	records := make([]BackupCodeRecord, 0, count)
	for i := 0; i < count; i++ {
		code, err := internal.NewBackupCode(length)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
		records = append(records, BackupCodeRecord{Hash: internal.HashSecret([]byte(code))})
	}

	if err := e.accounts.ReplaceBackupCodes(ctx, accountID, records); err != nil {
		return nil, err
	}

	return codes, nil
}

// pendingSecret decrypts the stored secret envelope back to raw TOTP key
// bytes. The plaintext secret exists only for the duration of a verification.
func (e *Engine) pendingSecret(record *MFARecord) ([]byte, error) {
	if e.cipher == nil {
		return nil, ErrEngineNotReady
	}
	if record.SecretEnvelope == "" {
		return nil, ErrMFANotConfigured
	}

	secretBase32, err := e.cipher.Decrypt(record.SecretEnvelope)
	if err != nil {
		return nil, err
	}
	return decodeSecretBase32(secretBase32)
}

func (e *Engine) auditMFAFailure(ctx context.Context, accountID, reason string) {
	e.emitAudit(ctx, AuditEntry{
		AccountID:         accountID,
		Action:            ActionMFAFailed,
		Resource:          "mfa",
		Status:            StatusFailure,
		IsSuspicious:      true,
		SuspiciousReasons: []string{"Failed MFA verification"},
		Details:           map[string]string{"reason": reason},
	})
}
