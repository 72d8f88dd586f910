package medguard

import (
	"context"
	"strings"
	"time"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Unknown email and wrong password both return ErrInvalidCredentials so the
// caller cannot distinguish them. A locked account returns ErrAccountLocked
// instead, including on the failed attempt that triggers the lock. When the
// account has MFA enabled the result carries MFARequired and no access token;
// the caller completes the login through LoginWithMFA or LoginWithBackupCode.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.checkCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if account.MFAEnabled {
		return &LoginResult{AccountID: account.ID, MFARequired: true}, nil
	}

	return e.finishLogin(ctx, account)
}

// LoginWithMFA describes the loginwithmfa operation and its observable behavior.
//
// LoginWithMFA may return an error when input validation, dependency calls, or security checks fail.
// LoginWithMFA does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// An MFA-enabled account with no code supplied fails with ErrMFARequired
// before any verification is attempted.
func (e *Engine) LoginWithMFA(ctx context.Context, email, password, totpCode string) (*LoginResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.checkCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if account.MFAEnabled {
		if strings.TrimSpace(totpCode) == "" {
			return nil, ErrMFARequired
		}
		if err := e.VerifyMFAToken(ctx, account.ID, totpCode); err != nil {
			return nil, err
		}
	}

	return e.finishLogin(ctx, account)
}

// LoginWithBackupCode describes the loginwithbackupcode operation and its observable behavior.
//
// LoginWithBackupCode may return an error when input validation, dependency calls, or security checks fail.
// LoginWithBackupCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LoginWithBackupCode(ctx context.Context, email, password, backupCode string) (*LoginResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.checkCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if account.MFAEnabled {
		if strings.TrimSpace(backupCode) == "" {
			return nil, ErrMFARequired
		}
		if err := e.UseBackupCode(ctx, account.ID, backupCode); err != nil {
			return nil, err
		}
	}

	return e.finishLogin(ctx, account)
}

// checkCredentials runs the password phase of a login: generic rejection for
// unknown email or wrong password, lock enforcement, and exactly one audit
// entry per attempt. Failed checks are the only path that increments the
// lockout counter.
func (e *Engine) checkCredentials(ctx context.Context, email, candidate string) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now()

	if email == "" || candidate == "" {
		e.emitAudit(ctx, AuditEntry{
			Email:    email,
			Action:   ActionLoginFailed,
			Resource: "auth",
			Status:   StatusFailure,
			Details:  map[string]string{"reason": "empty_credentials"},
		})
		return Account{}, ErrInvalidCredentials
	}

	account, err := e.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		e.emitAudit(ctx, AuditEntry{
			Email:    email,
			Action:   ActionLoginFailed,
			Resource: "auth",
			Status:   StatusFailure,
			Details:  map[string]string{"reason": "account_not_found"},
		})
		return Account{}, ErrInvalidCredentials
	}

	if account.IsLocked(now) {
		e.emitAudit(ctx, AuditEntry{
			AccountID:         account.ID,
			Email:             email,
			Action:            ActionLoginFailed,
			Resource:          "auth",
			Status:            StatusFailure,
			IsSuspicious:      true,
			SuspiciousReasons: []string{"Login attempt on locked account"},
			Details:           map[string]string{"reason": "account_locked"},
		})
		return Account{}, ErrAccountLocked
	}

	if !account.IsActive {
		e.emitAudit(ctx, AuditEntry{
			AccountID: account.ID,
			Email:     email,
			Action:    ActionLoginFailed,
			Resource:  "auth",
			Status:    StatusFailure,
			Details:   map[string]string{"reason": "account_inactive"},
		})
		return Account{}, ErrAccountInactive
	}

	if account.PasswordHash == "" {
		// Federated account with no local password.
		e.emitAudit(ctx, AuditEntry{
			AccountID: account.ID,
			Email:     email,
			Action:    ActionLoginFailed,
			Resource:  "auth",
			Status:    StatusFailure,
			Details:   map[string]string{"reason": "no_password_hash"},
		})
		return Account{}, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(candidate, account.PasswordHash)
	if err != nil || !ok {
		return Account{}, e.recordFailedAttempt(ctx, account, now)
	}

	return account, nil
}

// recordFailedAttempt applies the lockout state machine after a failed
// password check. The Redis counter carries the attempt window; its TTL means
// an expired window restarts counting at attempt one without any cleanup
// step. The stored account state mirrors the counter for audit-review
// visibility but is never consulted for the locking decision.
func (e *Engine) recordFailedAttempt(ctx context.Context, account Account, now time.Time) error {
	attempts, locked, err := e.lockout.RecordFailure(ctx, account.ID)
	if err != nil {
		e.log.WithComponent("lockout").WithError(err).Error("failed attempt counting unavailable")
		e.emitAudit(ctx, AuditEntry{
			AccountID: account.ID,
			Email:     account.Email,
			Action:    ActionLoginFailed,
			Resource:  "auth",
			Status:    StatusFailure,
			Details:   map[string]string{"reason": "lockout_unavailable"},
		})
		return ErrStoreUnavailable
	}

	state := LoginState{Attempts: attempts}
	if locked {
		state.LockUntil = e.lockout.lockUntil(now)
	}
	if err := e.accounts.UpdateLoginState(ctx, account.ID, state); err != nil {
		e.log.WithComponent("lockout").WithError(err).Error("login state update failed")
	}

	if locked {
		e.emitAudit(ctx, AuditEntry{
			AccountID:         account.ID,
			Email:             account.Email,
			Action:            ActionLoginFailed,
			Resource:          "auth",
			Status:            StatusFailure,
			IsSuspicious:      true,
			SuspiciousReasons: []string{"Account locked after repeated failures"},
			Details:           map[string]string{"reason": "lockout_triggered"},
		})
		return ErrAccountLocked
	}

	e.emitAudit(ctx, AuditEntry{
		AccountID: account.ID,
		Email:     account.Email,
		Action:    ActionLoginFailed,
		Resource:  "auth",
		Status:    StatusFailure,
		Details:   map[string]string{"reason": "password_mismatch"},
	})
	return ErrInvalidCredentials
}

// finishLogin resets the failure window, records the successful attempt on
// the account, and issues an access token when token support is configured.
func (e *Engine) finishLogin(ctx context.Context, account Account) (*LoginResult, error) {
	now := time.Now()
	ip := clientIPFromContext(ctx)

	if err := e.lockout.Reset(ctx, account.ID); err != nil {
		e.log.WithComponent("lockout").WithError(err).Error("lockout reset failed")
	}

	state := LoginState{
		Attempts:    0,
		LastLogin:   now,
		LastLoginIP: ip,
	}
	if err := e.accounts.UpdateLoginState(ctx, account.ID, state); err != nil {
		e.log.WithComponent("lockout").WithError(err).Error("login state update failed")
	}

	result := &LoginResult{AccountID: account.ID}

	if e.tokens != nil {
		token, err := e.tokens.Issue(account, now)
		if err != nil {
			e.emitAudit(ctx, AuditEntry{
				AccountID: account.ID,
				Email:     account.Email,
				Action:    ActionLoginFailed,
				Resource:  "auth",
				Status:    StatusFailure,
				Details:   map[string]string{"reason": "token_issue_failed"},
			})
			return nil, err
		}
		result.AccessToken = token
	}

	e.emitAudit(ctx, AuditEntry{
		AccountID: account.ID,
		Email:     account.Email,
		Action:    ActionLogin,
		Resource:  "auth",
		Status:    StatusSuccess,
	})

	return result, nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The account provider stamps PasswordChangedAt inside UpdatePasswordHash,
// which retroactively invalidates every token issued before the change.
func (e *Engine) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if accountID == "" || oldPassword == "" || newPassword == "" {
		return ErrInvalidCredentials
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return ErrAccountNotFound
	}
	if !account.IsActive {
		return ErrAccountInactive
	}

	ok, err := e.hasher.Verify(oldPassword, account.PasswordHash)
	if err != nil || !ok {
		e.emitAudit(ctx, AuditEntry{
			AccountID: account.ID,
			Email:     account.Email,
			Action:    ActionPasswordChange,
			Resource:  "auth",
			Status:    StatusFailure,
			Details:   map[string]string{"reason": "old_password_mismatch"},
		})
		return ErrInvalidCredentials
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := e.accounts.UpdatePasswordHash(ctx, accountID, newHash); err != nil {
		e.emitAudit(ctx, AuditEntry{
			AccountID: account.ID,
			Email:     account.Email,
			Action:    ActionPasswordChange,
			Resource:  "auth",
			Status:    StatusFailure,
			Details:   map[string]string{"reason": "update_hash_failed"},
		})
		return err
	}

	if err := e.lockout.Reset(ctx, accountID); err != nil {
		e.log.WithComponent("lockout").WithError(err).Error("lockout reset failed")
	}

	e.emitAudit(ctx, AuditEntry{
		AccountID: account.ID,
		Email:     account.Email,
		Action:    ActionPasswordChange,
		Resource:  "auth",
		Status:    StatusSuccess,
	})

	return nil
}
