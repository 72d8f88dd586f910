package medguard

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Audit action taxonomy. The login actions feed the per-email brute-force
// index; LOGIN_FAILED and ACCESS_DENIED additionally feed the anomaly rules.
const (
	// ActionLogin is an exported constant or variable used by the records security engine.
	ActionLogin = "LOGIN"
	// ActionLoginFailed is an exported constant or variable used by the records security engine.
	ActionLoginFailed = "LOGIN_FAILED"
	// ActionLogout is an exported constant or variable used by the records security engine.
	ActionLogout = "LOGOUT"
	// ActionAccessDenied is an exported constant or variable used by the records security engine.
	ActionAccessDenied = "ACCESS_DENIED"
	// ActionRecordRead is an exported constant or variable used by the records security engine.
	ActionRecordRead = "RECORD_READ"
	// ActionRecordWrite is an exported constant or variable used by the records security engine.
	ActionRecordWrite = "RECORD_WRITE"
	// ActionRoleChange is an exported constant or variable used by the records security engine.
	ActionRoleChange = "ROLE_CHANGE"
	// ActionPasswordChange is an exported constant or variable used by the records security engine.
	ActionPasswordChange = "PASSWORD_CHANGE"
	// ActionMFAEnabled is an exported constant or variable used by the records security engine.
	ActionMFAEnabled = "MFA_ENABLED"
	// ActionMFADisabled is an exported constant or variable used by the records security engine.
	ActionMFADisabled = "MFA_DISABLED"
	// ActionMFAFailed is an exported constant or variable used by the records security engine.
	ActionMFAFailed = "MFA_FAILED"
	// ActionOTPIssued is an exported constant or variable used by the records security engine.
	ActionOTPIssued = "OTP_ISSUED"
	// ActionOTPVerified is an exported constant or variable used by the records security engine.
	ActionOTPVerified = "OTP_VERIFIED"
	// ActionOTPFailed is an exported constant or variable used by the records security engine.
	ActionOTPFailed = "OTP_FAILED"
)

// Statuses re-exported from the internal audit package.
const (
	// StatusSuccess is an exported constant or variable used by the records security engine.
	StatusSuccess = "success"
	// StatusFailure is an exported constant or variable used by the records security engine.
	StatusFailure = "failure"
	// StatusWarning is an exported constant or variable used by the records security engine.
	StatusWarning = "warning"
)

// LogAudit describes the logaudit operation and its observable behavior.
//
// LogAudit may return an error when input validation, dependency calls, or security checks fail.
// LogAudit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The returned ID identifies the stored entry. Persistence is best-effort:
// a failed trail write is reported through the side-channel logger, never to
// the caller, so audit logging cannot abort the operation it is describing.
func (e *Engine) LogAudit(ctx context.Context, entry AuditEntry) string {
	if e == nil {
		return ""
	}
	return e.emitAudit(ctx, entry)
}

func (e *Engine) emitAudit(ctx context.Context, entry AuditEntry) string {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Status == "" {
		entry.Status = StatusSuccess
	}
	if entry.IP == "" {
		entry.IP = clientIPFromContext(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = userAgentFromContext(ctx)
	}
	entry.Email = strings.ToLower(entry.Email)
	if entry.IsSuspicious && entry.RiskScore == 0 {
		entry.RiskScore = 20 * len(entry.SuspiciousReasons)
		if entry.RiskScore > 100 {
			entry.RiskScore = 100
		}
	}

	if e.auditStore != nil {
		if err := e.auditStore.Save(ctx, &entry); err != nil {
			e.log.AuditFailure(entry.Action, err)
		}
	}

	e.audit.Emit(ctx, entry)

	return entry.ID
}

// MarkSuspicious describes the marksuspicious operation and its observable behavior.
//
// MarkSuspicious may return an error when input validation, dependency calls, or security checks fail.
// MarkSuspicious does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MarkSuspicious(ctx context.Context, entryID string, reasons []string) (*AuditEntry, error) {
	if e == nil || e.auditStore == nil {
		return nil, ErrEngineNotReady
	}
	if entryID == "" || len(reasons) == 0 {
		return nil, ErrEntryNotFound
	}
	return e.auditStore.MarkSuspicious(ctx, entryID, reasons)
}

// GetAuditEntry describes the getauditentry operation and its observable behavior.
//
// GetAuditEntry may return an error when input validation, dependency calls, or security checks fail.
// GetAuditEntry does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetAuditEntry(ctx context.Context, entryID string) (*AuditEntry, error) {
	if e == nil || e.auditStore == nil {
		return nil, ErrEngineNotReady
	}
	return e.auditStore.Get(ctx, entryID)
}

// RecentActivity describes the recentactivity operation and its observable behavior.
//
// RecentActivity may return an error when input validation, dependency calls, or security checks fail.
// RecentActivity does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// It returns all of the account's entries inside the trailing window.
func (e *Engine) RecentActivity(ctx context.Context, accountID string, window time.Duration) ([]AuditEntry, error) {
	if e == nil || e.auditStore == nil {
		return nil, ErrEngineNotReady
	}
	now := time.Now()
	return e.auditStore.ByAccount(ctx, accountID, now.Add(-window), now, 0)
}

// LoginAttempts describes the loginattempts operation and its observable behavior.
//
// LoginAttempts may return an error when input validation, dependency calls, or security checks fail.
// LoginAttempts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// It returns LOGIN and LOGIN_FAILED entries for the email inside the trailing
// window, keyed by identifier rather than account so attempts against unknown
// or pre-registration emails remain visible.
func (e *Engine) LoginAttempts(ctx context.Context, email string, window time.Duration) ([]AuditEntry, error) {
	if e == nil || e.auditStore == nil {
		return nil, ErrEngineNotReady
	}
	now := time.Now()
	return e.auditStore.ByEmail(ctx, strings.ToLower(email), now.Add(-window), now, 0)
}

// SuspiciousEntries describes the suspiciousentries operation and its observable behavior.
//
// SuspiciousEntries may return an error when input validation, dependency calls, or security checks fail.
// SuspiciousEntries does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SuspiciousEntries(ctx context.Context, window time.Duration) ([]AuditEntry, error) {
	if e == nil || e.auditStore == nil {
		return nil, ErrEngineNotReady
	}
	now := time.Now()
	return e.auditStore.Suspicious(ctx, now.Add(-window), now, 0)
}
