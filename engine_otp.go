package medguard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/medguardlabs/medguard/internal"
)

func validOTPPurpose(purpose OTPPurpose) bool {
	switch purpose {
	case PurposeRegistration, PurposePasswordReset, PurposeLoginVerification:
		return true
	default:
		return false
	}
}

// IssueOTP describes the issueotp operation and its observable behavior.
//
// IssueOTP may return an error when input validation, dependency calls, or security checks fail.
// IssueOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Issuing replaces any live challenge for the same (email, purpose), so at
// most one challenge is active per key and a reissued code invalidates its
// predecessor. The code travels only through the mailer; delivery failures
// are logged, not returned, and the code is never written to the audit trail.
func (e *Engine) IssueOTP(ctx context.Context, email string, purpose OTPPurpose) error {
	if e == nil || e.otpStore == nil {
		return ErrEngineNotReady
	}
	if !validOTPPurpose(purpose) {
		return ErrOTPPurposeInvalid
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrOTPNotFound
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return err
	}

	record := &otpRecord{
		CodeHash:  internal.HashSecret([]byte(code)),
		ExpiresAt: time.Now().Add(e.config.OTP.TTL).Unix(),
	}
	if err := e.otpStore.Save(ctx, email, purpose, record, e.config.OTP.TTL); err != nil {
		return err
	}

	if e.mailer != nil {
		if err := e.mailer.SendOTP(ctx, email, code, purpose); err != nil {
			e.log.WithComponent("otp").WithError(err).Error("otp delivery failed")
		}
	}

	e.emitAudit(ctx, AuditEntry{
		Email:    email,
		Action:   ActionOTPIssued,
		Resource: "otp",
		Status:   StatusSuccess,
		Details:  map[string]string{"purpose": string(purpose)},
	})

	return nil
}

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// VerifyOTP may return an error when input validation, dependency calls, or security checks fail.
// VerifyOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Failure reasons are distinguishable: ErrOTPNotFound, ErrOTPExpired,
// ErrOTPExhausted (the attempt cap is checked before the code is compared,
// so an exhausted challenge rejects even the correct code), or
// ErrOTPMismatch with the number of attempts remaining. A verified code is
// deleted and a replayed verification reports not-found.
func (e *Engine) VerifyOTP(ctx context.Context, email, code string, purpose OTPPurpose) (int, error) {
	if e == nil || e.otpStore == nil {
		return 0, ErrEngineNotReady
	}
	if !validOTPPurpose(purpose) {
		return 0, ErrOTPPurposeInvalid
	}

	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	remaining, err := e.otpStore.Consume(ctx, email, purpose, internal.HashSecret([]byte(code)), e.config.OTP.MaxAttempts)
	if err != nil {
		reason := "verification_failed"
		switch {
		case errors.Is(err, ErrOTPNotFound):
			reason = "challenge_not_found"
		case errors.Is(err, ErrOTPExpired):
			reason = "challenge_expired"
		case errors.Is(err, ErrOTPExhausted):
			reason = "attempts_exhausted"
		case errors.Is(err, ErrOTPMismatch):
			reason = "code_mismatch"
		}
		e.emitAudit(ctx, AuditEntry{
			Email:    email,
			Action:   ActionOTPFailed,
			Resource: "otp",
			Status:   StatusFailure,
			Details: map[string]string{
				"purpose": string(purpose),
				"reason":  reason,
			},
		})
		return remaining, err
	}

	e.emitAudit(ctx, AuditEntry{
		Email:    email,
		Action:   ActionOTPVerified,
		Resource: "otp",
		Status:   StatusSuccess,
		Details:  map[string]string{"purpose": string(purpose)},
	})

	return 0, nil
}
