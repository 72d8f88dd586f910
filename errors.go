package medguard

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the records security engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is an exported constant or variable used by the records security engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountLocked is an exported constant or variable used by the records security engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive is an exported constant or variable used by the records security engine.
	ErrAccountInactive = errors.New("account deactivated")
	// ErrMFARequired is an exported constant or variable used by the records security engine.
	ErrMFARequired = errors.New("mfa verification required")
	// ErrMFANotConfigured is an exported constant or variable used by the records security engine.
	ErrMFANotConfigured = errors.New("mfa not configured")
	// ErrMFAAlreadyEnabled is an exported constant or variable used by the records security engine.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	// ErrMFAInvalid is an exported constant or variable used by the records security engine.
	ErrMFAInvalid = errors.New("invalid mfa token")
	// ErrBackupCodeInvalid is an exported constant or variable used by the records security engine.
	ErrBackupCodeInvalid = errors.New("invalid backup code")
	// ErrOTPPurposeInvalid is an exported constant or variable used by the records security engine.
	ErrOTPPurposeInvalid = errors.New("invalid otp purpose")
	// ErrOTPNotFound is an exported constant or variable used by the records security engine.
	ErrOTPNotFound = errors.New("otp challenge not found")
	// ErrOTPExpired is an exported constant or variable used by the records security engine.
	ErrOTPExpired = errors.New("otp challenge expired")
	// ErrOTPExhausted is an exported constant or variable used by the records security engine.
	ErrOTPExhausted = errors.New("otp verification attempts exceeded")
	// ErrOTPMismatch is an exported constant or variable used by the records security engine.
	ErrOTPMismatch = errors.New("otp code mismatch")
	// ErrTokenInvalid is an exported constant or variable used by the records security engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenRevoked is an exported constant or variable used by the records security engine.
	ErrTokenRevoked = errors.New("token issued before last password change")
	// ErrEntryNotFound is an exported constant or variable used by the records security engine.
	ErrEntryNotFound = errors.New("audit entry not found")
	// ErrStoreUnavailable is an exported constant or variable used by the records security engine.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the records security engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
