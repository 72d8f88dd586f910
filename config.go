package medguard

import (
	"errors"
	"time"
)

// Config defines a public type used by medguard APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Lockout  LockoutConfig
	Password PasswordConfig
	TOTP     TOTPConfig
	OTP      OTPConfig
	Token    TokenConfig
	Audit    AuditConfig
	Anomaly  AnomalyConfig
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by medguard APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	MaxAttempts int
	Duration    time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by medguard APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Cost int
}

// TOTPConfig defines a public type used by medguard APIs.
//
// TOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPConfig struct {
	Issuer           string
	Digits           int
	Period           int
	Algorithm        string
	Skew             int
	BackupCodeCount  int
	BackupCodeLength int
}

// OTPConfig defines a public type used by medguard APIs.
//
// OTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OTPConfig struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
}

// TokenConfig defines a public type used by medguard APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	SigningKey []byte
	AccessTTL  time.Duration
}

// AuditConfig defines a public type used by medguard APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool

	RedisPrefix string
	// Retention is the regulatory horizon after which entries become eligible
	// for automatic deletion. Default is 2555 days (7 years).
	Retention time.Duration
	// SuspiciousRiskThreshold is the riskScore at or above which an entry is
	// indexed for suspicious-activity review even without an explicit flag.
	// Zero disables score-based indexing.
	SuspiciousRiskThreshold int
}

// AnomalyConfig defines a public type used by medguard APIs.
//
// AnomalyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AnomalyConfig struct {
	Window          time.Duration
	MaxDistinctIPs  int
	MaxRequests     int
	MaxFailedLogins int
	MaxAccessDenied int
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return cloneConfig(defaultConfig())
}

func defaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxAttempts: 5,
			Duration:    15 * time.Minute,
		},
		Password: PasswordConfig{
			Cost: 12,
		},
		TOTP: TOTPConfig{
			Issuer:           "MedGuard",
			Digits:           6,
			Period:           30,
			Algorithm:        "SHA1",
			Skew:             1,
			BackupCodeCount:  10,
			BackupCodeLength: 8,
		},
		OTP: OTPConfig{
			Digits:      6,
			TTL:         10 * time.Minute,
			MaxAttempts: 5,
		},
		Token: TokenConfig{
			AccessTTL: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:                 true,
			BufferSize:              256,
			DropIfFull:              true,
			RedisPrefix:             "maud",
			Retention:               2555 * 24 * time.Hour,
			SuspiciousRiskThreshold: 50,
		},
		Anomaly: AnomalyConfig{
			Window:          60 * time.Minute,
			MaxDistinctIPs:  3,
			MaxRequests:     100,
			MaxFailedLogins: 3,
			MaxAccessDenied: 5,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.Lockout.MaxAttempts < 1 {
		return errors.New("Lockout MaxAttempts must be >= 1")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be positive")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("TOTP Digits must be between 6 and 8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP Period must be positive")
	}
	if c.TOTP.Skew < 0 {
		return errors.New("TOTP Skew must be >= 0")
	}
	if c.TOTP.BackupCodeCount < 1 {
		return errors.New("TOTP BackupCodeCount must be >= 1")
	}
	if c.TOTP.BackupCodeLength < 8 {
		return errors.New("TOTP BackupCodeLength must be >= 8")
	}
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 6 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be positive")
	}
	if c.OTP.MaxAttempts < 1 {
		return errors.New("OTP MaxAttempts must be >= 1")
	}
	if len(c.Token.SigningKey) > 0 && len(c.Token.SigningKey) < 32 {
		return errors.New("Token SigningKey must be at least 32 bytes")
	}
	if len(c.Token.SigningKey) > 0 && c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be positive when tokens are enabled")
	}
	if c.Audit.Retention <= 0 {
		return errors.New("Audit Retention must be positive")
	}
	if c.Audit.SuspiciousRiskThreshold < 0 || c.Audit.SuspiciousRiskThreshold > 100 {
		return errors.New("Audit SuspiciousRiskThreshold must be within 0..100")
	}
	if c.Anomaly.Window <= 0 {
		return errors.New("Anomaly Window must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningKey = cloneBytes(cfg.Token.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
