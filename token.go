package medguard

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type accessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// tokenManager issues and parses HS256 access tokens. It is nil when the
// builder was given no signing key, in which case the token APIs return
// ErrEngineNotReady and the rest of the engine works without tokens.
type tokenManager struct {
	signingKey []byte
	accessTTL  time.Duration
}

func newTokenManager(cfg TokenConfig) *tokenManager {
	if len(cfg.SigningKey) == 0 {
		return nil
	}
	return &tokenManager{
		signingKey: cloneBytes(cfg.SigningKey),
		accessTTL:  cfg.AccessTTL,
	}
}

func (m *tokenManager) Issue(account Account, now time.Time) (string, error) {
	if m == nil {
		return "", ErrEngineNotReady
	}

	claims := accessClaims{
		Role: string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

func (m *tokenManager) Parse(tokenStr string) (TokenClaims, error) {
	if m == nil {
		return TokenClaims{}, ErrEngineNotReady
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return TokenClaims{}, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return TokenClaims{}, ErrTokenInvalid
	}

	return TokenClaims{
		AccountID: claims.Subject,
		Role:      Role(claims.Role),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IssueToken describes the issuetoken operation and its observable behavior.
//
// IssueToken may return an error when input validation, dependency calls, or security checks fail.
// IssueToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IssueToken(ctx context.Context, accountID string) (string, error) {
	if e == nil || e.accounts == nil {
		return "", ErrEngineNotReady
	}
	if e.tokens == nil {
		return "", ErrEngineNotReady
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return "", ErrAccountNotFound
	}

	return e.tokens.Issue(account, time.Now())
}

// ValidateToken describes the validatetoken operation and its observable behavior.
//
// ValidateToken may return an error when input validation, dependency calls, or security checks fail.
// ValidateToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A token issued before the account's last password change is rejected with
// ErrTokenRevoked, which is what makes changing the password invalidate
// every previously issued token.
func (e *Engine) ValidateToken(ctx context.Context, tokenStr string) (*TokenClaims, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	if e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return nil, err
	}

	account, err := e.accounts.GetAccountByID(ctx, claims.AccountID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}
	if account.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, ErrTokenRevoked
	}

	return &claims, nil
}
