package medguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medguardlabs/medguard/internal/audit"
)

var errAuditRedisUnavailable = errors.New("audit redis unavailable")

// auditStore persists the audit trail in Redis. Each entry lives under its
// own key with the retention TTL; per-account, per-email, and suspicious
// sorted sets index entry IDs by timestamp so window queries stay cheap.
// Index members whose entry has aged out are pruned lazily on query.
type auditStore struct {
	redis         *redis.Client
	prefix        string
	retention     time.Duration
	riskThreshold int
}

func newAuditStore(redisClient *redis.Client, cfg AuditConfig) *auditStore {
	return &auditStore{
		redis:         redisClient,
		prefix:        cfg.RedisPrefix,
		retention:     cfg.Retention,
		riskThreshold: cfg.SuspiciousRiskThreshold,
	}
}

func (s *auditStore) entryKey(id string) string {
	return s.prefix + ":entry:" + id
}

func (s *auditStore) accountKey(accountID string) string {
	return s.prefix + ":acct:" + accountID
}

func (s *auditStore) emailKey(email string) string {
	return s.prefix + ":email:" + email
}

func (s *auditStore) suspiciousKey() string {
	return s.prefix + ":susp"
}

// flagged reports whether the entry belongs in the suspicious index: either
// explicitly marked, or carrying a risk score at or above the configured
// threshold. A threshold of 0 disables score-based indexing.
func (s *auditStore) flagged(entry *audit.Entry) bool {
	if entry.IsSuspicious {
		return true
	}
	return s.riskThreshold > 0 && entry.RiskScore >= s.riskThreshold
}

// Save writes the entry and indexes it. The email index only tracks login
// actions so pre-authentication failures remain queryable by identifier.
// High-risk entries join the suspicious index even without an explicit flag.
func (s *auditStore) Save(ctx context.Context, entry *audit.Entry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	score := float64(entry.Timestamp.UnixMilli())

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(entry.ID), encoded, s.retention)
		if entry.AccountID != "" {
			pipe.ZAdd(ctx, s.accountKey(entry.AccountID), redis.Z{Score: score, Member: entry.ID})
			pipe.Expire(ctx, s.accountKey(entry.AccountID), s.retention)
		}
		if entry.Email != "" && isLoginAction(entry.Action) {
			pipe.ZAdd(ctx, s.emailKey(entry.Email), redis.Z{Score: score, Member: entry.ID})
			pipe.Expire(ctx, s.emailKey(entry.Email), s.retention)
		}
		if s.flagged(entry) {
			pipe.ZAdd(ctx, s.suspiciousKey(), redis.Z{Score: score, Member: entry.ID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errAuditRedisUnavailable, err)
	}

	return nil
}

// Get fetches a single entry by ID.
func (s *auditStore) Get(ctx context.Context, id string) (*audit.Entry, error) {
	data, err := s.redis.Get(ctx, s.entryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("%w: %v", errAuditRedisUnavailable, err)
	}

	var entry audit.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ByAccount returns the account's entries inside [from, to], newest last.
func (s *auditStore) ByAccount(ctx context.Context, accountID string, from, to time.Time, limit int) ([]audit.Entry, error) {
	return s.byIndex(ctx, s.accountKey(accountID), from, to, limit)
}

// ByEmail returns login-action entries for the identifier inside [from, to].
func (s *auditStore) ByEmail(ctx context.Context, email string, from, to time.Time, limit int) ([]audit.Entry, error) {
	return s.byIndex(ctx, s.emailKey(email), from, to, limit)
}

// Suspicious returns flagged entries inside [from, to].
func (s *auditStore) Suspicious(ctx context.Context, from, to time.Time, limit int) ([]audit.Entry, error) {
	return s.byIndex(ctx, s.suspiciousKey(), from, to, limit)
}

func (s *auditStore) byIndex(ctx context.Context, indexKey string, from, to time.Time, limit int) ([]audit.Entry, error) {
	// Drop index members older than the retention horizon before reading.
	horizon := time.Now().Add(-s.retention).UnixMilli()
	if err := s.redis.ZRemRangeByScore(ctx, indexKey, "-inf", fmt.Sprintf("%d", horizon)).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errAuditRedisUnavailable, err)
	}

	opt := &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", from.UnixMilli()),
		Max: fmt.Sprintf("%d", to.UnixMilli()),
	}
	if limit > 0 {
		opt.Count = int64(limit)
	}

	ids, err := s.redis.ZRangeByScore(ctx, indexKey, opt).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errAuditRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.entryKey(id))
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errAuditRedisUnavailable, err)
	}

	entries := make([]audit.Entry, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Entry expired under its index member; skip it.
			continue
		}
		var entry audit.Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// MarkSuspicious flags an entry in place, appending reasons and bumping the
// risk score by 20 per reason, capped at 100. The entry keeps its original
// retention TTL.
func (s *auditStore) MarkSuspicious(ctx context.Context, id string, reasons []string) (*audit.Entry, error) {
	const maxRetries = 4
	key := s.entryKey(id)

	for i := 0; i < maxRetries; i++ {
		var updated *audit.Entry

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var entry audit.Entry
			if err := json.Unmarshal(data, &entry); err != nil {
				return err
			}

			entry.IsSuspicious = true
			entry.SuspiciousReasons = append(entry.SuspiciousReasons, reasons...)
			entry.RiskScore += 20 * len(reasons)
			if entry.RiskScore > 100 {
				entry.RiskScore = 100
			}

			encoded, err := json.Marshal(&entry)
			if err != nil {
				return err
			}

			score := float64(entry.Timestamp.UnixMilli())
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, redis.KeepTTL)
				pipe.ZAdd(ctx, s.suspiciousKey(), redis.Z{Score: score, Member: entry.ID})
				return nil
			})
			if err != nil {
				return err
			}

			updated = &entry
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrEntryNotFound
			}
			return nil, fmt.Errorf("%w: %v", errAuditRedisUnavailable, err)
		}

		return updated, nil
	}

	return nil, ErrEntryNotFound
}

func isLoginAction(action string) bool {
	return action == ActionLogin || action == ActionLoginFailed
}
