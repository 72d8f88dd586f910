package medguard

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpKeyPrefix       = "motp"
	otpRecordVersionV1 = 1
)

var errOTPRedisUnavailable = errors.New("otp redis unavailable")

type otpRecord struct {
	CodeHash  [32]byte
	ExpiresAt int64
	Attempts  uint16
}

type otpChallengeStore struct {
	redis  *redis.Client
	prefix string
}

func newOTPChallengeStore(redisClient *redis.Client) *otpChallengeStore {
	return &otpChallengeStore{
		redis:  redisClient,
		prefix: otpKeyPrefix,
	}
}

func (s *otpChallengeStore) key(email string, purpose OTPPurpose) string {
	return s.prefix + ":" + string(purpose) + ":" + strings.ToLower(email)
}

// Save overwrites any live challenge for (email, purpose). Reissuing a code
// therefore invalidates the previous one and resets the attempt counter.
func (s *otpChallengeStore) Save(
	ctx context.Context,
	email string,
	purpose OTPPurpose,
	record *otpRecord,
	ttl time.Duration,
) error {
	encoded, err := encodeOTPRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(email, purpose), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}

	return nil
}

// Consume runs a single verification attempt against the stored challenge.
// Exhaustion is checked before the code is compared, so a challenge that has
// already burned all its attempts rejects even the correct code. A match
// deletes the challenge; a mismatch increments the counter and reports how
// many attempts remain.
func (s *otpChallengeStore) Consume(
	ctx context.Context,
	email string,
	purpose OTPPurpose,
	providedHash [32]byte,
	maxAttempts int,
) (int, error) {
	const maxRetries = 4
	key := s.key(email, purpose)

	for i := 0; i < maxRetries; i++ {
		var remaining int

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeOTPRecord(data)
			if err != nil {
				return err
			}

			now := time.Now()
			if now.Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrOTPExpired
			}

			if int(record.Attempts) >= maxAttempts {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrOTPExhausted
			}

			if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
				record.Attempts++
				remaining = maxAttempts - int(record.Attempts)

				ttl := time.Until(time.Unix(record.ExpiresAt, 0))
				if ttl <= 0 {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return ErrOTPExpired
				}

				updated, err := encodeOTPRecord(record)
				if err != nil {
					return err
				}

				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrOTPMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return 0, ErrOTPNotFound
			case errors.Is(err, ErrOTPExpired), errors.Is(err, ErrOTPExhausted):
				return 0, err
			case errors.Is(err, ErrOTPMismatch):
				return remaining, err
			default:
				return 0, fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
			}
		}

		return 0, nil
	}

	return 0, ErrOTPNotFound
}

func (s *otpChallengeStore) Delete(ctx context.Context, email string, purpose OTPPurpose) error {
	if err := s.redis.Del(ctx, s.key(email, purpose)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}
	return nil
}

func encodeOTPRecord(record *otpRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(otpRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeOTPRecord(data []byte) (*otpRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != otpRecordVersionV1 {
		return nil, errors.New("invalid otp record version")
	}

	record := &otpRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
