package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"salvage-auction-engine/internal/core/ports"
)

// OTPStore holds issued one-time codes and their verification attempt
// counters. Codes live 5 minutes in storage; the service layer enforces the
// shorter client-facing window.
type OTPStore struct {
	client *goredis.Client
	prefix string
}

// NewOTPStore creates a new Redis-backed OTP store.
func NewOTPStore(client *goredis.Client) *OTPStore {
	return &OTPStore{
		client: client,
		prefix: "otp:",
	}
}

// Save stores a fresh code for the phone, resetting any previous code and
// attempt counter.
func (s *OTPStore) Save(ctx context.Context, phone, code string, issuedAt time.Time, ttl time.Duration) error {
	key := s.prefix + phone
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.attemptsKey(phone))
	pipe.HSet(ctx, key, "code", code, "issued", issuedAt.Unix())
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis otp save: %w", err)
	}
	return nil
}

// Get returns the stored code, or nil when none exists (expired or never sent).
func (s *OTPStore) Get(ctx context.Context, phone string) (*ports.IssuedCode, error) {
	vals, err := s.client.HGetAll(ctx, s.prefix+phone).Result()
	if err != nil {
		return nil, fmt.Errorf("redis otp get: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	issued, err := strconv.ParseInt(vals["issued"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis otp issued timestamp: %w", err)
	}
	return &ports.IssuedCode{Code: vals["code"], IssuedAt: time.Unix(issued, 0).UTC()}, nil
}

// IncrAttempts bumps the verification attempt counter and returns the new
// count. The counter expires with the code.
func (s *OTPStore) IncrAttempts(ctx context.Context, phone string, ttl time.Duration) (int64, error) {
	key := s.attemptsKey(phone)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis otp attempts incr: %w", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, ttl)
	}
	return count, nil
}

// Invalidate drops the code and its attempt counter, forcing a resend.
func (s *OTPStore) Invalidate(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, s.prefix+phone, s.attemptsKey(phone)).Err(); err != nil {
		return fmt.Errorf("redis otp invalidate: %w", err)
	}
	return nil
}

func (s *OTPStore) attemptsKey(phone string) string {
	return s.prefix + "attempts:" + phone
}
