package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// OTP policy. The stored code outlives the client-facing window so a late
// but otherwise valid entry fails as expired rather than unknown.
const (
	otpLength       = 6
	otpStorageTTL   = 5 * time.Minute
	otpClientWindow = 3 * time.Minute
	otpMaxAttempts  = 3

	otpSendLimit  = 3
	otpSendWindow = 10 * time.Minute
)

// OTPServiceImpl implements ports.OTPVerifier against the code store, with
// delivery through the notification gateway.
type OTPServiceImpl struct {
	store    ports.OTPStore
	limiter  ports.RateLimiter
	notifier ports.Notifier
	log      zerolog.Logger
}

// NewOTPService creates a new OTPServiceImpl.
func NewOTPService(store ports.OTPStore, limiter ports.RateLimiter, notifier ports.Notifier, log zerolog.Logger) *OTPServiceImpl {
	return &OTPServiceImpl{
		store:    store,
		limiter:  limiter,
		notifier: notifier,
		log:      log,
	}
}

// Send issues a fresh code for the phone. Rate-limited per phone; a resend
// invalidates the previous code.
func (s *OTPServiceImpl) Send(ctx context.Context, phone string) error {
	limit, err := s.limiter.Allow(ctx, "otp:"+phone, otpSendLimit, otpSendWindow)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("otp rate limit check: %w", err))
	}
	if !limit.Allowed {
		return apperror.ErrOTPRateLimited()
	}

	code, err := generateOTPCode()
	if err != nil {
		return apperror.InternalError(fmt.Errorf("generate otp: %w", err))
	}

	now := time.Now().UTC()
	if err := s.store.Save(ctx, phone, code, now, otpStorageTTL); err != nil {
		return apperror.InternalError(fmt.Errorf("save otp: %w", err))
	}

	// Delivery rides the SMS gateway, fire-and-forget. The vendor ID is not
	// known at this boundary; the gateway routes by payload phone.
	s.notifier.Notify(ctx, ports.Notification{
		Channel: ports.ChannelSMS,
		Event:   "otp_code",
		Payload: map[string]any{
			"phone": phone,
			"code":  code,
		},
	})

	s.log.Info().Str("phone", maskPhone(phone)).Msg("otp issued")
	return nil
}

// Verify checks a submitted code. At most 3 attempts per issued code; the
// client window is shorter than the storage TTL.
func (s *OTPServiceImpl) Verify(ctx context.Context, phone, code string) error {
	issued, err := s.store.Get(ctx, phone)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get otp: %w", err))
	}
	if issued == nil {
		return apperror.ErrOTPInvalid()
	}

	attempts, err := s.store.IncrAttempts(ctx, phone, otpStorageTTL)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("count otp attempt: %w", err))
	}
	if attempts > otpMaxAttempts {
		if err := s.store.Invalidate(ctx, phone); err != nil {
			s.log.Warn().Err(err).Str("phone", maskPhone(phone)).Msg("failed to invalidate otp after attempt limit")
		}
		return apperror.ErrOTPAttemptsExceeded()
	}

	if subtle.ConstantTimeCompare([]byte(issued.Code), []byte(code)) != 1 {
		return apperror.ErrOTPInvalid()
	}
	if time.Since(issued.IssuedAt) > otpClientWindow {
		return apperror.ErrOTPExpired()
	}

	// A code is single-use.
	if err := s.store.Invalidate(ctx, phone); err != nil {
		s.log.Warn().Err(err).Str("phone", maskPhone(phone)).Msg("failed to invalidate consumed otp")
	}
	return nil
}

func generateOTPCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n), nil
}

// maskPhone keeps logs free of full phone numbers.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
