package service

import (
	"context"
	"fmt"
	"time"

	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/apperror"
)

// AuthServiceImpl implements ports.AuthService. Vendors are provisioned
// externally after KYC; this boundary only authenticates them.
type AuthServiceImpl struct {
	vendorRepo ports.VendorRepository
	hashSvc    ports.HashService
	tokenSvc   ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(vendorRepo ports.VendorRepository, hashSvc ports.HashService, tokenSvc ports.TokenService) *AuthServiceImpl {
	return &AuthServiceImpl{
		vendorRepo: vendorRepo,
		hashSvc:    hashSvc,
		tokenSvc:   tokenSvc,
	}
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, phone, password string) (string, time.Time, error) {
	vendor, err := s.vendorRepo.GetByPhone(ctx, phone)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find vendor: %w", err))
	}
	if vendor == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, vendor.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	if !vendor.IsActive(time.Now().UTC()) {
		return "", time.Time{}, apperror.ErrVendorSuspended()
	}

	token, expiry, err := s.tokenSvc.Generate(vendor.ID, vendor.Tier)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
