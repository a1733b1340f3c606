package service

import (
	"context"
	"testing"
	"time"

	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports/mocks"
	"salvage-auction-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newAuthFixture(t *testing.T) (*AuthServiceImpl, *mocks.MockVendorRepository, *mocks.MockHashService, *mocks.MockTokenService) {
	ctrl := gomock.NewController(t)
	vendorRepo := mocks.NewMockVendorRepository(ctrl)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	return NewAuthService(vendorRepo, hashSvc, tokenSvc), vendorRepo, hashSvc, tokenSvc
}

func activeVendor(phone string) *domain.Vendor {
	return &domain.Vendor{
		ID:           uuid.New(),
		Phone:        phone,
		PasswordHash: "$argon2id$...",
		Tier:         domain.TierTwo,
		Status:       domain.VendorStatusActive,
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, vendorRepo, hashSvc, tokenSvc := newAuthFixture(t)

	vendor := activeVendor("+84901234567")
	expiry := time.Now().Add(24 * time.Hour)

	vendorRepo.EXPECT().GetByPhone(gomock.Any(), "+84901234567").Return(vendor, nil)
	hashSvc.EXPECT().Verify("secret-pass", vendor.PasswordHash).Return(true, nil)
	tokenSvc.EXPECT().Generate(vendor.ID, domain.TierTwo).Return("signed-token", expiry, nil)

	token, exp, err := svc.Login(context.Background(), "+84901234567", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "signed-token", token)
	assert.Equal(t, expiry, exp)
}

func TestAuthService_Login_UnknownPhone(t *testing.T) {
	svc, vendorRepo, _, _ := newAuthFixture(t)

	vendorRepo.EXPECT().GetByPhone(gomock.Any(), "+84900000000").Return(nil, nil)

	_, _, err := svc.Login(context.Background(), "+84900000000", "whatever")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrInvalidCredentials().Code, appErr.Code)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, vendorRepo, hashSvc, _ := newAuthFixture(t)

	vendor := activeVendor("+84901234567")
	vendorRepo.EXPECT().GetByPhone(gomock.Any(), "+84901234567").Return(vendor, nil)
	hashSvc.EXPECT().Verify("wrong-pass", vendor.PasswordHash).Return(false, nil)

	_, _, err := svc.Login(context.Background(), "+84901234567", "wrong-pass")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrInvalidCredentials().Code, appErr.Code)
}

func TestAuthService_Login_SuspendedVendor(t *testing.T) {
	svc, vendorRepo, hashSvc, _ := newAuthFixture(t)

	until := time.Now().Add(5 * 24 * time.Hour)
	vendor := activeVendor("+84901234567")
	vendor.Status = domain.VendorStatusSuspended
	vendor.SuspendedUntil = &until

	vendorRepo.EXPECT().GetByPhone(gomock.Any(), "+84901234567").Return(vendor, nil)
	hashSvc.EXPECT().Verify("secret-pass", vendor.PasswordHash).Return(true, nil)

	_, _, err := svc.Login(context.Background(), "+84901234567", "secret-pass")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrVendorSuspended().Code, appErr.Code)
}

func TestAuthService_Login_LapsedSuspensionAllowed(t *testing.T) {
	svc, vendorRepo, hashSvc, tokenSvc := newAuthFixture(t)

	until := time.Now().Add(-time.Hour)
	vendor := activeVendor("+84901234567")
	vendor.Status = domain.VendorStatusSuspended
	vendor.SuspendedUntil = &until

	vendorRepo.EXPECT().GetByPhone(gomock.Any(), "+84901234567").Return(vendor, nil)
	hashSvc.EXPECT().Verify("secret-pass", vendor.PasswordHash).Return(true, nil)
	tokenSvc.EXPECT().Generate(vendor.ID, domain.TierTwo).Return("signed-token", time.Now().Add(time.Hour), nil)

	token, _, err := svc.Login(context.Background(), "+84901234567", "secret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
