package service

import (
	"context"
	"encoding/json"
	"testing"

	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports/mocks"
	"salvage-auction-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	idempRepo  *mocks.MockIdempotencyRepository
	idempCache *mocks.MockIdempotencyCache
	auditSvc   *mocks.MockAuditService
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		idempRepo:  mocks.NewMockIdempotencyRepository(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		auditSvc:   mocks.NewMockAuditService(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWalletService(
		d.walletRepo, d.txRepo, d.idempRepo, d.idempCache,
		d.auditSvc, d.transactor, newTestLogger(),
	)
	return d
}

func testWallet(vendorID uuid.UUID, available, frozen int64) *domain.Wallet {
	return &domain.Wallet{
		ID:        uuid.New(),
		VendorID:  vendorID,
		Balance:   available + frozen,
		Available: available,
		Frozen:    frozen,
	}
}

func TestWalletService_Credit_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	wallet := testWallet(vendorID, 0, 0)
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByVendorIDForUpdate(ctx, tx, vendorID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalances(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, w *domain.Wallet) error {
			assert.Equal(t, int64(500000), w.Balance)
			assert.Equal(t, int64(500000), w.Available)
			assert.Equal(t, int64(0), w.Frozen)
			return nil
		})
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), depositIdempotencyTTL).Return(nil)
	d.auditSvc.EXPECT().Record(gomock.Any(), gomock.Any())

	txn, err := d.svc.Credit(ctx, vendorID, 500000, "DEP-001")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeCredit, txn.Type)
	assert.Equal(t, int64(500000), txn.Amount)
	assert.Equal(t, "DEP-001", txn.ReferenceID)
}

func TestWalletService_Credit_InvalidAmount(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Credit(context.Background(), uuid.New(), 0, "DEP-001")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrInvalidAmount().Code, appErr.Code)
}

func TestWalletService_Credit_RedisIdempotencyHit(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()

	prior := domain.Transaction{ID: uuid.New(), Type: domain.TransactionTypeCredit, Amount: 500000}
	cached, err := json.Marshal(prior)
	require.NoError(t, err)

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(cached, nil)

	txn, err := d.svc.Credit(ctx, vendorID, 500000, "DEP-001")
	require.NoError(t, err)
	assert.Equal(t, prior.ID, txn.ID)
}

func TestWalletService_Credit_DBIdempotencyHit(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()

	prior := domain.Transaction{ID: uuid.New(), Type: domain.TransactionTypeCredit, Amount: 500000}
	respJSON, err := json.Marshal(prior)
	require.NoError(t, err)

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, gomock.Any()).Return(&domain.IdempotencyLog{
		TransactionID: prior.ID,
		ResponseJSON:  respJSON,
	}, nil)

	txn, err := d.svc.Credit(ctx, vendorID, 500000, "DEP-001")
	require.NoError(t, err)
	assert.Equal(t, prior.ID, txn.ID)
}

func TestWalletService_Credit_ConcurrentDuplicate(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	wallet := testWallet(vendorID, 0, 0)
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByVendorIDForUpdate(ctx, tx, vendorID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalances(ctx, tx, gomock.Any()).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(assert.AnError)

	_, err := d.svc.Credit(ctx, vendorID, 500000, "DEP-001")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrDuplicateDeposit().Code, appErr.Code)
}

func TestWalletService_Credit_WalletNotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByVendorIDForUpdate(ctx, tx, vendorID).Return(nil, nil)

	_, err := d.svc.Credit(ctx, vendorID, 500000, "DEP-001")
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrWalletNotFound().Code, appErr.Code)
}

func TestWalletService_Freeze_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	auctionID := uuid.New()
	wallet := testWallet(vendorID, 500000, 0)
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByVendorIDForUpdate(ctx, tx, vendorID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalances(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, w *domain.Wallet) error {
			assert.Equal(t, int64(500000), w.Balance)
			assert.Equal(t, int64(300000), w.Available)
			assert.Equal(t, int64(200000), w.Frozen)
			return nil
		})
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.auditSvc.EXPECT().Record(gomock.Any(), gomock.Any())

	txn, err := d.svc.Freeze(ctx, vendorID, 200000, auctionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeFreeze, txn.Type)
	require.NotNil(t, txn.AuctionID)
	assert.Equal(t, auctionID, *txn.AuctionID)
}

func TestWalletService_Freeze_InsufficientAvailable(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	wallet := testWallet(vendorID, 100000, 0)
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByVendorIDForUpdate(ctx, tx, vendorID).Return(wallet, nil)

	_, err := d.svc.Freeze(ctx, vendorID, 200000, uuid.New())
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrInsufficientFunds().Code, appErr.Code)

	// The locked wallet must be left untouched on refusal.
	assert.Equal(t, int64(100000), wallet.Available)
	assert.Equal(t, int64(0), wallet.Frozen)
}

func TestWalletService_DebitFrozen_Settlement(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	auctionID := uuid.New()
	wallet := testWallet(vendorID, 300000, 200000)
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByVendorIDForUpdate(ctx, tx, vendorID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalances(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, w *domain.Wallet) error {
			assert.Equal(t, int64(300000), w.Balance)
			assert.Equal(t, int64(300000), w.Available)
			assert.Equal(t, int64(0), w.Frozen)
			require.NoError(t, w.CheckInvariant())
			return nil
		})
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.auditSvc.EXPECT().Record(gomock.Any(), gomock.Any())

	txn, err := d.svc.DebitFrozen(ctx, vendorID, 200000, auctionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeDebit, txn.Type)
}

func TestWalletService_Unfreeze_ReleasesHold(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	wallet := testWallet(vendorID, 100000, 200000)
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByVendorIDForUpdate(ctx, tx, vendorID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalances(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, w *domain.Wallet) error {
			assert.Equal(t, int64(300000), w.Available)
			assert.Equal(t, int64(0), w.Frozen)
			return nil
		})
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.auditSvc.EXPECT().Record(gomock.Any(), gomock.Any())

	_, err := d.svc.Unfreeze(ctx, vendorID, 200000, uuid.New())
	require.NoError(t, err)
}

func TestWalletService_GetBalance_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	d.walletRepo.EXPECT().GetByVendorID(ctx, vendorID).Return(nil, nil)

	_, err := d.svc.GetBalance(ctx, vendorID)
	require.Error(t, err)

	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrWalletNotFound().Code, appErr.Code)
}

func TestWalletService_ListTransactions(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	txns := []domain.Transaction{
		{ID: uuid.New(), Type: domain.TransactionTypeCredit, Amount: 500000},
		{ID: uuid.New(), Type: domain.TransactionTypeFreeze, Amount: 200000},
	}
	d.txRepo.EXPECT().ListByVendor(ctx, vendorID, 20, 0).Return(txns, int64(2), nil)

	got, total, err := d.svc.ListTransactions(ctx, vendorID, 20, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(2), total)
}
