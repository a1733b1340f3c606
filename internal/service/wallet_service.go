package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const depositIdempotencyTTL = 24 * time.Hour

// WalletServiceImpl implements ports.WalletService. Every mutation locks the
// wallet row, applies the movement in the domain model and appends a ledger
// entry inside the same database transaction.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	auditSvc   ports.AuditService
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	auditSvc ports.AuditService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		auditSvc:   auditSvc,
		transactor: transactor,
		log:        log,
	}
}

// Credit deposits funds. Deposits arrive from an external payment callback
// that retries, so the operation is idempotent on (vendor, reference).
func (s *WalletServiceImpl) Credit(ctx context.Context, vendorID uuid.UUID, amount int64, referenceID string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := domain.BuildDepositIdempotencyKey(vendorID, referenceID)

	// Layer 1: Redis idempotency check
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalCachedTransaction(cached)
	}

	// Layer 2: DB idempotency check
	idempLog, err := s.idempRepo.Get(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return unmarshalCachedTransaction(idempLog.ResponseJSON)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByVendorIDForUpdate(ctx, dbTx, vendorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	before := domain.SnapshotWallet(wallet)
	if err := wallet.ApplyCredit(amount); err != nil {
		return nil, mapWalletError(err)
	}

	now := time.Now().UTC()
	wallet.UpdatedAt = now
	txn := domain.NewTransaction(wallet, domain.TransactionTypeCredit, amount, nil, referenceID, now)

	if err := s.walletRepo.UpdateBalances(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append ledger: %w", err))
	}

	respJSON, err := json.Marshal(txn)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	idempEntry := &domain.IdempotencyLog{
		Key:           idempKey,
		TransactionID: txn.ID,
		ResponseJSON:  respJSON,
		CreatedAt:     now,
	}
	// A unique-key failure here means a concurrent duplicate committed first.
	if err := s.idempRepo.Create(ctx, dbTx, idempEntry); err != nil {
		return nil, apperror.ErrDuplicateDeposit()
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if err := s.idempCache.Set(ctx, idempKey, respJSON, depositIdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache deposit idempotency in redis")
	}

	s.recordAudit(ctx, domain.AuditActionWalletCredit, wallet, &before)

	s.log.Info().
		Str("vendor_id", vendorID.String()).
		Int64("amount", amount).
		Str("reference_id", referenceID).
		Msg("wallet credited")

	return txn, nil
}

// Freeze moves funds from available to frozen to back a winning bid.
func (s *WalletServiceImpl) Freeze(ctx context.Context, vendorID uuid.UUID, amount int64, auctionID uuid.UUID) (*domain.Transaction, error) {
	return s.applyMovement(ctx, vendorID, amount, &auctionID, domain.TransactionTypeFreeze, domain.AuditActionWalletFreeze,
		func(w *domain.Wallet) error { return w.ApplyFreeze(amount) })
}

// Unfreeze releases a hold back to available (outbid, cancelled, relisted).
func (s *WalletServiceImpl) Unfreeze(ctx context.Context, vendorID uuid.UUID, amount int64, auctionID uuid.UUID) (*domain.Transaction, error) {
	return s.applyMovement(ctx, vendorID, amount, &auctionID, domain.TransactionTypeUnfreeze, domain.AuditActionWalletUnfreeze,
		func(w *domain.Wallet) error { return w.ApplyUnfreeze(amount) })
}

// DebitFrozen settles a verified payment out of the frozen portion.
func (s *WalletServiceImpl) DebitFrozen(ctx context.Context, vendorID uuid.UUID, amount int64, auctionID uuid.UUID) (*domain.Transaction, error) {
	return s.applyMovement(ctx, vendorID, amount, &auctionID, domain.TransactionTypeDebit, domain.AuditActionWalletDebit,
		func(w *domain.Wallet) error { return w.ApplyDebitFrozen(amount) })
}

// GetBalance returns the wallet for a vendor.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByVendorID(ctx, vendorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// ListTransactions returns the vendor's ledger page plus the total count.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	txns, total, err := s.txRepo.ListByVendor(ctx, vendorID, limit, offset)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// applyMovement runs one auction-linked balance movement under the row lock.
func (s *WalletServiceImpl) applyMovement(
	ctx context.Context,
	vendorID uuid.UUID,
	amount int64,
	auctionID *uuid.UUID,
	txType domain.TransactionType,
	action domain.AuditAction,
	apply func(*domain.Wallet) error,
) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByVendorIDForUpdate(ctx, dbTx, vendorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	before := domain.SnapshotWallet(wallet)
	if err := apply(wallet); err != nil {
		return nil, mapWalletError(err)
	}

	now := time.Now().UTC()
	wallet.UpdatedAt = now
	referenceID := ""
	if auctionID != nil {
		referenceID = auctionID.String()
	}
	txn := domain.NewTransaction(wallet, txType, amount, auctionID, referenceID, now)

	if err := s.walletRepo.UpdateBalances(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append ledger: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.recordAudit(ctx, action, wallet, &before)

	s.log.Info().
		Str("vendor_id", vendorID.String()).
		Str("type", string(txType)).
		Int64("amount", amount).
		Int64("available", wallet.Available).
		Int64("frozen", wallet.Frozen).
		Msg("wallet movement applied")

	return txn, nil
}

func (s *WalletServiceImpl) recordAudit(ctx context.Context, action domain.AuditAction, wallet *domain.Wallet, before *domain.AuditSnapshot) {
	s.auditSvc.Record(ctx, &domain.AuditRecord{
		ID:        uuid.New(),
		Action:    action,
		EntityID:  wallet.ID,
		Before:    before,
		After:     domain.SnapshotWallet(wallet),
		CreatedAt: time.Now().UTC(),
	})
}

// mapWalletError translates domain wallet errors into API errors.
func mapWalletError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds()
	case errors.Is(err, domain.ErrInvalidAmount):
		return apperror.ErrInvalidAmount()
	case errors.Is(err, domain.ErrInvariantViolated):
		return apperror.ErrWalletInvariant(err)
	default:
		return apperror.InternalError(err)
	}
}

func unmarshalCachedTransaction(data []byte) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached transaction: %w", err))
	}
	return &txn, nil
}
