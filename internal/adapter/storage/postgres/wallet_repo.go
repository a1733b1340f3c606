package postgres

import (
	"context"
	"errors"
	"fmt"

	"salvage-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, vendor_id, balance, available, frozen, created_at, updated_at`

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, vendor_id, balance, available, frozen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.VendorID, w.Balance, w.Available, w.Frozen, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByVendorID fetches a wallet by vendor ID (non-locking read).
func (r *WalletRepo) GetByVendorID(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE vendor_id = $1`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, vendorID).Scan(
		&w.ID, &w.VendorID, &w.Balance, &w.Available, &w.Frozen, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by vendor id: %w", err)
	}
	return w, nil
}

// GetByVendorIDForUpdate fetches a wallet by vendor ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByVendorIDForUpdate(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE vendor_id = $1 FOR UPDATE`

	w := &domain.Wallet{}
	err := tx.QueryRow(ctx, query, vendorID).Scan(
		&w.ID, &w.VendorID, &w.Balance, &w.Available, &w.Frozen, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// UpdateBalances persists the three balance fields within a transaction. The
// wallet_invariant check constraint backstops the domain-level check.
func (r *WalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `UPDATE wallets SET balance = $1, available = $2, frozen = $3, updated_at = NOW() WHERE id = $4`

	tag, err := tx.Exec(ctx, query, w.Balance, w.Available, w.Frozen, w.ID)
	if err != nil {
		return fmt.Errorf("update wallet balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", w.ID)
	}
	return nil
}
