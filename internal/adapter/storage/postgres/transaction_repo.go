package postgres

import (
	"context"
	"fmt"

	"salvage-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository, the append-only
// wallet ledger.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger entry within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO wallet_transactions
		(id, wallet_id, vendor_id, auction_id, type, amount, balance_after, available_after, frozen_after, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.VendorID, t.AuctionID, string(t.Type), t.Amount,
		t.BalanceAfter, t.AvailableAfter, t.FrozenAfter, t.ReferenceID, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

// ListByVendor returns a page of the vendor's ledger, newest first, plus the
// total count for pagination.
func (r *TransactionRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM wallet_transactions WHERE vendor_id = $1`, vendorID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallet transactions: %w", err)
	}

	query := `SELECT id, wallet_id, vendor_id, auction_id, type, amount, balance_after, available_after, frozen_after, reference_id, created_at
		FROM wallet_transactions WHERE vendor_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, vendorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID, &t.WalletID, &t.VendorID, &t.AuctionID, &t.Type, &t.Amount,
			&t.BalanceAfter, &t.AvailableAfter, &t.FrozenAfter, &t.ReferenceID, &t.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan wallet transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wallet transactions: %w", err)
	}
	return out, total, nil
}
