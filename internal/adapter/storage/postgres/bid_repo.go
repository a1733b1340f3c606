package postgres

import (
	"context"
	"fmt"

	"salvage-auction-engine/internal/core/domain"

	"github.com/google/uuid"
)

// BidRepo implements ports.BidRepository. Bids are append-only; there is no
// update or delete path.
type BidRepo struct {
	pool Pool
}

// NewBidRepo creates a new BidRepo.
func NewBidRepo(pool Pool) *BidRepo {
	return &BidRepo{pool: pool}
}

// Append inserts an accepted bid.
func (r *BidRepo) Append(ctx context.Context, b *domain.Bid) error {
	query := `INSERT INTO bids (id, auction_id, vendor_id, amount, accepted_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, b.ID, b.AuctionID, b.VendorID, b.Amount, b.AcceptedAt)
	if err != nil {
		return fmt.Errorf("insert bid: %w", err)
	}
	return nil
}

// ListByAuction returns the auction's bid history, newest first.
func (r *BidRepo) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	query := `SELECT id, auction_id, vendor_id, amount, accepted_at
		FROM bids WHERE auction_id = $1 ORDER BY accepted_at DESC`

	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var out []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.VendorID, &b.Amount, &b.AcceptedAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bids: %w", err)
	}
	return out, nil
}

// ListBidders returns the distinct vendors that bid on an auction.
func (r *BidRepo) ListBidders(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT vendor_id FROM bids WHERE auction_id = $1`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bidders: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan bidder: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bidders: %w", err)
	}
	return out, nil
}
