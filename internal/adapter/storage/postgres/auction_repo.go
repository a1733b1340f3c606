package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salvage-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuctionRepo implements ports.AuctionRepository.
type AuctionRepo struct {
	pool Pool
}

// NewAuctionRepo creates a new AuctionRepo.
func NewAuctionRepo(pool Pool) *AuctionRepo {
	return &AuctionRepo{pool: pool}
}

const auctionColumns = `id, case_ref, start_time, end_time, original_end_time, extension_count,
	current_bid, current_bidder, min_increment, status, watcher_count, version, created_at, updated_at`

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	a := &domain.Auction{}
	err := row.Scan(
		&a.ID, &a.CaseRef, &a.StartTime, &a.EndTime, &a.OriginalEndTime, &a.ExtensionCount,
		&a.CurrentBid, &a.CurrentBidder, &a.MinIncrement, &a.Status, &a.WatcherCount,
		&a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new auction.
func (r *AuctionRepo) Create(ctx context.Context, a *domain.Auction) error {
	query := `INSERT INTO auctions
		(id, case_ref, start_time, end_time, original_end_time, extension_count,
		 current_bid, current_bidder, min_increment, status, watcher_count, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.CaseRef, a.StartTime, a.EndTime, a.OriginalEndTime, a.ExtensionCount,
		a.CurrentBid, a.CurrentBidder, a.MinIncrement, string(a.Status), a.WatcherCount,
		a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert auction: %w", err)
	}
	return nil
}

// GetByID fetches an auction by ID.
func (r *AuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	a, err := scanAuction(r.pool.QueryRow(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auction: %w", err)
	}
	return a, nil
}

// ListActive returns all active auctions.
func (r *AuctionRepo) ListActive(ctx context.Context) ([]domain.Auction, error) {
	return r.list(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE status = $1 ORDER BY end_time`,
		string(domain.AuctionStatusActive))
}

// ListExpired returns active auctions whose end time is at or before now.
func (r *AuctionRepo) ListExpired(ctx context.Context, now time.Time) ([]domain.Auction, error) {
	return r.list(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE status = $1 AND end_time <= $2 ORDER BY end_time`,
		string(domain.AuctionStatusActive), now)
}

// ListClosingBetween returns active auctions with an end time inside (from, to].
func (r *AuctionRepo) ListClosingBetween(ctx context.Context, from, to time.Time) ([]domain.Auction, error) {
	return r.list(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE status = $1 AND end_time > $2 AND end_time <= $3 ORDER BY end_time`,
		string(domain.AuctionStatusActive), from, to)
}

func (r *AuctionRepo) list(ctx context.Context, query string, args ...any) ([]domain.Auction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	var out []domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auctions: %w", err)
	}
	return out, nil
}

// CompareAndSwapBid commits a new high bid guarded by the optimistic version
// counter. A false return means another bid committed first; the caller
// re-validates against fresh state.
func (r *AuctionRepo) CompareAndSwapBid(ctx context.Context, id uuid.UUID, vendorID uuid.UUID, amount int64, expectedVersion int64) (bool, error) {
	query := `UPDATE auctions
		SET current_bid = $1, current_bidder = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4 AND status = $5`

	tag, err := r.pool.Exec(ctx, query,
		amount, vendorID, id, expectedVersion, string(domain.AuctionStatusActive))
	if err != nil {
		return false, fmt.Errorf("cas auction bid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExtendEndTime pushes the end time out. The end_time < $1 guard makes
// duplicate extension attempts for the same bid a no-op.
func (r *AuctionRepo) ExtendEndTime(ctx context.Context, id uuid.UUID, newEnd time.Time) (bool, error) {
	query := `UPDATE auctions
		SET end_time = $1, extension_count = extension_count + 1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND end_time < $1`

	tag, err := r.pool.Exec(ctx, query, newEnd, id, string(domain.AuctionStatusActive))
	if err != nil {
		return false, fmt.Errorf("extend auction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Close transitions ACTIVE -> CLOSED inside the caller's transaction. The
// status guard is the sole idempotence mechanism for the closure sweep: a
// second worker sees zero rows affected and performs no further writes.
func (r *AuctionRepo) Close(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	query := `UPDATE auctions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query,
		string(domain.AuctionStatusClosed), id, string(domain.AuctionStatusActive))
	if err != nil {
		return false, fmt.Errorf("close auction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
