package ports

import (
	"context"
	"time"

	"salvage-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuctionRepository defines persistence operations for auctions.
// CompareAndSwapBid and Close are the only mutating paths for the bid cache
// and status fields; both are atomic row updates guarded by version/status.
type AuctionRepository interface {
	Create(ctx context.Context, auction *domain.Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error)
	ListActive(ctx context.Context) ([]domain.Auction, error)
	// ListExpired returns active auctions whose end time is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]domain.Auction, error)
	// ListClosingBetween returns active auctions whose end time falls inside
	// (from, to], used for close-reminder notifications.
	ListClosingBetween(ctx context.Context, from, to time.Time) ([]domain.Auction, error)
	// CompareAndSwapBid commits a new high bid only if the stored version
	// still matches expectedVersion. Returns false (and no error) when
	// another bid won the race.
	CompareAndSwapBid(ctx context.Context, id uuid.UUID, vendorID uuid.UUID, amount int64, expectedVersion int64) (bool, error)
	// ExtendEndTime pushes the end time out, guarded so it only ever grows.
	// Returns false when the stored end time already covers newEnd.
	ExtendEndTime(ctx context.Context, id uuid.UUID, newEnd time.Time) (bool, error)
	// Close transitions ACTIVE -> CLOSED. Returns false when the auction was
	// not active, which makes the closure sweep idempotent.
	Close(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// BidRepository is the append-only bid ledger.
type BidRepository interface {
	Append(ctx context.Context, bid *domain.Bid) error
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error)
	// ListBidders returns the distinct vendors that bid on an auction.
	ListBidders(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error)
}

// PaymentRepository defines persistence operations for payment obligations.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.PaymentObligation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentObligation, error)
	GetOpenByAuction(ctx context.Context, auctionID uuid.UUID) (*domain.PaymentObligation, error)
	// ListByStatus returns obligations in the given status with a deadline at
	// or before the horizon, for sweep batches.
	ListByStatus(ctx context.Context, status domain.PaymentStatus, deadlineBefore time.Time) ([]domain.PaymentObligation, error)
	// ListPendingReminders returns pending, un-reminded obligations whose
	// deadline falls inside (from, to].
	ListPendingReminders(ctx context.Context, from, to time.Time) ([]domain.PaymentObligation, error)
	// UpdateStatus transitions between states guarded by the current status.
	// Returns false when the guard did not match (already transitioned).
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus) (bool, error)
	// MarkReminderSent flips the reminder flag; returns false if already set.
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkFundsFrozen records that the pre-freeze at closure succeeded.
	MarkFundsFrozen(ctx context.Context, id uuid.UUID) error
	// ClearFundsFrozen records that a held amount was released; returns false
	// if the flag was already clear.
	ClearFundsFrozen(ctx context.Context, id uuid.UUID) (bool, error)
	// ListForfeitedWithHeldFunds returns forfeited obligations whose
	// pre-frozen amount has not been released yet.
	ListForfeitedWithHeldFunds(ctx context.Context) ([]domain.PaymentObligation, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByVendorID(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error)
	GetByVendorIDForUpdate(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID) (*domain.Wallet, error)
	UpdateBalances(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
}

// TransactionRepository is the append-only wallet ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error)
}

// VendorRepository defines persistence operations for vendors.
type VendorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Vendor, error)
	// Suspend sets the vendor status and suspension expiry.
	Suspend(ctx context.Context, id uuid.UUID, until time.Time) error
	// IncrementFraudFlags bumps the counter and returns the new value.
	IncrementFraudFlags(ctx context.Context, id uuid.UUID) (int, error)
	// ListFlagged returns active vendors with at least threshold fraud flags.
	ListFlagged(ctx context.Context, threshold int) ([]domain.Vendor, error)
}

// AuditRepository persists structured audit records.
type AuditRepository interface {
	Create(ctx context.Context, record *domain.AuditRecord) error
}

// IdempotencyRepository defines persistence for deposit idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
