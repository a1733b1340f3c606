package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuctionStatus represents the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "ACTIVE"
	AuctionStatusClosed    AuctionStatus = "CLOSED"
	AuctionStatusCancelled AuctionStatus = "CANCELLED"
)

// Auction identifies one salvage asset up for sale. CurrentBid/CurrentBidder
// are a derived cache of the latest accepted bid; the append-only bid ledger
// is authoritative. Version backs the optimistic compare-and-swap on bid
// acceptance.
type Auction struct {
	ID              uuid.UUID     `json:"id"`
	CaseRef         string        `json:"case_ref"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	OriginalEndTime time.Time     `json:"original_end_time"` // Immutable, for audit
	ExtensionCount  int           `json:"extension_count"`
	CurrentBid      *int64        `json:"current_bid,omitempty"`
	CurrentBidder   *uuid.UUID    `json:"current_bidder,omitempty"`
	MinIncrement    int64         `json:"min_increment"`
	Status          AuctionStatus `json:"status"`
	WatcherCount    int           `json:"watcher_count"`
	Version         int64         `json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsOpenForBids reports whether a bid may be accepted at the given instant.
func (a *Auction) IsOpenForBids(now time.Time) bool {
	return a.Status == AuctionStatusActive && now.Before(a.EndTime)
}

// MinAcceptableBid returns the lowest amount a new bid may carry.
func (a *Auction) MinAcceptableBid() int64 {
	if a.CurrentBid == nil {
		return a.MinIncrement
	}
	return *a.CurrentBid + a.MinIncrement
}

// ApplyBid records amount/bidder as the new high bid. The CurrentBid only
// increases while the auction is active; callers validate against
// MinAcceptableBid before applying.
func (a *Auction) ApplyBid(vendorID uuid.UUID, amount int64) {
	a.CurrentBid = &amount
	a.CurrentBidder = &vendorID
}

// ExtensionDecision is the outcome of the anti-sniping rule for one bid.
type ExtensionDecision struct {
	Extend     bool
	NewEndTime time.Time
}

// DecideExtension applies the anti-sniping rule: a bid landing inside the
// final window pushes the end time to bidTime+extendBy. The result is
// idempotent for a given bid timestamp; a recomputed end time at or before
// the stored one is a no-op.
func (a *Auction) DecideExtension(bidTime time.Time, window, extendBy time.Duration) ExtensionDecision {
	if bidTime.Before(a.EndTime.Add(-window)) {
		return ExtensionDecision{}
	}
	newEnd := bidTime.Add(extendBy)
	if !newEnd.After(a.EndTime) {
		return ExtensionDecision{}
	}
	return ExtensionDecision{Extend: true, NewEndTime: newEnd}
}

// Close reminder thresholds, measured back from the auction end time. Each
// threshold fires inside a window one sweep interval wide, so on-schedule
// sweeps deliver it exactly once without a persisted flag.
const (
	CloseReminderFirst  = time.Hour
	CloseReminderSecond = 30 * time.Minute
	CloseReminderWindow = 5 * time.Minute
)

// DecideCloseReminder returns the reminder threshold whose window contains
// now, if any. Anti-snipe extensions push the end time out, which naturally
// re-arms the thresholds against the new end.
func (a *Auction) DecideCloseReminder(now time.Time) (time.Duration, bool) {
	if a.Status != AuctionStatusActive {
		return 0, false
	}
	remaining := a.EndTime.Sub(now)
	for _, threshold := range []time.Duration{CloseReminderSecond, CloseReminderFirst} {
		if remaining > threshold-CloseReminderWindow && remaining <= threshold {
			return threshold, true
		}
	}
	return 0, false
}

// Bid is one accepted offer. Immutable once persisted; the bid ledger is
// append-only.
type Bid struct {
	ID         uuid.UUID `json:"id"`
	AuctionID  uuid.UUID `json:"auction_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	Amount     int64     `json:"amount"`
	AcceptedAt time.Time `json:"accepted_at"`
}
