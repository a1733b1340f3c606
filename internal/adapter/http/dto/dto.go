package dto

import (
	"time"

	"salvage-auction-engine/internal/core/domain"
)

// LoginRequest is the request body for vendor login.
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required,e164"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// SendOTPRequest asks for a fresh bid confirmation code.
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

// PlaceBidRequest is the request body for bid placement.
type PlaceBidRequest struct {
	Amount  int64  `json:"amount" binding:"required,gt=0"`
	OTPCode string `json:"otp_code" binding:"required,len=6,numeric"`
}

// BidResponse is the response body for an accepted bid.
type BidResponse struct {
	BidID      string    `json:"bid_id"`
	AuctionID  string    `json:"auction_id"`
	Amount     int64     `json:"amount"`
	MinNextBid int64     `json:"min_next_bid"`
	EndTime    time.Time `json:"end_time"`
	Extended   bool      `json:"extended"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// AuctionResponse is the public view of one auction.
type AuctionResponse struct {
	ID             string    `json:"id"`
	CaseRef        string    `json:"case_ref"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	ExtensionCount int       `json:"extension_count"`
	CurrentBid     *int64    `json:"current_bid,omitempty"`
	MinNextBid     int64     `json:"min_next_bid"`
	MinIncrement   int64     `json:"min_increment"`
	Status         string    `json:"status"`
	WatcherCount   int       `json:"watcher_count"`
	ClosesIn       *int64    `json:"closes_in_seconds,omitempty"`
}

// BidHistoryEntry is one row of an auction's public bid history. Bidder
// identities are masked.
type BidHistoryEntry struct {
	Amount     int64     `json:"amount"`
	Bidder     string    `json:"bidder"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// WatchersResponse lists anonymized watcher labels for an auction.
type WatchersResponse struct {
	Count    int      `json:"count"`
	Watchers []string `json:"watchers"`
}

// DepositRequest is the request body for a wallet deposit callback.
type DepositRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	ReferenceID string `json:"reference_id" binding:"required,max=100,safe_id"`
}

// WalletResponse is the response for a balance query.
type WalletResponse struct {
	Balance   int64 `json:"balance"`
	Available int64 `json:"available"`
	Frozen    int64 `json:"frozen"`
}

// TransactionResponse is one wallet ledger entry.
type TransactionResponse struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Amount         int64     `json:"amount"`
	AuctionID      *string   `json:"auction_id,omitempty"`
	BalanceAfter   int64     `json:"balance_after"`
	AvailableAfter int64     `json:"available_after"`
	FrozenAfter    int64     `json:"frozen_after"`
	ReferenceID    string    `json:"reference_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransactionListResponse wraps a paginated ledger page.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// SweepResponse reports what one scheduler-triggered sweep did.
type SweepResponse struct {
	Closed           int `json:"closed,omitempty"`
	RemindersSent    int `json:"reminders_sent,omitempty"`
	MarkedOverdue    int `json:"marked_overdue,omitempty"`
	Forfeited        int `json:"forfeited,omitempty"`
	VendorsSuspended int `json:"vendors_suspended,omitempty"`
	HoldsReleased    int `json:"holds_released,omitempty"`
	Reaped           int `json:"reaped,omitempty"`
}

// NewAuctionResponse maps a domain auction to its public view.
func NewAuctionResponse(a *domain.Auction, watcherCount int, now time.Time) AuctionResponse {
	resp := AuctionResponse{
		ID:             a.ID.String(),
		CaseRef:        a.CaseRef,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		ExtensionCount: a.ExtensionCount,
		CurrentBid:     a.CurrentBid,
		MinNextBid:     a.MinAcceptableBid(),
		MinIncrement:   a.MinIncrement,
		Status:         string(a.Status),
		WatcherCount:   watcherCount,
	}
	if a.Status == domain.AuctionStatusActive && now.Before(a.EndTime) {
		secs := int64(a.EndTime.Sub(now).Seconds())
		resp.ClosesIn = &secs
	}
	return resp
}

// NewTransactionResponse maps a ledger entry to its API shape.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:             t.ID.String(),
		Type:           string(t.Type),
		Amount:         t.Amount,
		BalanceAfter:   t.BalanceAfter,
		AvailableAfter: t.AvailableAfter,
		FrozenAfter:    t.FrozenAfter,
		ReferenceID:    t.ReferenceID,
		CreatedAt:      t.CreatedAt,
	}
	if t.AuctionID != nil {
		s := t.AuctionID.String()
		resp.AuctionID = &s
	}
	return resp
}
