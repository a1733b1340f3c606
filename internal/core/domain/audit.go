package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited state change.
type AuditAction string

const (
	AuditActionBidAccepted      AuditAction = "BID_ACCEPTED"
	AuditActionAuctionExtended  AuditAction = "AUCTION_EXTENDED"
	AuditActionAuctionClosed    AuditAction = "AUCTION_CLOSED"
	AuditActionAuctionRelisted  AuditAction = "AUCTION_RELISTED"
	AuditActionPaymentCreated   AuditAction = "PAYMENT_CREATED"
	AuditActionPaymentOverdue   AuditAction = "PAYMENT_OVERDUE"
	AuditActionPaymentForfeited AuditAction = "PAYMENT_FORFEITED"
	AuditActionWalletCredit     AuditAction = "WALLET_CREDIT"
	AuditActionWalletFreeze     AuditAction = "WALLET_FREEZE"
	AuditActionWalletUnfreeze   AuditAction = "WALLET_UNFREEZE"
	AuditActionWalletDebit      AuditAction = "WALLET_DEBIT"
	AuditActionVendorSuspended  AuditAction = "VENDOR_SUSPENDED"
)

// AuditEntity tags which snapshot variant an audit record carries.
type AuditEntity string

const (
	AuditEntityAuction AuditEntity = "AUCTION"
	AuditEntityPayment AuditEntity = "PAYMENT"
	AuditEntityWallet  AuditEntity = "WALLET"
	AuditEntityVendor  AuditEntity = "VENDOR"
)

// AuctionSnapshot captures the audited fields of an auction.
type AuctionSnapshot struct {
	Status         AuctionStatus `json:"status"`
	EndTime        time.Time     `json:"end_time"`
	ExtensionCount int           `json:"extension_count"`
	CurrentBid     *int64        `json:"current_bid,omitempty"`
	CurrentBidder  *uuid.UUID    `json:"current_bidder,omitempty"`
}

// PaymentSnapshot captures the audited fields of a payment obligation.
type PaymentSnapshot struct {
	Status   PaymentStatus `json:"status"`
	Amount   int64         `json:"amount"`
	Deadline time.Time     `json:"deadline"`
}

// WalletSnapshot captures the audited balances of a wallet.
type WalletSnapshot struct {
	Balance   int64 `json:"balance"`
	Available int64 `json:"available"`
	Frozen    int64 `json:"frozen"`
}

// VendorSnapshot captures the audited enforcement fields of a vendor.
type VendorSnapshot struct {
	Status         VendorStatus `json:"status"`
	FraudFlags     int          `json:"fraud_flags"`
	SuspendedUntil *time.Time   `json:"suspended_until,omitempty"`
}

// AuditSnapshot is the tagged union of per-entity snapshots. Exactly one
// variant matching Entity is populated; the rest stay nil.
type AuditSnapshot struct {
	Entity  AuditEntity      `json:"entity"`
	Auction *AuctionSnapshot `json:"auction,omitempty"`
	Payment *PaymentSnapshot `json:"payment,omitempty"`
	Wallet  *WalletSnapshot  `json:"wallet,omitempty"`
	Vendor  *VendorSnapshot  `json:"vendor,omitempty"`
}

// AuditRecord records a single audited state change with structured
// before/after snapshots instead of free-form payloads.
type AuditRecord struct {
	ID        uuid.UUID      `json:"id"`
	Action    AuditAction    `json:"action"`
	EntityID  uuid.UUID      `json:"entity_id"`
	Before    *AuditSnapshot `json:"before,omitempty"`
	After     AuditSnapshot  `json:"after"`
	CreatedAt time.Time      `json:"created_at"`
}

// SnapshotAuction builds the auction variant of the union.
func SnapshotAuction(a *Auction) AuditSnapshot {
	return AuditSnapshot{Entity: AuditEntityAuction, Auction: &AuctionSnapshot{
		Status:         a.Status,
		EndTime:        a.EndTime,
		ExtensionCount: a.ExtensionCount,
		CurrentBid:     a.CurrentBid,
		CurrentBidder:  a.CurrentBidder,
	}}
}

// SnapshotPayment builds the payment variant of the union.
func SnapshotPayment(p *PaymentObligation) AuditSnapshot {
	return AuditSnapshot{Entity: AuditEntityPayment, Payment: &PaymentSnapshot{
		Status:   p.Status,
		Amount:   p.Amount,
		Deadline: p.Deadline,
	}}
}

// SnapshotWallet builds the wallet variant of the union.
func SnapshotWallet(w *Wallet) AuditSnapshot {
	return AuditSnapshot{Entity: AuditEntityWallet, Wallet: &WalletSnapshot{
		Balance:   w.Balance,
		Available: w.Available,
		Frozen:    w.Frozen,
	}}
}

// SnapshotVendor builds the vendor variant of the union.
func SnapshotVendor(v *Vendor) AuditSnapshot {
	return AuditSnapshot{Entity: AuditEntityVendor, Vendor: &VendorSnapshot{
		Status:         v.Status,
		FraudFlags:     v.FraudFlags,
		SuspendedUntil: v.SuspendedUntil,
	}}
}
