package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of wallet movement.
type TransactionType string

const (
	TransactionTypeCredit   TransactionType = "CREDIT"
	TransactionTypeFreeze   TransactionType = "FREEZE"
	TransactionTypeUnfreeze TransactionType = "UNFREEZE"
	TransactionTypeDebit    TransactionType = "DEBIT"
)

// Transaction is an immutable ledger entry appended by every wallet operation.
// It carries the resulting balances so the history doubles as an audit trail.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	WalletID       uuid.UUID       `json:"wallet_id"`
	VendorID       uuid.UUID       `json:"vendor_id"`
	AuctionID      *uuid.UUID      `json:"auction_id,omitempty"` // Set when the movement is tied to an auction
	Type           TransactionType `json:"type"`
	Amount         int64           `json:"amount"`
	BalanceAfter   int64           `json:"balance_after"`
	AvailableAfter int64           `json:"available_after"`
	FrozenAfter    int64           `json:"frozen_after"`
	ReferenceID    string          `json:"reference_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewTransaction builds the ledger entry for an operation that just mutated w.
func NewTransaction(w *Wallet, txType TransactionType, amount int64, auctionID *uuid.UUID, referenceID string, now time.Time) *Transaction {
	return &Transaction{
		ID:             uuid.New(),
		WalletID:       w.ID,
		VendorID:       w.VendorID,
		AuctionID:      auctionID,
		Type:           txType,
		Amount:         amount,
		BalanceAfter:   w.Balance,
		AvailableAfter: w.Available,
		FrozenAfter:    w.Frozen,
		ReferenceID:    referenceID,
		CreatedAt:      now,
	}
}
