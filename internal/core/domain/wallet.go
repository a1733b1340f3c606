package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Wallet errors returned by the pure mutation methods below.
var (
	ErrInsufficientFunds = errors.New("insufficient available funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvariantViolated = errors.New("wallet invariant violated")
)

// Wallet is a vendor's escrow wallet. Balance is split into available and
// frozen; frozen funds are held against a pending auction win.
// Invariant: Balance == Available + Frozen, all non-negative.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Balance   int64     `json:"balance"` // In smallest unit
	Available int64     `json:"available"`
	Frozen    int64     `json:"frozen"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckInvariant returns ErrInvariantViolated unless balance = available + frozen
// and all three are non-negative. Callers must refuse to persist a wallet that
// fails this check.
func (w *Wallet) CheckInvariant() error {
	if w.Balance < 0 || w.Available < 0 || w.Frozen < 0 {
		return ErrInvariantViolated
	}
	if w.Balance != w.Available+w.Frozen {
		return ErrInvariantViolated
	}
	return nil
}

// ApplyCredit adds deposited funds to balance and available.
func (w *Wallet) ApplyCredit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.Balance += amount
	w.Available += amount
	return w.CheckInvariant()
}

// ApplyFreeze moves amount from available to frozen. Fails closed when the
// available balance does not cover the amount.
func (w *Wallet) ApplyFreeze(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.Available < amount {
		return ErrInsufficientFunds
	}
	w.Available -= amount
	w.Frozen += amount
	return w.CheckInvariant()
}

// ApplyUnfreeze moves amount from frozen back to available.
func (w *Wallet) ApplyUnfreeze(amount int64) error {
	if amount <= 0 || amount > w.Frozen {
		return ErrInvalidAmount
	}
	w.Frozen -= amount
	w.Available += amount
	return w.CheckInvariant()
}

// ApplyDebitFrozen removes amount from frozen and balance together; the funds
// leave the wallet entirely (settlement of a verified payment).
func (w *Wallet) ApplyDebitFrozen(amount int64) error {
	if amount <= 0 || amount > w.Frozen {
		return ErrInvalidAmount
	}
	w.Frozen -= amount
	w.Balance -= amount
	return w.CheckInvariant()
}
