package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle state of a payment obligation.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusOverdue   PaymentStatus = "OVERDUE"
	PaymentStatusVerified  PaymentStatus = "VERIFIED"
	PaymentStatusForfeited PaymentStatus = "FORFEITED"
)

// Deadline enforcement thresholds, measured from the payment deadline.
const (
	OverdueGrace   = 24 * time.Hour // Deadline + 24h -> overdue
	ForfeitGrace   = 48 * time.Hour // Deadline + 48h -> forfeited (72h total unpaid)
	ReminderBefore = 12 * time.Hour // Reminder fires when 11-12h remain
	ReminderWindow = 1 * time.Hour
)

// PaymentObligation is created exactly once per closed auction with a winning
// bidder. A given auction has at most one non-forfeited obligation at a time.
type PaymentObligation struct {
	ID           uuid.UUID     `json:"id"`
	AuctionID    uuid.UUID     `json:"auction_id"`
	VendorID     uuid.UUID     `json:"vendor_id"`
	Amount       int64         `json:"amount"`
	Status       PaymentStatus `json:"status"`
	Deadline     time.Time     `json:"deadline"`
	Method       string        `json:"method,omitempty"`
	ReminderSent bool          `json:"reminder_sent"`
	FundsFrozen  bool          `json:"funds_frozen"` // Whether the pre-freeze at closure succeeded
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PaymentTransition names the effect the deadline sweep must apply.
type PaymentTransition string

const (
	TransitionNone    PaymentTransition = ""
	TransitionRemind  PaymentTransition = "REMIND"
	TransitionOverdue PaymentTransition = "OVERDUE"
	TransitionForfeit PaymentTransition = "FORFEIT"
)

// IsTerminal reports whether the obligation is in a final state.
func (p *PaymentObligation) IsTerminal() bool {
	return p.Status == PaymentStatusVerified || p.Status == PaymentStatusForfeited
}

// Advance evaluates the deadline state machine at the given instant and
// returns the transition the caller must apply. It is a pure function of the
// record and the clock so sweeps and tests share one code path. Transitions
// never skip: a pending record far past the forfeit threshold still goes
// through overdue first; the next sweep picks up the forfeiture.
func (p *PaymentObligation) Advance(now time.Time) PaymentTransition {
	switch p.Status {
	case PaymentStatusPending:
		if !now.Before(p.Deadline.Add(OverdueGrace)) {
			return TransitionOverdue
		}
		remaining := p.Deadline.Sub(now)
		if !p.ReminderSent && remaining > 0 && remaining <= ReminderBefore && remaining > ReminderBefore-ReminderWindow {
			return TransitionRemind
		}
		return TransitionNone
	case PaymentStatusOverdue:
		if !now.Before(p.Deadline.Add(ForfeitGrace)) {
			return TransitionForfeit
		}
		return TransitionNone
	default:
		return TransitionNone
	}
}
