package ports

import (
	"context"
	"time"

	"salvage-auction-engine/internal/core/domain"

	"github.com/google/uuid"
)

// --- Collaborator Ports (external systems, consumed at their boundary) ---

// OTPVerifier abstracts the one-time-password collaborator. Codes are 6
// digits, valid 5 minutes in storage with a 3-minute client window, and allow
// at most 3 verification attempts before requiring resend.
type OTPVerifier interface {
	Send(ctx context.Context, phone string) error
	Verify(ctx context.Context, phone, code string) error
}

// IssuedCode is a stored one-time code plus its issue instant.
type IssuedCode struct {
	Code     string
	IssuedAt time.Time
}

// OTPStore persists issued codes and their verification attempt counters.
type OTPStore interface {
	// Save stores a fresh code, resetting any previous code and counter.
	Save(ctx context.Context, phone, code string, issuedAt time.Time, ttl time.Duration) error
	// Get returns the stored code, or nil when none is live.
	Get(ctx context.Context, phone string) (*IssuedCode, error)
	// IncrAttempts bumps the verification attempt counter and returns it.
	IncrAttempts(ctx context.Context, phone string, ttl time.Duration) (int64, error)
	// Invalidate drops the code and its counter.
	Invalidate(ctx context.Context, phone string) error
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// RateLimiter is a fixed-window request counter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// NotifyChannel selects the delivery channel for a notification.
type NotifyChannel string

const (
	ChannelSMS   NotifyChannel = "sms"
	ChannelEmail NotifyChannel = "email"
	ChannelPush  NotifyChannel = "push"
)

// Notification is one fire-and-forget message to a vendor.
type Notification struct {
	Channel  NotifyChannel
	VendorID uuid.UUID
	Event    string
	Payload  map[string]any
}

// Notifier delivers notifications. Failures never block the state transition
// that triggered them; implementations log and swallow.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Event is one message published to a broadcast topic.
type Event struct {
	Type    string         `json:"type"`
	Topic   string         `json:"topic"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Broadcaster fans events out to subscribed connections grouped by auction
// and by vendor topic. Delivery is at-most-best-effort; a missed broadcast is
// recoverable by polling current state.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, event Event)
}

// Broadcast topic keys.
func AuctionTopic(id uuid.UUID) string { return "auction:" + id.String() }
func VendorTopic(id uuid.UUID) string  { return "vendor:" + id.String() }

// --- Presence ---

// PresenceStore is the ephemeral dwell/watching storage behind the presence
// tracker. Eventually consistent; its only consumer is a display hint.
type PresenceStore interface {
	// Touch records that the vendor is viewing the auction, creating or
	// refreshing the dwell entry. Returns the dwell start time.
	Touch(ctx context.Context, auctionID, vendorID uuid.UUID) (time.Time, error)
	// AddWatcher adds the vendor to the watching set.
	AddWatcher(ctx context.Context, auctionID, vendorID uuid.UUID) error
	// Remove drops both the dwell entry and the watching membership.
	Remove(ctx context.Context, auctionID, vendorID uuid.UUID) error
	// Watchers returns current watching-set members.
	Watchers(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error)
	// HasDwell reports whether the vendor's dwell entry is still alive.
	HasDwell(ctx context.Context, auctionID, vendorID uuid.UUID) (bool, error)
	// TrackedAuctions returns auctions that currently have watching sets.
	TrackedAuctions(ctx context.Context) ([]uuid.UUID, error)
	// Reset clears all presence state for an auction.
	Reset(ctx context.Context, auctionID uuid.UUID) error
}

// PresenceService tracks live viewers per auction, debounced by a minimum
// dwell so page-flicking never inflates the count.
type PresenceService interface {
	Track(ctx context.Context, auctionID, vendorID uuid.UUID) (int, error)
	Untrack(ctx context.Context, auctionID, vendorID uuid.UUID) (int, error)
	CurrentCount(ctx context.Context, auctionID uuid.UUID) (int, error)
	// WatcherLabels returns anonymized ordinal labels ("Vendor A", ...).
	// Vendor identifiers never cross this boundary.
	WatcherLabels(ctx context.Context, auctionID uuid.UUID) ([]string, error)
	// ReapStale removes watchers whose dwell entry expired and rebroadcasts
	// counts. Bounds staleness to the sweep interval.
	ReapStale(ctx context.Context) (int, error)
	Reset(ctx context.Context, auctionID uuid.UUID) error
}

// --- Wallet Ledger ---

// WalletService owns the per-vendor balance invariant and the four atomic
// operations that may mutate it.
type WalletService interface {
	Credit(ctx context.Context, vendorID uuid.UUID, amount int64, referenceID string) (*domain.Transaction, error)
	Freeze(ctx context.Context, vendorID uuid.UUID, amount int64, auctionID uuid.UUID) (*domain.Transaction, error)
	Unfreeze(ctx context.Context, vendorID uuid.UUID, amount int64, auctionID uuid.UUID) (*domain.Transaction, error)
	DebitFrozen(ctx context.Context, vendorID uuid.UUID, amount int64, auctionID uuid.UUID) (*domain.Transaction, error)
	GetBalance(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error)
}

// --- Bidding ---

// PlaceBidRequest holds validated input for bid placement.
type PlaceBidRequest struct {
	AuctionID uuid.UUID
	VendorID  uuid.UUID
	Amount    int64
	OTPCode   string
}

// BidResult is the state returned to an accepted bidder.
type BidResult struct {
	Bid      *domain.Bid
	Auction  *domain.Auction
	Extended bool
}

// BiddingService validates and atomically commits bids.
type BiddingService interface {
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*BidResult, error)
}

// ExtensionController decides, on every accepted bid, whether the auction's
// end time must be pushed out.
type ExtensionController interface {
	// OnBidAccepted returns the new end time when the anti-sniping rule
	// fired, nil otherwise. Idempotent for a given bid timestamp.
	OnBidAccepted(ctx context.Context, auction *domain.Auction, bidTime time.Time) (*time.Time, error)
}

// --- Sweeps ---

// ClosureResult reports one auction handled by the closure sweep.
type ClosureResult struct {
	AuctionID uuid.UUID
	WinnerID  *uuid.UUID
	Amount    *int64
	PaymentID *uuid.UUID
	Frozen    bool
}

// ClosureService finds expired auctions, picks winners and emits payment
// obligations. Safe to run concurrently across replicas.
type ClosureService interface {
	SweepExpiredAuctions(ctx context.Context, now time.Time) ([]ClosureResult, error)
	// SweepCloseReminders notifies watchers of auctions closing within the
	// 1-hour and 30-minute thresholds.
	SweepCloseReminders(ctx context.Context, now time.Time) (int, error)
}

// EnforcementResults aggregates one deadline sweep pass.
type EnforcementResults struct {
	RemindersSent    int `json:"reminders_sent"`
	MarkedOverdue    int `json:"marked_overdue"`
	Forfeited        int `json:"forfeited"`
	VendorsSuspended int `json:"vendors_suspended"`
	HoldsReleased    int `json:"holds_released"`
}

// DeadlineService advances payment obligations through the deadline state
// machine and applies enforcement effects.
type DeadlineService interface {
	SweepDeadlines(ctx context.Context, now time.Time) (*EnforcementResults, error)
	// SweepFraudFlags suspends vendors whose cumulative fraud flags crossed
	// the threshold, independent of any single payment's outcome.
	SweepFraudFlags(ctx context.Context, now time.Time) (int, error)
}

// --- Ambient service ports ---

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for vendor sessions.
type TokenService interface {
	Generate(vendorID uuid.UUID, tier domain.VendorTier) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	VendorID uuid.UUID
	Tier     domain.VendorTier
}

// AuthService authenticates provisioned vendors.
type AuthService interface {
	Login(ctx context.Context, phone, password string) (string, time.Time, error) // token, expiry, error
}

// IdempotencyCache is the Redis-layer deposit idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// AuditService records structured before/after snapshots, fire-and-forget.
type AuditService interface {
	Record(ctx context.Context, record *domain.AuditRecord)
}
