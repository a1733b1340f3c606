package domain

import (
	"time"

	"github.com/google/uuid"
)

// VendorStatus represents the state of a vendor account.
type VendorStatus string

const (
	VendorStatusActive    VendorStatus = "ACTIVE"
	VendorStatusSuspended VendorStatus = "SUSPENDED"
)

// VendorTier is the vendor's KYC verification level. Tier-1 vendors are
// bid-capped; tier-2 vendors are uncapped.
type VendorTier int

const (
	TierOne VendorTier = 1
	TierTwo VendorTier = 2
)

// Suspension durations applied by the enforcement sweeps.
const (
	ForfeitSuspension   = 7 * 24 * time.Hour
	FraudFlagSuspension = 30 * 24 * time.Hour
	FraudFlagThreshold  = 3
)

// Vendor is a vetted buyer. KYC onboarding happens outside this system;
// vendors arrive provisioned with a tier and credentials.
type Vendor struct {
	ID             uuid.UUID    `json:"id"`
	Phone          string       `json:"phone"`
	Name           string       `json:"name"`
	PasswordHash   string       `json:"-"`
	Tier           VendorTier   `json:"tier"`
	Status         VendorStatus `json:"status"`
	SuspendedUntil *time.Time   `json:"suspended_until,omitempty"`
	FraudFlags     int          `json:"fraud_flags"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsActive reports whether the vendor may bid at the given instant. A lapsed
// suspension counts as active even before the unsuspend sweep clears it.
func (v *Vendor) IsActive(now time.Time) bool {
	if v.Status == VendorStatusActive {
		return true
	}
	return v.SuspendedUntil != nil && now.After(*v.SuspendedUntil)
}

// AnonymousVendorLabel maps an ordinal to the anonymized label shown on read
// surfaces in place of a vendor identity. Spreadsheet-style letter sequence:
// 0 -> "Vendor A", 25 -> "Vendor Z", 26 -> "Vendor AA".
func AnonymousVendorLabel(i int) string {
	letters := ""
	for i >= 0 {
		letters = string(rune('A'+i%26)) + letters
		i = i/26 - 1
	}
	return "Vendor " + letters
}
