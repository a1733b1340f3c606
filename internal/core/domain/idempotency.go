package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog caches the result of a deposit so a re-delivered callback
// from the external payment channel never credits a wallet twice.
type IdempotencyLog struct {
	Key           string    `json:"key"` // Format: "vendor_id:reference_id"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"` // Cached response to return
	CreatedAt     time.Time `json:"created_at"`
}

// BuildDepositIdempotencyKey constructs the standard key format.
func BuildDepositIdempotencyKey(vendorID uuid.UUID, referenceID string) string {
	return vendorID.String() + ":deposit:" + referenceID
}
