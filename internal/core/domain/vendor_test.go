package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVendor_IsActive(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	active := Vendor{Status: VendorStatusActive}
	assert.True(t, active.IsActive(now))

	suspended := Vendor{Status: VendorStatusSuspended, SuspendedUntil: &future}
	assert.False(t, suspended.IsActive(now))

	lapsed := Vendor{Status: VendorStatusSuspended, SuspendedUntil: &past}
	assert.True(t, lapsed.IsActive(now), "a lapsed suspension no longer blocks bidding")

	indefinite := Vendor{Status: VendorStatusSuspended}
	assert.False(t, indefinite.IsActive(now))
}

// Labels must stay distinct past the alphabet so a busy auction's bid history
// never shows two bidders under the same name.
func TestAnonymousVendorLabel(t *testing.T) {
	assert.Equal(t, "Vendor A", AnonymousVendorLabel(0))
	assert.Equal(t, "Vendor Z", AnonymousVendorLabel(25))
	assert.Equal(t, "Vendor AA", AnonymousVendorLabel(26))
	assert.Equal(t, "Vendor AB", AnonymousVendorLabel(27))
	assert.Equal(t, "Vendor BA", AnonymousVendorLabel(52))

	seen := make(map[string]struct{})
	for i := 0; i < 60; i++ {
		label := AnonymousVendorLabel(i)
		_, dup := seen[label]
		assert.False(t, dup, "label %q repeated at ordinal %d", label, i)
		seen[label] = struct{}{}
	}
}
