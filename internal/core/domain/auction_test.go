package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuction_IsOpenForBids(t *testing.T) {
	end := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	a := Auction{Status: AuctionStatusActive, EndTime: end}
	assert.True(t, a.IsOpenForBids(end.Add(-time.Minute)))
	assert.False(t, a.IsOpenForBids(end), "end instant is exclusive")
	assert.False(t, a.IsOpenForBids(end.Add(time.Second)))

	a.Status = AuctionStatusClosed
	assert.False(t, a.IsOpenForBids(end.Add(-time.Hour)))

	a.Status = AuctionStatusCancelled
	assert.False(t, a.IsOpenForBids(end.Add(-time.Hour)))
}

func TestAuction_MinAcceptableBid(t *testing.T) {
	a := Auction{MinIncrement: 10_000}
	assert.Equal(t, int64(10_000), a.MinAcceptableBid(), "opening bid is one increment")

	current := int64(150_000)
	a.CurrentBid = &current
	assert.Equal(t, int64(160_000), a.MinAcceptableBid())
}

func TestAuction_ApplyBid(t *testing.T) {
	vendorID := uuid.New()
	a := Auction{MinIncrement: 10_000}

	a.ApplyBid(vendorID, 150_000)

	require.NotNil(t, a.CurrentBid)
	require.NotNil(t, a.CurrentBidder)
	assert.Equal(t, int64(150_000), *a.CurrentBid)
	assert.Equal(t, vendorID, *a.CurrentBidder)
}

func TestAuction_DecideExtension(t *testing.T) {
	const (
		window   = 5 * time.Minute
		extendBy = 2 * time.Minute
	)
	end := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		bidTime time.Time
		extend  bool
		newEnd  time.Time
	}{
		{
			name:    "bid before the final window",
			bidTime: end.Add(-window - time.Second),
		},
		{
			name:    "bid at the window boundary",
			bidTime: end.Add(-window),
			extend:  false, // end-window+extendBy is not after end
		},
		{
			name:    "late bid pushes the end out",
			bidTime: end.Add(-90 * time.Second),
			extend:  true,
			newEnd:  end.Add(-90 * time.Second).Add(extendBy),
		},
		{
			name:    "bid in window but runway already longer than extension",
			bidTime: end.Add(-3 * time.Minute),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Auction{Status: AuctionStatusActive, EndTime: end}
			d := a.DecideExtension(tt.bidTime, window, extendBy)
			assert.Equal(t, tt.extend, d.Extend)
			if tt.extend {
				assert.Equal(t, tt.newEnd, d.NewEndTime)
				assert.True(t, d.NewEndTime.After(end), "end time only grows")
			}
		})
	}
}

func TestAuction_DecideCloseReminder(t *testing.T) {
	end := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    AuctionStatus
		remaining time.Duration
		threshold time.Duration
		due       bool
	}{
		{name: "well before the hour mark", status: AuctionStatusActive, remaining: 90 * time.Minute},
		{name: "hour window upper bound", status: AuctionStatusActive, remaining: CloseReminderFirst, threshold: CloseReminderFirst, due: true},
		{name: "inside the hour window", status: AuctionStatusActive, remaining: 57 * time.Minute, threshold: CloseReminderFirst, due: true},
		{name: "hour window lower bound exclusive", status: AuctionStatusActive, remaining: CloseReminderFirst - CloseReminderWindow},
		{name: "between thresholds", status: AuctionStatusActive, remaining: 45 * time.Minute},
		{name: "inside the half-hour window", status: AuctionStatusActive, remaining: 27 * time.Minute, threshold: CloseReminderSecond, due: true},
		{name: "past the half-hour window", status: AuctionStatusActive, remaining: 20 * time.Minute},
		{name: "closed auction never reminds", status: AuctionStatusClosed, remaining: 27 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Auction{Status: tt.status, EndTime: end}
			threshold, due := a.DecideCloseReminder(end.Add(-tt.remaining))
			assert.Equal(t, tt.due, due)
			if tt.due {
				assert.Equal(t, tt.threshold, threshold)
			}
		})
	}
}

// Re-evaluating the rule for the same bid after the extension was applied must
// be a no-op, so a replayed sweep or a duplicate delivery cannot extend twice.
func TestAuction_DecideExtension_Idempotent(t *testing.T) {
	end := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	bidTime := end.Add(-time.Minute)

	a := Auction{Status: AuctionStatusActive, EndTime: end}
	first := a.DecideExtension(bidTime, 5*time.Minute, 2*time.Minute)
	require.True(t, first.Extend)

	a.EndTime = first.NewEndTime
	second := a.DecideExtension(bidTime, 5*time.Minute, 2*time.Minute)
	assert.False(t, second.Extend)
}
