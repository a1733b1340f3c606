package service

import (
	"context"
	"fmt"
	"time"

	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExtensionControllerImpl implements ports.ExtensionController. The decision
// itself lives in the domain model; this layer persists the new end time and
// records the audit trail.
type ExtensionControllerImpl struct {
	auctionRepo ports.AuctionRepository
	auditSvc    ports.AuditService
	window      time.Duration
	extendBy    time.Duration
	log         zerolog.Logger
}

// NewExtensionController creates a new ExtensionControllerImpl. window is how
// close to the end a bid must land to trigger an extension; extendBy is the
// guaranteed remaining time after such a bid.
func NewExtensionController(
	auctionRepo ports.AuctionRepository,
	auditSvc ports.AuditService,
	window, extendBy time.Duration,
	log zerolog.Logger,
) *ExtensionControllerImpl {
	return &ExtensionControllerImpl{
		auctionRepo: auctionRepo,
		auditSvc:    auditSvc,
		window:      window,
		extendBy:    extendBy,
		log:         log,
	}
}

// OnBidAccepted evaluates the anti-sniping rule for a committed bid. Returns
// the new end time when the extension fired, nil otherwise.
func (c *ExtensionControllerImpl) OnBidAccepted(ctx context.Context, auction *domain.Auction, bidTime time.Time) (*time.Time, error) {
	decision := auction.DecideExtension(bidTime, c.window, c.extendBy)
	if !decision.Extend {
		return nil, nil
	}

	before := domain.SnapshotAuction(auction)

	applied, err := c.auctionRepo.ExtendEndTime(ctx, auction.ID, decision.NewEndTime)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("extend end time: %w", err))
	}
	if !applied {
		// A concurrent bid already pushed the end time at least this far.
		return nil, nil
	}

	auction.EndTime = decision.NewEndTime
	auction.ExtensionCount++

	c.auditSvc.Record(ctx, &domain.AuditRecord{
		ID:        uuid.New(),
		Action:    domain.AuditActionAuctionExtended,
		EntityID:  auction.ID,
		Before:    &before,
		After:     domain.SnapshotAuction(auction),
		CreatedAt: time.Now().UTC(),
	})

	c.log.Info().
		Str("auction_id", auction.ID.String()).
		Time("new_end_time", decision.NewEndTime).
		Int("extension_count", auction.ExtensionCount).
		Msg("auction extended")

	return &decision.NewEndTime, nil
}
