package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// casRetryDelay spaces the single retry after losing the version race.
const casRetryDelay = 5 * time.Millisecond

// BiddingServiceImpl implements ports.BiddingService. Bid acceptance is an
// optimistic compare-and-swap on the auction's version counter: losing the
// race gets exactly one retry against refreshed state, then surfaces the new
// minimum to the caller.
type BiddingServiceImpl struct {
	auctionRepo  ports.AuctionRepository
	bidRepo      ports.BidRepository
	vendorRepo   ports.VendorRepository
	walletRepo   ports.WalletRepository
	otp          ports.OTPVerifier
	extension    ports.ExtensionController
	broadcaster  ports.Broadcaster
	notifier     ports.Notifier
	auditSvc     ports.AuditService
	tierOneLimit int64
	log          zerolog.Logger
}

// NewBiddingService creates a new BiddingServiceImpl. tierOneLimit is the bid
// ceiling for tier-1 vendors, in minor units.
func NewBiddingService(
	auctionRepo ports.AuctionRepository,
	bidRepo ports.BidRepository,
	vendorRepo ports.VendorRepository,
	walletRepo ports.WalletRepository,
	otp ports.OTPVerifier,
	extension ports.ExtensionController,
	broadcaster ports.Broadcaster,
	notifier ports.Notifier,
	auditSvc ports.AuditService,
	tierOneLimit int64,
	log zerolog.Logger,
) *BiddingServiceImpl {
	return &BiddingServiceImpl{
		auctionRepo:  auctionRepo,
		bidRepo:      bidRepo,
		vendorRepo:   vendorRepo,
		walletRepo:   walletRepo,
		otp:          otp,
		extension:    extension,
		broadcaster:  broadcaster,
		notifier:     notifier,
		auditSvc:     auditSvc,
		tierOneLimit: tierOneLimit,
		log:          log,
	}
}

// PlaceBid validates and commits one bid. Rejection checks run in a fixed
// order so the caller always sees the first failure: auction open, OTP,
// amount against the minimum, tier ceiling, funds. The auction state and
// minimum are re-validated inside the swap loop. Checking the auction before
// the OTP matters because codes are single-use: a bid on a closed auction
// must not burn a code the vendor could spend elsewhere.
func (s *BiddingServiceImpl) PlaceBid(ctx context.Context, req ports.PlaceBidRequest) (*ports.BidResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	vendor, err := s.vendorRepo.GetByID(ctx, req.VendorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get vendor: %w", err))
	}
	if vendor == nil {
		return nil, apperror.ErrInvalidToken()
	}
	if !vendor.IsActive(time.Now().UTC()) {
		return nil, apperror.ErrVendorSuspended()
	}

	snapshot, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get auction: %w", err))
	}
	if snapshot == nil {
		return nil, apperror.ErrAuctionNotFound()
	}
	if !snapshot.IsOpenForBids(time.Now().UTC()) {
		return nil, apperror.ErrAuctionNotActive()
	}

	if err := s.otp.Verify(ctx, vendor.Phone, req.OTPCode); err != nil {
		return nil, err
	}

	if min := snapshot.MinAcceptableBid(); req.Amount < min {
		return nil, apperror.ErrBidTooLow(min)
	}

	if vendor.Tier == domain.TierOne && req.Amount > s.tierOneLimit {
		return nil, apperror.ErrTierCeilingExceeded(s.tierOneLimit)
	}

	// Funds check is advisory: the hold is only taken when the auction
	// closes, so available balance can still drift before settlement.
	wallet, err := s.walletRepo.GetByVendorID(ctx, req.VendorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if wallet.Available < req.Amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	var (
		auction    *domain.Auction
		before     domain.AuditSnapshot
		prevBidder *uuid.UUID
		acceptedAt time.Time
	)

	backoff := retry.WithMaxRetries(1, retry.NewConstant(casRetryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		a, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get auction: %w", err))
		}
		if a == nil {
			return apperror.ErrAuctionNotFound()
		}

		now := time.Now().UTC()
		if !a.IsOpenForBids(now) {
			return apperror.ErrAuctionNotActive()
		}
		min := a.MinAcceptableBid()
		if req.Amount < min {
			return apperror.ErrBidTooLow(min)
		}

		swapped, err := s.auctionRepo.CompareAndSwapBid(ctx, a.ID, req.VendorID, req.Amount, a.Version)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("compare and swap bid: %w", err))
		}
		if !swapped {
			// Version moved under us; retry once against fresh state.
			return retry.RetryableError(apperror.ErrBidConflict(min))
		}

		before = domain.SnapshotAuction(a)
		prevBidder = a.CurrentBidder
		a.ApplyBid(req.VendorID, req.Amount)
		a.Version++
		a.UpdatedAt = now
		auction = a
		acceptedAt = now
		return nil
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.InternalError(err)
	}

	bid := &domain.Bid{
		ID:         uuid.New(),
		AuctionID:  auction.ID,
		VendorID:   req.VendorID,
		Amount:     req.Amount,
		AcceptedAt: acceptedAt,
	}
	if err := s.bidRepo.Append(ctx, bid); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append bid: %w", err))
	}

	newEnd, err := s.extension.OnBidAccepted(ctx, auction, acceptedAt)
	if err != nil {
		// The bid stands either way; the guarded end-time update can be
		// reapplied by the next bid in the window.
		s.log.Error().Err(err).Str("auction_id", auction.ID.String()).Msg("extension check failed after accepted bid")
	}

	s.auditSvc.Record(ctx, &domain.AuditRecord{
		ID:        uuid.New(),
		Action:    domain.AuditActionBidAccepted,
		EntityID:  auction.ID,
		Before:    &before,
		After:     domain.SnapshotAuction(auction),
		CreatedAt: acceptedAt,
	})

	s.publishBidEvents(ctx, auction, bid, prevBidder, newEnd)

	s.log.Info().
		Str("auction_id", auction.ID.String()).
		Str("vendor_id", req.VendorID.String()).
		Int64("amount", req.Amount).
		Bool("extended", newEnd != nil).
		Msg("bid accepted")

	return &ports.BidResult{Bid: bid, Auction: auction, Extended: newEnd != nil}, nil
}

func (s *BiddingServiceImpl) publishBidEvents(ctx context.Context, auction *domain.Auction, bid *domain.Bid, prevBidder *uuid.UUID, newEnd *time.Time) {
	topic := ports.AuctionTopic(auction.ID)
	s.broadcaster.Publish(ctx, topic, ports.Event{
		Type:  "bid_accepted",
		Topic: topic,
		Payload: map[string]any{
			"amount":       bid.Amount,
			"min_next_bid": auction.MinAcceptableBid(),
			"end_time":     auction.EndTime,
		},
	})

	if newEnd != nil {
		s.broadcaster.Publish(ctx, topic, ports.Event{
			Type:  "auction_extended",
			Topic: topic,
			Payload: map[string]any{
				"end_time": *newEnd,
			},
		})
	}

	if prevBidder != nil && *prevBidder != bid.VendorID {
		vendorTopic := ports.VendorTopic(*prevBidder)
		s.broadcaster.Publish(ctx, vendorTopic, ports.Event{
			Type:  "outbid",
			Topic: vendorTopic,
			Payload: map[string]any{
				"auction_id":   auction.ID,
				"min_next_bid": auction.MinAcceptableBid(),
			},
		})
		s.notifier.Notify(ctx, ports.Notification{
			Channel:  ports.ChannelPush,
			VendorID: *prevBidder,
			Event:    "outbid",
			Payload: map[string]any{
				"auction_id":   auction.ID.String(),
				"min_next_bid": auction.MinAcceptableBid(),
			},
		})
	}
}
