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

// ClosureServiceImpl implements ports.ClosureService. The sweep is safe to
// run concurrently across replicas: the status-guarded Close update decides a
// single owner per auction, and everything after the commit is best-effort.
type ClosureServiceImpl struct {
	auctionRepo   ports.AuctionRepository
	bidRepo       ports.BidRepository
	paymentRepo   ports.PaymentRepository
	walletSvc     ports.WalletService
	presenceSvc   ports.PresenceService
	broadcaster   ports.Broadcaster
	notifier      ports.Notifier
	auditSvc      ports.AuditService
	transactor    ports.DBTransactor
	paymentWindow time.Duration
	log           zerolog.Logger
}

// NewClosureService creates a new ClosureServiceImpl. paymentWindow is how
// long a winner has to settle, measured from closure.
func NewClosureService(
	auctionRepo ports.AuctionRepository,
	bidRepo ports.BidRepository,
	paymentRepo ports.PaymentRepository,
	walletSvc ports.WalletService,
	presenceSvc ports.PresenceService,
	broadcaster ports.Broadcaster,
	notifier ports.Notifier,
	auditSvc ports.AuditService,
	transactor ports.DBTransactor,
	paymentWindow time.Duration,
	log zerolog.Logger,
) *ClosureServiceImpl {
	return &ClosureServiceImpl{
		auctionRepo:   auctionRepo,
		bidRepo:       bidRepo,
		paymentRepo:   paymentRepo,
		walletSvc:     walletSvc,
		presenceSvc:   presenceSvc,
		broadcaster:   broadcaster,
		notifier:      notifier,
		auditSvc:      auditSvc,
		transactor:    transactor,
		paymentWindow: paymentWindow,
		log:           log,
	}
}

// SweepExpiredAuctions closes every active auction whose end time has passed
// and emits the payment obligation for the winner, if any.
func (s *ClosureServiceImpl) SweepExpiredAuctions(ctx context.Context, now time.Time) ([]ports.ClosureResult, error) {
	expired, err := s.auctionRepo.ListExpired(ctx, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list expired auctions: %w", err))
	}

	results := make([]ports.ClosureResult, 0, len(expired))
	for i := range expired {
		auction := &expired[i]
		result, err := s.closeOne(ctx, auction, now)
		if err != nil {
			s.log.Error().Err(err).Str("auction_id", auction.ID.String()).Msg("failed to close auction")
			continue
		}
		if result != nil {
			results = append(results, *result)
		}
	}
	return results, nil
}

// closeOne closes a single expired auction. Returns nil when another replica
// got there first.
func (s *ClosureServiceImpl) closeOne(ctx context.Context, auction *domain.Auction, now time.Time) (*ports.ClosureResult, error) {
	before := domain.SnapshotAuction(auction)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	closed, err := s.auctionRepo.Close(ctx, dbTx, auction.ID)
	if err != nil {
		return nil, fmt.Errorf("close auction: %w", err)
	}
	if !closed {
		return nil, nil
	}
	auction.Status = domain.AuctionStatusClosed
	auction.UpdatedAt = now

	result := ports.ClosureResult{AuctionID: auction.ID}

	var payment *domain.PaymentObligation
	if auction.CurrentBidder != nil {
		payment = &domain.PaymentObligation{
			ID:        uuid.New(),
			AuctionID: auction.ID,
			VendorID:  *auction.CurrentBidder,
			Amount:    *auction.CurrentBid,
			Status:    domain.PaymentStatusPending,
			Deadline:  now.Add(s.paymentWindow),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.paymentRepo.Create(ctx, dbTx, payment); err != nil {
			return nil, fmt.Errorf("create payment obligation: %w", err)
		}
		result.WinnerID = auction.CurrentBidder
		result.Amount = auction.CurrentBid
		result.PaymentID = &payment.ID
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.auditSvc.Record(ctx, &domain.AuditRecord{
		ID:        uuid.New(),
		Action:    domain.AuditActionAuctionClosed,
		EntityID:  auction.ID,
		Before:    &before,
		After:     domain.SnapshotAuction(auction),
		CreatedAt: now,
	})

	if payment != nil {
		result.Frozen = s.preFreeze(ctx, payment)
		s.auditSvc.Record(ctx, &domain.AuditRecord{
			ID:        uuid.New(),
			Action:    domain.AuditActionPaymentCreated,
			EntityID:  payment.ID,
			After:     domain.SnapshotPayment(payment),
			CreatedAt: now,
		})
	}

	s.announceClosure(ctx, auction, payment)

	if err := s.presenceSvc.Reset(ctx, auction.ID); err != nil {
		s.log.Warn().Err(err).Str("auction_id", auction.ID.String()).Msg("failed to reset presence after closure")
	}

	return &result, nil
}

// preFreeze takes the settlement hold on the winner's wallet. The hold is
// soft: an insufficient balance at closure is an enforcement problem for the
// deadline sweep, not a reason to unwind the closure.
func (s *ClosureServiceImpl) preFreeze(ctx context.Context, payment *domain.PaymentObligation) bool {
	if _, err := s.walletSvc.Freeze(ctx, payment.VendorID, payment.Amount, payment.AuctionID); err != nil {
		s.log.Warn().Err(err).
			Str("vendor_id", payment.VendorID.String()).
			Int64("amount", payment.Amount).
			Msg("pre-freeze failed, obligation stays unsecured")
		return false
	}
	payment.FundsFrozen = true
	if err := s.paymentRepo.MarkFundsFrozen(ctx, payment.ID); err != nil {
		s.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to record pre-freeze")
	}
	return true
}

func (s *ClosureServiceImpl) announceClosure(ctx context.Context, auction *domain.Auction, payment *domain.PaymentObligation) {
	topic := ports.AuctionTopic(auction.ID)
	payload := map[string]any{"auction_id": auction.ID}
	if payment != nil {
		payload["winning_amount"] = payment.Amount
	}
	s.broadcaster.Publish(ctx, topic, ports.Event{Type: "auction_closed", Topic: topic, Payload: payload})

	bidders, err := s.bidRepo.ListBidders(ctx, auction.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("auction_id", auction.ID.String()).Msg("failed to list bidders for closure notices")
		return
	}
	for _, bidder := range bidders {
		event := "auction_lost"
		notifyPayload := map[string]any{"auction_id": auction.ID.String()}
		if payment != nil && bidder == payment.VendorID {
			event = "auction_won"
			notifyPayload["amount"] = payment.Amount
			notifyPayload["deadline"] = payment.Deadline
		}
		s.notifier.Notify(ctx, ports.Notification{
			Channel:  ports.ChannelPush,
			VendorID: bidder,
			Event:    event,
			Payload:  notifyPayload,
		})
	}
}

// SweepCloseReminders sends a closing-soon notice when an auction crosses the
// one-hour and thirty-minute marks: a broadcast for live subscribers plus a
// push to every bidder. Each threshold's firing window is one sweep interval
// wide, so on-schedule sweeps deliver it once per threshold.
func (s *ClosureServiceImpl) SweepCloseReminders(ctx context.Context, now time.Time) (int, error) {
	closing, err := s.auctionRepo.ListClosingBetween(ctx, now, now.Add(domain.CloseReminderFirst))
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list closing auctions: %w", err))
	}

	reminded := 0
	for i := range closing {
		auction := &closing[i]
		threshold, due := auction.DecideCloseReminder(now)
		if !due {
			continue
		}
		minutes := int(threshold.Minutes())
		topic := ports.AuctionTopic(auction.ID)
		s.broadcaster.Publish(ctx, topic, ports.Event{
			Type:  "closing_soon",
			Topic: topic,
			Payload: map[string]any{
				"end_time":          auction.EndTime,
				"minutes_remaining": minutes,
			},
		})
		s.notifyClosingSoon(ctx, auction, minutes)
		reminded++
	}
	return reminded, nil
}

func (s *ClosureServiceImpl) notifyClosingSoon(ctx context.Context, auction *domain.Auction, minutes int) {
	bidders, err := s.bidRepo.ListBidders(ctx, auction.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("auction_id", auction.ID.String()).Msg("failed to list bidders for close reminder")
		return
	}
	for _, bidder := range bidders {
		s.notifier.Notify(ctx, ports.Notification{
			Channel:  ports.ChannelPush,
			VendorID: bidder,
			Event:    "auction_closing_soon",
			Payload: map[string]any{
				"auction_id":        auction.ID.String(),
				"minutes_remaining": minutes,
				"end_time":          auction.EndTime,
			},
		})
	}
}
