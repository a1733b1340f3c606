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

// DeadlineServiceImpl implements ports.DeadlineService. The state machine
// itself is domain.PaymentObligation.Advance; this layer fetches candidate
// batches, applies status-guarded updates and runs the enforcement effects.
// Every transition tolerates at-least-once delivery: a guard that does not
// match means another sweep already applied it.
type DeadlineServiceImpl struct {
	paymentRepo    ports.PaymentRepository
	vendorRepo     ports.VendorRepository
	auctionRepo    ports.AuctionRepository
	walletSvc      ports.WalletService
	notifier       ports.Notifier
	auditSvc       ports.AuditService
	relistDuration time.Duration
	log            zerolog.Logger
}

// NewDeadlineService creates a new DeadlineServiceImpl. relistDuration is the
// bidding window given to a re-listed case after a forfeiture.
func NewDeadlineService(
	paymentRepo ports.PaymentRepository,
	vendorRepo ports.VendorRepository,
	auctionRepo ports.AuctionRepository,
	walletSvc ports.WalletService,
	notifier ports.Notifier,
	auditSvc ports.AuditService,
	relistDuration time.Duration,
	log zerolog.Logger,
) *DeadlineServiceImpl {
	return &DeadlineServiceImpl{
		paymentRepo:    paymentRepo,
		vendorRepo:     vendorRepo,
		auctionRepo:    auctionRepo,
		walletSvc:      walletSvc,
		notifier:       notifier,
		auditSvc:       auditSvc,
		relistDuration: relistDuration,
		log:            log,
	}
}

// SweepDeadlines advances every obligation the clock has caught up with.
func (s *DeadlineServiceImpl) SweepDeadlines(ctx context.Context, now time.Time) (*ports.EnforcementResults, error) {
	results := &ports.EnforcementResults{}

	if err := s.sendReminders(ctx, now, results); err != nil {
		return nil, err
	}
	if err := s.markOverdue(ctx, now, results); err != nil {
		return nil, err
	}
	if err := s.releaseStrandedHolds(ctx, results); err != nil {
		return nil, err
	}
	if err := s.forfeit(ctx, now, results); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("reminders_sent", results.RemindersSent).
		Int("marked_overdue", results.MarkedOverdue).
		Int("forfeited", results.Forfeited).
		Int("vendors_suspended", results.VendorsSuspended).
		Int("holds_released", results.HoldsReleased).
		Msg("deadline sweep completed")

	return results, nil
}

func (s *DeadlineServiceImpl) sendReminders(ctx context.Context, now time.Time, results *ports.EnforcementResults) error {
	due, err := s.paymentRepo.ListPendingReminders(ctx,
		now.Add(domain.ReminderBefore-domain.ReminderWindow), now.Add(domain.ReminderBefore))
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list pending reminders: %w", err))
	}

	for i := range due {
		payment := &due[i]
		if payment.Advance(now) != domain.TransitionRemind {
			continue
		}
		sent, err := s.paymentRepo.MarkReminderSent(ctx, payment.ID)
		if err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to mark reminder sent")
			continue
		}
		if !sent {
			continue
		}
		s.notifier.Notify(ctx, ports.Notification{
			Channel:  ports.ChannelSMS,
			VendorID: payment.VendorID,
			Event:    "payment_reminder",
			Payload: map[string]any{
				"auction_id": payment.AuctionID.String(),
				"amount":     payment.Amount,
				"deadline":   payment.Deadline,
			},
		})
		results.RemindersSent++
	}
	return nil
}

func (s *DeadlineServiceImpl) markOverdue(ctx context.Context, now time.Time, results *ports.EnforcementResults) error {
	pending, err := s.paymentRepo.ListByStatus(ctx, domain.PaymentStatusPending, now.Add(-domain.OverdueGrace))
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list pending payments: %w", err))
	}

	for i := range pending {
		payment := &pending[i]
		if payment.Advance(now) != domain.TransitionOverdue {
			continue
		}
		before := domain.SnapshotPayment(payment)
		applied, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusOverdue)
		if err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to mark payment overdue")
			continue
		}
		if !applied {
			continue
		}
		payment.Status = domain.PaymentStatusOverdue

		if _, err := s.vendorRepo.IncrementFraudFlags(ctx, payment.VendorID); err != nil {
			s.log.Warn().Err(err).Str("vendor_id", payment.VendorID.String()).Msg("failed to increment fraud flags")
		}

		s.auditSvc.Record(ctx, &domain.AuditRecord{
			ID:        uuid.New(),
			Action:    domain.AuditActionPaymentOverdue,
			EntityID:  payment.ID,
			Before:    &before,
			After:     domain.SnapshotPayment(payment),
			CreatedAt: now,
		})
		s.notifier.Notify(ctx, ports.Notification{
			Channel:  ports.ChannelSMS,
			VendorID: payment.VendorID,
			Event:    "payment_overdue",
			Payload: map[string]any{
				"auction_id": payment.AuctionID.String(),
				"amount":     payment.Amount,
			},
		})
		results.MarkedOverdue++
	}
	return nil
}

func (s *DeadlineServiceImpl) forfeit(ctx context.Context, now time.Time, results *ports.EnforcementResults) error {
	overdue, err := s.paymentRepo.ListByStatus(ctx, domain.PaymentStatusOverdue, now.Add(-domain.ForfeitGrace))
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list overdue payments: %w", err))
	}

	for i := range overdue {
		payment := &overdue[i]
		if payment.Advance(now) != domain.TransitionForfeit {
			continue
		}
		before := domain.SnapshotPayment(payment)
		applied, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusOverdue, domain.PaymentStatusForfeited)
		if err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to forfeit payment")
			continue
		}
		if !applied {
			continue
		}
		payment.Status = domain.PaymentStatusForfeited
		results.Forfeited++

		// The held funds go back to the vendor; forfeiture costs the asset
		// and the account standing, not the money.
		if payment.FundsFrozen {
			s.releaseHold(ctx, payment, results)
		}

		if err := s.suspendVendor(ctx, payment.VendorID, now.Add(domain.ForfeitSuspension), now); err != nil {
			s.log.Error().Err(err).Str("vendor_id", payment.VendorID.String()).Msg("failed to suspend forfeiting vendor")
		} else {
			results.VendorsSuspended++
		}

		s.relistAuction(ctx, payment.AuctionID, now)

		s.auditSvc.Record(ctx, &domain.AuditRecord{
			ID:        uuid.New(),
			Action:    domain.AuditActionPaymentForfeited,
			EntityID:  payment.ID,
			Before:    &before,
			After:     domain.SnapshotPayment(payment),
			CreatedAt: now,
		})
		s.notifier.Notify(ctx, ports.Notification{
			Channel:  ports.ChannelSMS,
			VendorID: payment.VendorID,
			Event:    "payment_forfeited",
			Payload: map[string]any{
				"auction_id": payment.AuctionID.String(),
			},
		})
	}
	return nil
}

// releaseHold unfreezes a forfeited obligation's pre-frozen amount and clears
// the funds_frozen flag on success. The flag stays set on failure so a later
// sweep retries through releaseStrandedHolds.
func (s *DeadlineServiceImpl) releaseHold(ctx context.Context, payment *domain.PaymentObligation, results *ports.EnforcementResults) {
	if _, err := s.walletSvc.Unfreeze(ctx, payment.VendorID, payment.Amount, payment.AuctionID); err != nil {
		s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to release forfeited hold")
		return
	}
	cleared, err := s.paymentRepo.ClearFundsFrozen(ctx, payment.ID)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to clear hold flag after release")
		return
	}
	if cleared {
		payment.FundsFrozen = false
		results.HoldsReleased++
	}
}

// releaseStrandedHolds retries holds that a prior sweep forfeited but could
// not release, so a transient wallet failure never strands vendor funds.
func (s *DeadlineServiceImpl) releaseStrandedHolds(ctx context.Context, results *ports.EnforcementResults) error {
	held, err := s.paymentRepo.ListForfeitedWithHeldFunds(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list held forfeited payments: %w", err))
	}
	for i := range held {
		s.releaseHold(ctx, &held[i], results)
	}
	return nil
}

func (s *DeadlineServiceImpl) suspendVendor(ctx context.Context, vendorID uuid.UUID, until, now time.Time) error {
	if err := s.vendorRepo.Suspend(ctx, vendorID, until); err != nil {
		return err
	}
	vendor, err := s.vendorRepo.GetByID(ctx, vendorID)
	if err != nil || vendor == nil {
		return err
	}
	s.auditSvc.Record(ctx, &domain.AuditRecord{
		ID:        uuid.New(),
		Action:    domain.AuditActionVendorSuspended,
		EntityID:  vendorID,
		After:     domain.SnapshotVendor(vendor),
		CreatedAt: now,
	})
	return nil
}

// relistAuction puts the forfeited case back on the block as a fresh auction
// with no bid history carried over.
func (s *DeadlineServiceImpl) relistAuction(ctx context.Context, auctionID uuid.UUID, now time.Time) {
	old, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil || old == nil {
		s.log.Error().Err(err).Str("auction_id", auctionID.String()).Msg("failed to load auction for relist")
		return
	}

	relisted := &domain.Auction{
		ID:              uuid.New(),
		CaseRef:         old.CaseRef,
		StartTime:       now,
		EndTime:         now.Add(s.relistDuration),
		OriginalEndTime: now.Add(s.relistDuration),
		MinIncrement:    old.MinIncrement,
		Status:          domain.AuctionStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.auctionRepo.Create(ctx, relisted); err != nil {
		s.log.Error().Err(err).Str("case_ref", old.CaseRef).Msg("failed to relist forfeited auction")
		return
	}

	s.auditSvc.Record(ctx, &domain.AuditRecord{
		ID:        uuid.New(),
		Action:    domain.AuditActionAuctionRelisted,
		EntityID:  relisted.ID,
		After:     domain.SnapshotAuction(relisted),
		CreatedAt: now,
	})

	s.log.Info().
		Str("case_ref", old.CaseRef).
		Str("old_auction_id", auctionID.String()).
		Str("new_auction_id", relisted.ID.String()).
		Msg("forfeited case relisted")
}

// SweepFraudFlags suspends vendors whose flag count crossed the threshold.
func (s *DeadlineServiceImpl) SweepFraudFlags(ctx context.Context, now time.Time) (int, error) {
	flagged, err := s.vendorRepo.ListFlagged(ctx, domain.FraudFlagThreshold)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list flagged vendors: %w", err))
	}

	suspended := 0
	for i := range flagged {
		vendor := &flagged[i]
		if err := s.suspendVendor(ctx, vendor.ID, now.Add(domain.FraudFlagSuspension), now); err != nil {
			s.log.Error().Err(err).Str("vendor_id", vendor.ID.String()).Msg("failed to suspend flagged vendor")
			continue
		}
		suspended++
		s.notifier.Notify(ctx, ports.Notification{
			Channel:  ports.ChannelSMS,
			VendorID: vendor.ID,
			Event:    "account_suspended",
			Payload: map[string]any{
				"until": now.Add(domain.FraudFlagSuspension),
			},
		})
	}
	return suspended, nil
}
