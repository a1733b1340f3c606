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

// PresenceServiceImpl implements ports.PresenceService on the ephemeral
// store. Counts are a display hint: no operation here participates in bid
// validation or settlement.
type PresenceServiceImpl struct {
	store       ports.PresenceStore
	broadcaster ports.Broadcaster
	minDwell    time.Duration
	log         zerolog.Logger
}

// NewPresenceService creates a new PresenceServiceImpl. minDwell is how long
// a vendor must continuously view an auction before counting as a watcher,
// which keeps page-flicking out of the number.
func NewPresenceService(store ports.PresenceStore, broadcaster ports.Broadcaster, minDwell time.Duration, log zerolog.Logger) *PresenceServiceImpl {
	return &PresenceServiceImpl{
		store:       store,
		broadcaster: broadcaster,
		minDwell:    minDwell,
		log:         log,
	}
}

// Track records a view heartbeat and promotes the vendor to watcher once the
// dwell threshold is met. Returns the current watcher count.
func (s *PresenceServiceImpl) Track(ctx context.Context, auctionID, vendorID uuid.UUID) (int, error) {
	start, err := s.store.Touch(ctx, auctionID, vendorID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("touch presence: %w", err))
	}

	if time.Since(start) >= s.minDwell {
		if err := s.store.AddWatcher(ctx, auctionID, vendorID); err != nil {
			return 0, apperror.InternalError(fmt.Errorf("add watcher: %w", err))
		}
	}

	return s.broadcastCount(ctx, auctionID)
}

// Untrack removes the vendor immediately (clean disconnect).
func (s *PresenceServiceImpl) Untrack(ctx context.Context, auctionID, vendorID uuid.UUID) (int, error) {
	if err := s.store.Remove(ctx, auctionID, vendorID); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("remove presence: %w", err))
	}
	return s.broadcastCount(ctx, auctionID)
}

// CurrentCount returns the live watcher count for an auction.
func (s *PresenceServiceImpl) CurrentCount(ctx context.Context, auctionID uuid.UUID) (int, error) {
	watchers, err := s.store.Watchers(ctx, auctionID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list watchers: %w", err))
	}
	return len(watchers), nil
}

// WatcherLabels returns one anonymized ordinal label per watcher.
func (s *PresenceServiceImpl) WatcherLabels(ctx context.Context, auctionID uuid.UUID) ([]string, error) {
	watchers, err := s.store.Watchers(ctx, auctionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list watchers: %w", err))
	}

	labels := make([]string, len(watchers))
	for i := range watchers {
		labels[i] = domain.AnonymousVendorLabel(i)
	}
	return labels, nil
}

// ReapStale drops watchers whose dwell entry expired, auction by auction.
// Returns the number of watchers removed.
func (s *PresenceServiceImpl) ReapStale(ctx context.Context) (int, error) {
	auctions, err := s.store.TrackedAuctions(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list tracked auctions: %w", err))
	}

	reaped := 0
	for _, auctionID := range auctions {
		watchers, err := s.store.Watchers(ctx, auctionID)
		if err != nil {
			s.log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("failed to list watchers during reap")
			continue
		}

		removed := 0
		for _, vendorID := range watchers {
			alive, err := s.store.HasDwell(ctx, auctionID, vendorID)
			if err != nil {
				s.log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("dwell check failed during reap")
				continue
			}
			if alive {
				continue
			}
			if err := s.store.Remove(ctx, auctionID, vendorID); err != nil {
				s.log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("failed to remove stale watcher")
				continue
			}
			removed++
		}

		if removed > 0 {
			reaped += removed
			if _, err := s.broadcastCount(ctx, auctionID); err != nil {
				s.log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("failed to rebroadcast count after reap")
			}
		}
	}
	return reaped, nil
}

// Reset clears all presence for a closed auction.
func (s *PresenceServiceImpl) Reset(ctx context.Context, auctionID uuid.UUID) error {
	if err := s.store.Reset(ctx, auctionID); err != nil {
		return apperror.InternalError(fmt.Errorf("reset presence: %w", err))
	}
	topic := ports.AuctionTopic(auctionID)
	s.broadcaster.Publish(ctx, topic, ports.Event{
		Type:    "watcher_count",
		Topic:   topic,
		Payload: map[string]any{"count": 0},
	})
	return nil
}

func (s *PresenceServiceImpl) broadcastCount(ctx context.Context, auctionID uuid.UUID) (int, error) {
	count, err := s.CurrentCount(ctx, auctionID)
	if err != nil {
		return 0, err
	}
	topic := ports.AuctionTopic(auctionID)
	s.broadcaster.Publish(ctx, topic, ports.Event{
		Type:    "watcher_count",
		Topic:   topic,
		Payload: map[string]any{"count": count},
	})
	return count, nil
}

