package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Presence TTLs. The dwell entry expires fast so a crashed client is reaped
// by the sweep; the watching membership lives longer and is pruned lazily.
const (
	DwellTTL    = 5 * time.Minute
	WatcherTTL  = 1 * time.Hour
	auctionsKey = "presence:auctions"
)

// PresenceStore implements ports.PresenceStore on Redis. All state here is a
// liveness hint, not authoritative: no locking, eventually consistent.
type PresenceStore struct {
	client *goredis.Client
}

// NewPresenceStore creates a new Redis-backed presence store.
func NewPresenceStore(client *goredis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

func dwellKey(auctionID, vendorID uuid.UUID) string {
	return "presence:dwell:" + auctionID.String() + ":" + vendorID.String()
}

func watchKey(auctionID uuid.UUID) string {
	return "presence:watch:" + auctionID.String()
}

// Touch records the vendor viewing the auction. The dwell start survives
// refreshes (SETNX) so the debounce measures continuous viewing.
func (s *PresenceStore) Touch(ctx context.Context, auctionID, vendorID uuid.UUID) (time.Time, error) {
	key := dwellKey(auctionID, vendorID)
	now := time.Now().UTC()

	set, err := s.client.SetNX(ctx, key, now.Unix(), DwellTTL).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("redis presence touch: %w", err)
	}
	if set {
		return now, nil
	}

	// Entry already exists: refresh TTL, report the original start.
	s.client.Expire(ctx, key, DwellTTL)
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == goredis.Nil {
			return now, nil
		}
		return time.Time{}, fmt.Errorf("redis presence start: %w", err)
	}
	startUnix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis presence start parse: %w", err)
	}
	return time.Unix(startUnix, 0).UTC(), nil
}

// AddWatcher adds the vendor to the auction's watching set with an expiry
// score, and registers the auction as tracked.
func (s *PresenceStore) AddWatcher(ctx context.Context, auctionID, vendorID uuid.UUID) error {
	expiry := float64(time.Now().Add(WatcherTTL).Unix())
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, watchKey(auctionID), goredis.Z{Score: expiry, Member: vendorID.String()})
	pipe.SAdd(ctx, auctionsKey, auctionID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis presence add watcher: %w", err)
	}
	return nil
}

// Remove drops both the dwell entry and the watching membership.
func (s *PresenceStore) Remove(ctx context.Context, auctionID, vendorID uuid.UUID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, dwellKey(auctionID, vendorID))
	pipe.ZRem(ctx, watchKey(auctionID), vendorID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis presence remove: %w", err)
	}
	return nil
}

// Watchers returns current members after pruning expired scores.
func (s *PresenceStore) Watchers(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	key := watchKey(auctionID)
	now := strconv.FormatInt(time.Now().Unix(), 10)

	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("redis presence prune: %w", err)
	}
	members, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis presence watchers: %w", err)
	}

	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// HasDwell reports whether the vendor's dwell entry is still alive.
func (s *PresenceStore) HasDwell(ctx context.Context, auctionID, vendorID uuid.UUID) (bool, error) {
	n, err := s.client.Exists(ctx, dwellKey(auctionID, vendorID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis presence dwell check: %w", err)
	}
	return n > 0, nil
}

// TrackedAuctions returns auctions that currently have watching sets.
func (s *PresenceStore) TrackedAuctions(ctx context.Context) ([]uuid.UUID, error) {
	members, err := s.client.SMembers(ctx, auctionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis presence tracked auctions: %w", err)
	}
	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Reset clears all presence state for an auction (invoked at closure).
func (s *PresenceStore) Reset(ctx context.Context, auctionID uuid.UUID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, watchKey(auctionID))
	pipe.SRem(ctx, auctionsKey, auctionID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis presence reset: %w", err)
	}
	return nil
}
