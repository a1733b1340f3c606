package service

import (
	"context"
	"testing"
	"time"

	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports/mocks"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"
)

func TestAuditService_Record_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, newTestLogger())

	done := make(chan struct{})
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, record *domain.AuditRecord) error {
			if record.Action != domain.AuditActionWalletFreeze {
				t.Errorf("expected WALLET_FREEZE, got %s", record.Action)
			}
			if record.After.Entity != domain.AuditEntityWallet {
				t.Errorf("expected WALLET entity, got %s", record.After.Entity)
			}
			close(done)
			return nil
		},
	)

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		VendorID:  uuid.New(),
		Balance:   500000,
		Available: 300000,
		Frozen:    200000,
	}
	svc.Record(context.Background(), &domain.AuditRecord{
		ID:        uuid.New(),
		Action:    domain.AuditActionWalletFreeze,
		EntityID:  wallet.ID,
		After:     domain.SnapshotWallet(wallet),
		CreatedAt: time.Now(),
	})

	select {
	case <-done:
		// OK
	case <-time.After(2 * time.Second):
		t.Fatal("audit record not persisted in time")
	}
}

func TestAuditService_Record_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, newTestLogger())

	auction := &domain.Auction{
		ID:     uuid.New(),
		Status: domain.AuctionStatusClosed,
	}
	// Should not panic
	svc.Record(context.Background(), &domain.AuditRecord{
		ID:        uuid.New(),
		Action:    domain.AuditActionAuctionClosed,
		EntityID:  auction.ID,
		After:     domain.SnapshotAuction(auction),
		CreatedAt: time.Now(),
	})

	time.Sleep(50 * time.Millisecond) // let goroutine run
}
