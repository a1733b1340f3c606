package postgres

import (
	"context"
	"testing"
	"time"

	"salvage-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	w := &domain.Wallet{
		ID:        uuid.New(),
		VendorID:  uuid.New(),
		Balance:   0,
		Available: 0,
		Frozen:    0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.VendorID, w.Balance, w.Available, w.Frozen, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByVendorID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()
	vendorID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE vendor_id").
		WithArgs(vendorID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "vendor_id", "balance", "available", "frozen", "created_at", "updated_at",
		}).AddRow(walletID, vendorID, int64(500000), int64(300000), int64(200000), now, now))

	w, err := repo.GetByVendorID(context.Background(), vendorID)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, int64(500000), w.Balance)
	assert.Equal(t, int64(300000), w.Available)
	assert.Equal(t, int64(200000), w.Frozen)
	assert.NoError(t, w.CheckInvariant())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByVendorID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	vendorID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE vendor_id").
		WithArgs(vendorID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "vendor_id", "balance", "available", "frozen", "created_at", "updated_at",
		}))

	w, err := repo.GetByVendorID(context.Background(), vendorID)
	assert.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalances(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := &domain.Wallet{
		ID:        uuid.New(),
		VendorID:  uuid.New(),
		Balance:   500000,
		Available: 300000,
		Frozen:    200000,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(w.Balance, w.Available, w.Frozen, w.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalances(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalances_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := &domain.Wallet{ID: uuid.New(), Balance: 100, Available: 100}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(w.Balance, w.Available, w.Frozen, w.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalances(context.Background(), tx, w)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
