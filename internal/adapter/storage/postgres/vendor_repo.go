package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salvage-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VendorRepo implements ports.VendorRepository.
type VendorRepo struct {
	pool Pool
}

// NewVendorRepo creates a new VendorRepo.
func NewVendorRepo(pool Pool) *VendorRepo {
	return &VendorRepo{pool: pool}
}

const vendorColumns = `id, phone, name, password_hash, tier, status, suspended_until, fraud_flags, created_at, updated_at`

func scanVendor(row pgx.Row) (*domain.Vendor, error) {
	v := &domain.Vendor{}
	err := row.Scan(
		&v.ID, &v.Phone, &v.Name, &v.PasswordHash, &v.Tier, &v.Status,
		&v.SuspendedUntil, &v.FraudFlags, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetByID fetches a vendor by ID.
func (r *VendorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return v, nil
}

// GetByPhone fetches a vendor by phone number.
func (r *VendorRepo) GetByPhone(ctx context.Context, phone string) (*domain.Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE phone = $1`, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vendor by phone: %w", err)
	}
	return v, nil
}

// Suspend sets the vendor status and suspension expiry.
func (r *VendorRepo) Suspend(ctx context.Context, id uuid.UUID, until time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE vendors SET status = $1, suspended_until = $2, updated_at = NOW() WHERE id = $3`,
		string(domain.VendorStatusSuspended), until, id)
	if err != nil {
		return fmt.Errorf("suspend vendor: %w", err)
	}
	return nil
}

// IncrementFraudFlags atomically bumps the counter and returns the new value.
func (r *VendorRepo) IncrementFraudFlags(ctx context.Context, id uuid.UUID) (int, error) {
	var flags int
	err := r.pool.QueryRow(ctx,
		`UPDATE vendors SET fraud_flags = fraud_flags + 1, updated_at = NOW() WHERE id = $1 RETURNING fraud_flags`,
		id).Scan(&flags)
	if err != nil {
		return 0, fmt.Errorf("increment fraud flags: %w", err)
	}
	return flags, nil
}

// ListFlagged returns active vendors with at least threshold fraud flags.
func (r *VendorRepo) ListFlagged(ctx context.Context, threshold int) ([]domain.Vendor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE status = $1 AND fraud_flags >= $2`,
		string(domain.VendorStatusActive), threshold)
	if err != nil {
		return nil, fmt.Errorf("list flagged vendors: %w", err)
	}
	defer rows.Close()

	var out []domain.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendors: %w", err)
	}
	return out, nil
}
