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

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, auction_id, vendor_id, amount, status, deadline, method,
	reminder_sent, funds_frozen, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.PaymentObligation, error) {
	p := &domain.PaymentObligation{}
	err := row.Scan(
		&p.ID, &p.AuctionID, &p.VendorID, &p.Amount, &p.Status, &p.Deadline, &p.Method,
		&p.ReminderSent, &p.FundsFrozen, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a payment obligation within a database transaction. The
// partial unique index on auction_id rejects a second open obligation.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PaymentObligation) error {
	query := `INSERT INTO payment_obligations
		(id, auction_id, vendor_id, amount, status, deadline, method, reminder_sent, funds_frozen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.AuctionID, p.VendorID, p.Amount, string(p.Status), p.Deadline, p.Method,
		p.ReminderSent, p.FundsFrozen, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment obligation: %w", err)
	}
	return nil
}

// GetByID fetches a payment obligation.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentObligation, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_obligations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// GetOpenByAuction fetches the auction's non-forfeited obligation, if any.
func (r *PaymentRepo) GetOpenByAuction(ctx context.Context, auctionID uuid.UUID) (*domain.PaymentObligation, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_obligations WHERE auction_id = $1 AND status <> $2`,
		auctionID, string(domain.PaymentStatusForfeited)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open payment: %w", err)
	}
	return p, nil
}

// ListByStatus returns obligations in a status with deadline <= horizon.
func (r *PaymentRepo) ListByStatus(ctx context.Context, status domain.PaymentStatus, deadlineBefore time.Time) ([]domain.PaymentObligation, error) {
	return r.list(ctx,
		`SELECT `+paymentColumns+` FROM payment_obligations WHERE status = $1 AND deadline <= $2 ORDER BY deadline`,
		string(status), deadlineBefore)
}

// ListPendingReminders returns pending, un-reminded obligations with a
// deadline inside (from, to].
func (r *PaymentRepo) ListPendingReminders(ctx context.Context, from, to time.Time) ([]domain.PaymentObligation, error) {
	return r.list(ctx,
		`SELECT `+paymentColumns+` FROM payment_obligations
		 WHERE status = $1 AND reminder_sent = FALSE AND deadline > $2 AND deadline <= $3 ORDER BY deadline`,
		string(domain.PaymentStatusPending), from, to)
}

func (r *PaymentRepo) list(ctx context.Context, query string, args ...any) ([]domain.PaymentObligation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []domain.PaymentObligation
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// UpdateStatus transitions from -> to guarded by the current status, which
// keeps at-least-once sweeps from double-applying a transition.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus) (bool, error) {
	query := `UPDATE payment_obligations SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`

	tag, err := r.pool.Exec(ctx, query, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkReminderSent flips the reminder flag once.
func (r *PaymentRepo) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE payment_obligations SET reminder_sent = TRUE, updated_at = NOW()
		WHERE id = $1 AND reminder_sent = FALSE`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFundsFrozen records that the pre-freeze at closure succeeded.
func (r *PaymentRepo) MarkFundsFrozen(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payment_obligations SET funds_frozen = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark funds frozen: %w", err)
	}
	return nil
}

// ClearFundsFrozen records that the held amount was released. The guard on
// the flag makes the release idempotent across overlapping sweeps.
func (r *PaymentRepo) ClearFundsFrozen(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_obligations SET funds_frozen = FALSE, updated_at = NOW()
		 WHERE id = $1 AND funds_frozen = TRUE`, id)
	if err != nil {
		return false, fmt.Errorf("clear funds frozen: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListForfeitedWithHeldFunds returns forfeited obligations whose release has
// not gone through yet, so the deadline sweep can retry the unfreeze.
func (r *PaymentRepo) ListForfeitedWithHeldFunds(ctx context.Context) ([]domain.PaymentObligation, error) {
	return r.list(ctx,
		`SELECT `+paymentColumns+` FROM payment_obligations
		 WHERE status = $1 AND funds_frozen = TRUE ORDER BY deadline`,
		string(domain.PaymentStatusForfeited))
}
