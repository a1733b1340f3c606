package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports"
)

type auditRepo struct {
	pool Pool
}

// NewAuditRepository creates a PostgreSQL-backed AuditRepository. Snapshots
// are stored as JSONB; the tagged union keeps them structurally valid.
func NewAuditRepository(pool Pool) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Create(ctx context.Context, rec *domain.AuditRecord) error {
	var before []byte
	if rec.Before != nil {
		b, err := json.Marshal(rec.Before)
		if err != nil {
			return fmt.Errorf("marshal before snapshot: %w", err)
		}
		before = b
	}
	after, err := json.Marshal(rec.After)
	if err != nil {
		return fmt.Errorf("marshal after snapshot: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_records (id, action, entity_id, before, after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, string(rec.Action), rec.EntityID, before, after, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
