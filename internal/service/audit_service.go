package service

import (
	"context"

	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports"

	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit records are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record persists an audit record asynchronously (fire-and-forget).
func (s *auditService) Record(ctx context.Context, record *domain.AuditRecord) {
	go func() {
		s.log.Info().
			Str("action", string(record.Action)).
			Str("entity", string(record.After.Entity)).
			Str("entity_id", record.EntityID.String()).
			Msg("audit")

		if s.repo != nil {
			if err := s.repo.Create(context.Background(), record); err != nil {
				s.log.Warn().Err(err).Str("action", string(record.Action)).Msg("failed to persist audit record")
			}
		}
	}()
}
