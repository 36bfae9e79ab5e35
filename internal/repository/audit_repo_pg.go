package repository

import (
	"context"

	"github.com/Domenick1991/haven/internal/domain"
)

type AuditRepository interface {
	Record(ctx context.Context, event *domain.AuditEvent) error
}

type PGAuditRepository struct {
	db DB
}

func NewAuditRepository(db DB) AuditRepository {
	return &PGAuditRepository{db: db}
}

func (r *PGAuditRepository) Record(ctx context.Context, event *domain.AuditEvent) error {
	err := r.db.QueryRow(ctx, `INSERT INTO audit_events (identifier, action, detail) VALUES ($1, $2, $3) RETURNING created_at`,
		event.Identifier, event.Action, event.Detail).Scan(&event.CreatedAt)
	return translate("record audit event", err)
}

var _ AuditRepository = (*PGAuditRepository)(nil)
