package repository

import (
	"context"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/google/uuid"
)

type ExperienceRepository interface {
	GetInstance(ctx context.Context, id uuid.UUID) (*domain.ExperienceInstance, error)
}

type PGExperienceRepository struct {
	db DB
}

func NewExperienceRepository(db DB) ExperienceRepository {
	return &PGExperienceRepository{db: db}
}

func (r *PGExperienceRepository) GetInstance(ctx context.Context, id uuid.UUID) (*domain.ExperienceInstance, error) {
	row := r.db.QueryRow(ctx, `SELECT ei.id, ei.experience_id, ei.starts_at, ei.max_capacity, ei.current_attendees, ei.flat_fee_override,
		       e.id, e.name, e.flat_fee, e.price_per_person, e.currency
		FROM experience_instances ei
		JOIN experiences e ON e.id = ei.experience_id
		WHERE ei.id=$1`, id)

	var (
		inst                      domain.ExperienceInstance
		override, flat, perPerson *int64
	)
	if err := row.Scan(&inst.ID, &inst.ExperienceID, &inst.StartsAt, &inst.MaxCapacity, &inst.CurrentAttendees, &override,
		&inst.Experience.ID, &inst.Experience.Name, &flat, &perPerson, &inst.Experience.Currency); err != nil {
		return nil, translate("get experience instance", err)
	}
	inst.FlatFeeOverride = moneyPtr(override)
	inst.Experience.FlatFee = moneyPtr(flat)
	inst.Experience.PricePerPerson = moneyPtr(perPerson)
	return &inst, nil
}

func moneyPtr(v *int64) *domain.Money {
	if v == nil {
		return nil
	}
	m := domain.Money(*v)
	return &m
}

var _ ExperienceRepository = (*PGExperienceRepository)(nil)
