package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/google/uuid"
)

type PropertyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Property, error)
	ActiveRules(ctx context.Context, propertyID uuid.UUID, at time.Time) ([]domain.PricingRule, error)
	ExternalRates(ctx context.Context, propertyID uuid.UUID) ([]domain.ExternalRate, error)
}

type PGPropertyRepository struct {
	db DB
}

func NewPropertyRepository(db DB) PropertyRepository {
	return &PGPropertyRepository{db: db}
}

func (r *PGPropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, nightly_rate, cleaning_fee, currency, max_guests, is_active FROM properties WHERE id=$1`, id)
	var p domain.Property
	if err := row.Scan(&p.ID, &p.Name, &p.NightlyRate, &p.CleaningFee, &p.Currency, &p.MaxGuests, &p.IsActive); err != nil {
		return nil, translate("get property", err)
	}
	return &p, nil
}

// ActiveRules returns the rules in application order: highest priority first,
// ties broken by name then id so the order is stable between calls.
func (r *PGPropertyRepository) ActiveRules(ctx context.Context, propertyID uuid.UUID, at time.Time) ([]domain.PricingRule, error) {
	rows, err := r.db.Query(ctx, `SELECT id, property_id, name, percentage, priority, valid_from, valid_until
		FROM pricing_rules
		WHERE is_active AND (property_id IS NULL OR property_id=$1)
		  AND valid_from <= $2 AND (valid_until IS NULL OR valid_until >= $2)
		ORDER BY priority DESC, name, id`, propertyID, at)
	if err != nil {
		return nil, translate("list pricing rules", err)
	}
	defer rows.Close()

	rules := make([]domain.PricingRule, 0)
	for rows.Next() {
		var rule domain.PricingRule
		if err := rows.Scan(&rule.ID, &rule.PropertyID, &rule.Name, &rule.Percentage, &rule.Priority, &rule.ValidFrom, &rule.ValidUntil); err != nil {
			return nil, translate("scan pricing rule", err)
		}
		rules = append(rules, rule)
	}
	return rules, translate("list pricing rules", rows.Err())
}

func (r *PGPropertyRepository) ExternalRates(ctx context.Context, propertyID uuid.UUID) ([]domain.ExternalRate, error) {
	rows, err := r.db.Query(ctx, `SELECT platform, nightly_rate, currency, fetched_at FROM external_rates WHERE property_id=$1 ORDER BY platform`, propertyID)
	if err != nil {
		return nil, translate("list external rates", err)
	}
	defer rows.Close()

	rates := make([]domain.ExternalRate, 0)
	for rows.Next() {
		var rate domain.ExternalRate
		if err := rows.Scan(&rate.Platform, &rate.NightlyRate, &rate.Currency, &rate.FetchedAt); err != nil {
			return nil, translate("scan external rate", err)
		}
		rates = append(rates, rate)
	}
	return rates, translate("list external rates", rows.Err())
}

var _ PropertyRepository = (*PGPropertyRepository)(nil)
