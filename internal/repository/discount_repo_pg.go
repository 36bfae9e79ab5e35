package repository

import (
	"context"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/google/uuid"
)

type DiscountRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.DiscountCode, error)
	IncrementUsage(ctx context.Context, code string) (bool, error)
}

type PGDiscountRepository struct {
	db DB
}

func NewDiscountRepository(db DB) DiscountRepository {
	return &PGDiscountRepository{db: db}
}

func (r *PGDiscountRepository) GetByCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	var (
		d             domain.DiscountCode
		typ, scope    string
		minimum       int64
		maximum       *int64
		applicableIDs []uuid.UUID
	)
	err := r.db.QueryRow(ctx, `SELECT code, discount_type, value, valid_from, valid_until, usage_limit, used_count,
			minimum_amount, maximum_discount, applies_to, applicable_ids, first_booking_only, is_active
		FROM discount_codes WHERE code=upper($1)`, code).
		Scan(&d.Code, &typ, &d.Value, &d.ValidFrom, &d.ValidUntil, &d.UsageLimit, &d.UsedCount,
			&minimum, &maximum, &scope, &applicableIDs, &d.FirstBookingOnly, &d.IsActive)
	if err != nil {
		return nil, translate("get discount code", err)
	}
	d.Type = domain.DiscountType(typ)
	d.AppliesTo = domain.DiscountScope(scope)
	d.MinimumAmount = domain.Money(minimum)
	d.MaximumDiscount = moneyPtr(maximum)
	d.ApplicableIDs = applicableIDs
	return &d, nil
}

// IncrementUsage bumps used_count unless the limit is already reached. It
// reports false when the code had no uses left.
func (r *PGDiscountRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE discount_codes SET used_count = used_count + 1, updated_at = now()
		WHERE code=upper($1) AND (usage_limit IS NULL OR used_count < usage_limit)`, code)
	if err != nil {
		return false, translate("increment discount usage", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ DiscountRepository = (*PGDiscountRepository)(nil)
