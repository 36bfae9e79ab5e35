package repository

import (
	"errors"
	"fmt"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation    = "23505"
	pgCheckViolation     = "23514"
	pgExclusionViolation = "23P01"

	bookingReferenceConstraint = "bookings_reference_key"
)

// translate maps driver errors onto the domain taxonomy. Anything it does not
// recognise is wrapped as a persistence failure with the original kept for logs.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation, pgCheckViolation:
			return fmt.Errorf("%s: %w", op, domain.ErrAvailabilityConflict)
		case pgUniqueViolation:
			if pgErr.ConstraintName == bookingReferenceConstraint {
				return fmt.Errorf("%s: %w", op, domain.ErrDuplicateReference)
			}
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
