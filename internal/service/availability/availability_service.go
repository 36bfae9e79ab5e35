package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/repository"
	"github.com/google/uuid"
)

type AvailabilityUseCase interface {
	CheckProperty(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error)
	CheckExperience(ctx context.Context, instanceID uuid.UUID, attendees int) (bool, error)
}

// AvailabilityService answers read-only availability questions. An error
// from the store is always reported, never read as "available".
type AvailabilityService struct {
	bookings    repository.BookingRepository
	experiences repository.ExperienceRepository
}

func NewAvailabilityService(bookings repository.BookingRepository, experiences repository.ExperienceRepository) *AvailabilityService {
	return &AvailabilityService{bookings: bookings, experiences: experiences}
}

func (s *AvailabilityService) CheckProperty(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	if !checkOut.After(checkIn) {
		return false, domain.ErrInvalidRange
	}
	overlap, err := s.bookings.HasOverlap(ctx, propertyID, checkIn, checkOut)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrAvailabilityCheck, err)
	}
	return !overlap, nil
}

func (s *AvailabilityService) CheckExperience(ctx context.Context, instanceID uuid.UUID, attendees int) (bool, error) {
	if attendees < 1 {
		return false, domain.NewValidationError("attendees must be at least 1")
	}
	inst, err := s.experiences.GetInstance(ctx, instanceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("experience instance %s: %w", instanceID, domain.ErrNotFound)
		}
		return false, fmt.Errorf("%w: %w", domain.ErrAvailabilityCheck, err)
	}
	return inst.HasRoomFor(attendees), nil
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)
