package domain

import (
	"time"

	"github.com/google/uuid"
)

type Property struct {
	ID          uuid.UUID
	Name        string
	NightlyRate Money
	CleaningFee Money
	Currency    string
	MaxGuests   int
	IsActive    bool
}

type Experience struct {
	ID             uuid.UUID
	Name           string
	FlatFee        *Money
	PricePerPerson *Money
	Currency       string
}

// ExperienceInstance is a scheduled, capacity-bounded run of an Experience.
type ExperienceInstance struct {
	ID               uuid.UUID
	ExperienceID     uuid.UUID
	StartsAt         time.Time
	MaxCapacity      int
	CurrentAttendees int
	FlatFeeOverride  *Money
	Experience       Experience
}

func (i ExperienceInstance) HasRoomFor(attendees int) bool {
	return i.CurrentAttendees+attendees <= i.MaxCapacity
}

// Price returns the charge for the given attendee count. An instance-level
// override beats the experience flat fee, which beats per-person pricing.
func (i ExperienceInstance) Price(attendees int) (Money, bool) {
	switch {
	case i.FlatFeeOverride != nil:
		return *i.FlatFeeOverride, true
	case i.Experience.FlatFee != nil:
		return *i.Experience.FlatFee, true
	case i.Experience.PricePerPerson != nil:
		return i.Experience.PricePerPerson.Times(int64(attendees)), true
	default:
		return 0, false
	}
}

// PricingRule takes Percentage off the running price. Higher Priority applies first.
type PricingRule struct {
	ID         uuid.UUID
	PropertyID *uuid.UUID
	Name       string
	Percentage float64
	Priority   int
	ValidFrom  time.Time
	ValidUntil *time.Time
}

// ExternalRate is a competitor platform's nightly price, shown for comparison only.
type ExternalRate struct {
	Platform    string    `json:"platform"`
	NightlyRate Money     `json:"nightly_rate"`
	Currency    string    `json:"currency"`
	FetchedAt   time.Time `json:"fetched_at"`
}
