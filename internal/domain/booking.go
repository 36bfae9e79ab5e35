package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BookingKind string

const (
	KindProperty   BookingKind = "property"
	KindExperience BookingKind = "experience"
)

type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "Pending Payment"
	BookingStatusConfirmed      BookingStatus = "Confirmed"
	BookingStatusCheckedIn      BookingStatus = "Checked-In"
	BookingStatusCancelled      BookingStatus = "Cancelled"
	BookingStatusCompleted      BookingStatus = "Completed"
)

// HoldsInventory reports whether a booking in this status blocks dates or capacity.
func (s BookingStatus) HoldsInventory() bool {
	switch s {
	case BookingStatusPendingPayment, BookingStatusConfirmed, BookingStatusCheckedIn:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "Unpaid"
	PaymentStatusPaid          PaymentStatus = "Paid"
	PaymentStatusPartiallyPaid PaymentStatus = "Partially Paid"
	PaymentStatusFailed        PaymentStatus = "Failed"
	PaymentStatusRefunded      PaymentStatus = "Refunded"
)

type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Owner is either an authenticated user or a guest, never both.
type Owner struct {
	UserID *uuid.UUID
	Guest  *GuestContact
}

func (o Owner) valid() bool {
	return (o.UserID == nil) != (o.Guest == nil)
}

type PropertyStay struct {
	PropertyID uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
	Addons     []AddonSelection
}

type AddonSelection struct {
	InstanceID uuid.UUID `json:"instance_id" validate:"required"`
	Attendees  int       `json:"attendees"`
}

type ExperienceSlot struct {
	InstanceID uuid.UUID
	Attendees  int
}

// CapacityHold is a seat reservation on an experience instance made with a booking.
type CapacityHold struct {
	InstanceID uuid.UUID
	Attendees  int
	IsAddon    bool
}

// Booking is a tagged union on Kind: exactly one of Property or Experience is set.
type Booking struct {
	ID            uuid.UUID
	Reference     string
	Kind          BookingKind
	Owner         Owner
	Contact       GuestContact
	Property      *PropertyStay
	Experience    *ExperienceSlot
	Price         PriceBreakdown
	Status        BookingStatus
	PaymentStatus PaymentStatus
	PaymentID     *string
	AmountPaid    Money
	ConfirmedAt   *time.Time
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (b *Booking) CheckShape() error {
	if !b.Owner.valid() {
		return fmt.Errorf("booking %s: exactly one of user or guest identity must be set", b.ID)
	}
	switch b.Kind {
	case KindProperty:
		if b.Property == nil || b.Experience != nil {
			return fmt.Errorf("booking %s: property booking needs a stay and no experience slot", b.ID)
		}
	case KindExperience:
		if b.Experience == nil || b.Property != nil {
			return fmt.Errorf("booking %s: experience booking needs a slot and no stay", b.ID)
		}
	default:
		return fmt.Errorf("booking %s: unknown kind %q", b.ID, b.Kind)
	}
	return nil
}

// Holds lists the capacity this booking reserves on experience instances.
func (b *Booking) Holds() []CapacityHold {
	switch b.Kind {
	case KindExperience:
		return []CapacityHold{{InstanceID: b.Experience.InstanceID, Attendees: b.Experience.Attendees}}
	case KindProperty:
		holds := make([]CapacityHold, 0, len(b.Property.Addons))
		for _, a := range b.Property.Addons {
			holds = append(holds, CapacityHold{InstanceID: a.InstanceID, Attendees: a.Attendees, IsAddon: true})
		}
		return holds
	default:
		return nil
	}
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed && b.PaymentStatus == PaymentStatusPaid
}

func (b *Booking) IsPayable() bool {
	return b.Status == BookingStatusPendingPayment && b.PaymentStatus != PaymentStatusPaid
}
