package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed_amount"
)

type DiscountScope string

const (
	ScopeAll         DiscountScope = "all"
	ScopeProperties  DiscountScope = "properties"
	ScopeExperiences DiscountScope = "experiences"
)

func (s DiscountScope) Covers(kind BookingKind) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopeProperties:
		return kind == KindProperty
	case ScopeExperiences:
		return kind == KindExperience
	default:
		return false
	}
}

type DiscountCode struct {
	Code             string
	Type             DiscountType
	Value            float64
	ValidFrom        time.Time
	ValidUntil       *time.Time
	UsageLimit       *int
	UsedCount        int
	MinimumAmount    Money
	MaximumDiscount  *Money
	AppliesTo        DiscountScope
	ApplicableIDs    []uuid.UUID
	FirstBookingOnly bool
	IsActive         bool
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type PaymentRecordStatus string

const (
	PaymentSuccessful PaymentRecordStatus = "Successful"
	PaymentFailed     PaymentRecordStatus = "Failed"
)

type Payment struct {
	ID               uuid.UUID
	BookingID        uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Amount           Money
	Currency         string
	Method           string
	Status           PaymentRecordStatus
	CreatedAt        time.Time
}

// PaymentOrder is the gateway-side reservation of a booking's total.
type PaymentOrder struct {
	OrderID   string
	BookingID uuid.UUID
	Amount    Money
	Currency  string
	CreatedAt time.Time
}

type PaymentFailure struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	OrderID   string
	Code      string
	Message   string
	Cancelled bool
	CreatedAt time.Time
}

type AuditEvent struct {
	Identifier string
	Action     string
	Detail     string
	CreatedAt  time.Time
}
