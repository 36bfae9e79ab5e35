package discount

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/repository"
	"github.com/google/uuid"
)

var ErrUsageExhausted = errors.New("discount code has no uses left")

const (
	MsgInvalid       = "Invalid discount code"
	MsgNotStarted    = "This discount code is not active yet"
	MsgExpired       = "This discount code has expired"
	MsgExhausted     = "This discount code has reached its usage limit"
	MsgNotApplicable = "This discount code does not apply to this booking"
	MsgEmailRequired = "An email address is required to use this discount code"
	MsgNotEligible   = "Not eligible: this code is only valid on a first booking"
)

type DiscountUseCase interface {
	Validate(ctx context.Context, req Request) (Result, error)
	Use(ctx context.Context, code string) error
}

type Request struct {
	Code      string
	Kind      domain.BookingKind
	ItemID    uuid.UUID
	Candidate domain.Money
	// Email is required for first-booking-only codes.
	Email string
}

type Result struct {
	Valid   bool         `json:"is_valid"`
	Code    string       `json:"code,omitempty"`
	Amount  domain.Money `json:"discount_amount"`
	Message string       `json:"error_message,omitempty"`
}

func rejected(msg string) Result {
	return Result{Message: msg}
}

type DiscountService struct {
	codes    repository.DiscountRepository
	bookings repository.BookingRepository
	now      func() time.Time
}

type DiscountServiceOption func(*DiscountService)

func WithClock(now func() time.Time) DiscountServiceOption {
	return func(s *DiscountService) {
		s.now = now
	}
}

func NewDiscountService(codes repository.DiscountRepository, bookings repository.BookingRepository, opts ...DiscountServiceOption) *DiscountService {
	s := &DiscountService{codes: codes, bookings: bookings, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate never consumes a use. A nil error with Valid=false is a business
// rejection; a non-nil error means the answer could not be determined.
func (s *DiscountService) Validate(ctx context.Context, req Request) (Result, error) {
	code := domain.NormalizeCode(req.Code)
	if code == "" {
		return rejected(MsgInvalid), nil
	}

	d, err := s.codes.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return rejected(MsgInvalid), nil
		}
		return Result{}, fmt.Errorf("load discount code: %w", err)
	}

	now := s.now()
	switch {
	case !d.IsActive:
		return rejected(MsgInvalid), nil
	case now.Before(d.ValidFrom):
		return rejected(MsgNotStarted), nil
	case d.ValidUntil != nil && now.After(*d.ValidUntil):
		return rejected(MsgExpired), nil
	case d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit:
		return rejected(MsgExhausted), nil
	case req.Candidate < d.MinimumAmount:
		return rejected(fmt.Sprintf("A minimum booking amount of ₹%s is required for this code", d.MinimumAmount)), nil
	case !d.AppliesTo.Covers(req.Kind):
		return rejected(MsgNotApplicable), nil
	case len(d.ApplicableIDs) > 0 && !slices.Contains(d.ApplicableIDs, req.ItemID):
		return rejected(MsgNotApplicable), nil
	}

	if d.FirstBookingOnly {
		if req.Email == "" {
			return rejected(MsgEmailRequired), nil
		}
		prior, err := s.bookings.CountConfirmedByEmail(ctx, req.Email)
		if err != nil {
			return Result{}, fmt.Errorf("check booking history: %w", err)
		}
		if prior > 0 {
			return rejected(MsgNotEligible), nil
		}
	}

	return Result{Valid: true, Code: d.Code, Amount: Amount(d, req.Candidate)}, nil
}

// Amount computes the discount a valid code gives on candidate. Fixed values
// are in whole currency units; the result never exceeds candidate.
func Amount(d *domain.DiscountCode, candidate domain.Money) domain.Money {
	var amount domain.Money
	switch d.Type {
	case domain.DiscountPercentage:
		amount = candidate.PercentOf(d.Value)
		if d.MaximumDiscount != nil && amount > *d.MaximumDiscount {
			amount = *d.MaximumDiscount
		}
	case domain.DiscountFixed:
		amount = domain.Money(math.Round(d.Value * 100))
	}
	if amount < 0 {
		return 0
	}
	if amount > candidate {
		return candidate
	}
	return amount
}

// Use consumes one use of code. Call it once per confirmed booking.
func (s *DiscountService) Use(ctx context.Context, code string) error {
	ok, err := s.codes.IncrementUsage(ctx, domain.NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("consume discount code: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", domain.NormalizeCode(code), ErrUsageExhausted)
	}
	return nil
}

var _ DiscountUseCase = (*DiscountService)(nil)
