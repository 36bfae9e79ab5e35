package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/repository"
	"github.com/Domenick1991/haven/internal/service/discount"
	"github.com/google/uuid"
)

type PricingUseCase interface {
	QuoteProperty(ctx context.Context, q PropertyQuote) (*domain.PriceBreakdown, error)
	QuoteExperience(ctx context.Context, q ExperienceQuote) (*domain.PriceBreakdown, error)
}

type PropertyQuote struct {
	PropertyID   uuid.UUID
	CheckIn      time.Time
	CheckOut     time.Time
	Addons       []domain.AddonSelection
	DiscountCode string
	Email        string
}

type ExperienceQuote struct {
	InstanceID   uuid.UUID
	Attendees    int
	DiscountCode string
	Email        string
}

type Discounter interface {
	Validate(ctx context.Context, req discount.Request) (discount.Result, error)
}

type RateCache interface {
	GetExternalRates(ctx context.Context, propertyID uuid.UUID) ([]domain.ExternalRate, bool, error)
	SetExternalRates(ctx context.Context, propertyID uuid.UUID, rates []domain.ExternalRate) error
}

type PricingService struct {
	properties  repository.PropertyRepository
	experiences repository.ExperienceRepository
	discounts   Discounter
	rates       RateCache
	logger      *slog.Logger
	taxPercent  int64
	regime      domain.TaxRegime
}

type PricingServiceOption func(*PricingService)

func WithTaxRate(percent int64) PricingServiceOption {
	return func(s *PricingService) {
		s.taxPercent = percent
	}
}

// WithInterState charges IGST instead of the CGST/SGST split.
func WithInterState(inter bool) PricingServiceOption {
	return func(s *PricingService) {
		if inter {
			s.regime = domain.TaxInterState
		} else {
			s.regime = domain.TaxIntraState
		}
	}
}

func WithRateCache(rates RateCache) PricingServiceOption {
	return func(s *PricingService) {
		s.rates = rates
	}
}

func WithLogger(logger *slog.Logger) PricingServiceOption {
	return func(s *PricingService) {
		s.logger = logger
	}
}

func NewPricingService(
	properties repository.PropertyRepository,
	experiences repository.ExperienceRepository,
	discounts Discounter,
	opts ...PricingServiceOption,
) *PricingService {
	s := &PricingService{
		properties:  properties,
		experiences: experiences,
		discounts:   discounts,
		logger:      slog.Default(),
		taxPercent:  18,
		regime:      domain.TaxIntraState,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Nights counts started days between check-in and check-out.
func Nights(checkIn, checkOut time.Time) (int, error) {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0, domain.ErrInvalidRange
	}
	day := 24 * time.Hour
	nights := int(d / day)
	if d%day != 0 {
		nights++
	}
	return nights, nil
}

func (s *PricingService) QuoteProperty(ctx context.Context, q PropertyQuote) (*domain.PriceBreakdown, error) {
	nights, err := Nights(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}

	property, err := s.properties.GetByID(ctx, q.PropertyID)
	if err != nil {
		return nil, lookupErr("property", q.PropertyID, err)
	}

	rules, err := s.properties.ActiveRules(ctx, q.PropertyID, q.CheckIn)
	if err != nil {
		return nil, fmt.Errorf("%w: pricing rules: %w", domain.ErrPriceCalculation, err)
	}

	p := &domain.PriceBreakdown{
		Currency:    property.Currency,
		Nights:      nights,
		BasePrice:   property.NightlyRate.Times(int64(nights)),
		CleaningFee: property.CleaningFee,
	}

	running := p.BasePrice
	for _, rule := range rules {
		off := running.PercentOf(rule.Percentage)
		running -= off
		p.RuleDiscounts = append(p.RuleDiscounts, domain.AppliedRule{Name: rule.Name, Percentage: rule.Percentage, Amount: off})
	}
	ruleTotal := p.BasePrice - running

	for _, sel := range q.Addons {
		line, err := s.addonLine(ctx, sel, property.Currency)
		if err != nil {
			return nil, err
		}
		p.Addons = append(p.Addons, line)
		p.AddonTotal += line.Amount
	}

	candidate := running + p.CleaningFee + p.AddonTotal
	code, err := s.codeDiscount(ctx, q.DiscountCode, domain.KindProperty, q.PropertyID, candidate, q.Email)
	if err != nil {
		return nil, err
	}
	p.DiscountCode = code.Code
	p.CodeDiscount = code.Amount
	p.DiscountAmount = ruleTotal + code.Amount
	p.ApplyTax(s.taxPercent, s.regime)

	p.Comparisons = s.comparisons(ctx, q.PropertyID)
	return p, nil
}

func (s *PricingService) QuoteExperience(ctx context.Context, q ExperienceQuote) (*domain.PriceBreakdown, error) {
	if q.Attendees < 1 {
		return nil, domain.NewValidationError("attendees must be at least 1")
	}
	inst, err := s.experiences.GetInstance(ctx, q.InstanceID)
	if err != nil {
		return nil, lookupErr("experience instance", q.InstanceID, err)
	}
	base, ok := inst.Price(q.Attendees)
	if !ok {
		return nil, fmt.Errorf("%w: experience %s has no price", domain.ErrPriceCalculation, inst.ExperienceID)
	}

	p := &domain.PriceBreakdown{Currency: inst.Experience.Currency, BasePrice: base}
	code, err := s.codeDiscount(ctx, q.DiscountCode, domain.KindExperience, inst.ExperienceID, base, q.Email)
	if err != nil {
		return nil, err
	}
	p.DiscountCode = code.Code
	p.CodeDiscount = code.Amount
	p.DiscountAmount = code.Amount
	p.ApplyTax(s.taxPercent, s.regime)
	return p, nil
}

func (s *PricingService) addonLine(ctx context.Context, sel domain.AddonSelection, currency string) (domain.AddonLine, error) {
	if sel.Attendees < 1 {
		return domain.AddonLine{}, domain.NewValidationError("add-on attendees must be at least 1")
	}
	inst, err := s.experiences.GetInstance(ctx, sel.InstanceID)
	if err != nil {
		return domain.AddonLine{}, lookupErr("add-on instance", sel.InstanceID, err)
	}
	amount, ok := inst.Price(sel.Attendees)
	if !ok {
		return domain.AddonLine{}, fmt.Errorf("%w: add-on %s has no price", domain.ErrPriceCalculation, sel.InstanceID)
	}
	if inst.Experience.Currency != currency {
		return domain.AddonLine{}, fmt.Errorf("%w: add-on %s priced in %s, stay in %s",
			domain.ErrPriceCalculation, sel.InstanceID, inst.Experience.Currency, currency)
	}
	return domain.AddonLine{
		InstanceID: sel.InstanceID.String(),
		Name:       inst.Experience.Name,
		Attendees:  sel.Attendees,
		Amount:     amount,
	}, nil
}

func (s *PricingService) codeDiscount(ctx context.Context, code string, kind domain.BookingKind, itemID uuid.UUID, candidate domain.Money, email string) (discount.Result, error) {
	if code == "" {
		return discount.Result{}, nil
	}
	if s.discounts == nil {
		return discount.Result{}, fmt.Errorf("%w: discounts unavailable", domain.ErrPriceCalculation)
	}
	res, err := s.discounts.Validate(ctx, discount.Request{Code: code, Kind: kind, ItemID: itemID, Candidate: candidate, Email: email})
	if err != nil {
		return discount.Result{}, fmt.Errorf("%w: discount code: %w", domain.ErrPriceCalculation, err)
	}
	if !res.Valid {
		return discount.Result{}, domain.NewValidationError(res.Message)
	}
	return res, nil
}

// comparisons is advisory. Failures are logged and the quote carries on
// without them.
func (s *PricingService) comparisons(ctx context.Context, propertyID uuid.UUID) []domain.ExternalRate {
	if s.rates != nil {
		rates, ok, err := s.rates.GetExternalRates(ctx, propertyID)
		if err != nil {
			s.logger.WarnContext(ctx, "external rate cache read failed", "property_id", propertyID, "error", err)
		} else if ok {
			return rates
		}
	}

	rates, err := s.properties.ExternalRates(ctx, propertyID)
	if err != nil {
		s.logger.WarnContext(ctx, "external rates unavailable", "property_id", propertyID, "error", err)
		return nil
	}
	if s.rates != nil {
		if err := s.rates.SetExternalRates(ctx, propertyID, rates); err != nil {
			s.logger.WarnContext(ctx, "external rate cache write failed", "property_id", propertyID, "error", err)
		}
	}
	if len(rates) == 0 {
		return nil
	}
	return rates
}

func lookupErr(what string, id uuid.UUID, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("%w: %s %s: %w", domain.ErrPriceCalculation, what, id, err)
}

var _ PricingUseCase = (*PricingService)(nil)
