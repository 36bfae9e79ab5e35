package domain

import (
	"fmt"
	"math"
)

// Money is an amount in minor currency units (paise for INR).
type Money int64

func Rupees(r int64) Money {
	return Money(r * 100)
}

func (m Money) Times(n int64) Money {
	return Money(int64(m) * n)
}

// PercentOf returns pct percent of m, rounded half-up to the minor unit.
func (m Money) PercentOf(pct float64) Money {
	bps := int64(math.Round(pct * 100))
	return Money(divRoundHalfUp(int64(m)*bps, 10_000))
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", int64(m)/100, int64(m)%100)
}

func divRoundHalfUp(n, d int64) int64 {
	if n < 0 {
		return -divRoundHalfUp(-n, d)
	}
	return (n + d/2) / d
}

type TaxRegime string

const (
	TaxIntraState TaxRegime = "intra_state"
	TaxInterState TaxRegime = "inter_state"
)

type AppliedRule struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Amount     Money   `json:"amount"`
}

type AddonLine struct {
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
	Attendees  int    `json:"attendees"`
	Amount     Money  `json:"amount"`
}

// PriceBreakdown is frozen onto a booking at creation.
type PriceBreakdown struct {
	Currency              string         `json:"currency"`
	Nights                int            `json:"nights,omitempty"`
	BasePrice             Money          `json:"base_price"`
	RuleDiscounts         []AppliedRule  `json:"rule_discounts,omitempty"`
	DiscountCode          string         `json:"discount_code,omitempty"`
	CodeDiscount          Money          `json:"code_discount"`
	DiscountAmount        Money          `json:"discount_amount"`
	CleaningFee           Money          `json:"cleaning_fee"`
	Addons                []AddonLine    `json:"addons,omitempty"`
	AddonTotal            Money          `json:"addon_total"`
	SubtotalAfterDiscount Money          `json:"subtotal_after_discount"`
	TaxRegime             TaxRegime      `json:"tax_regime"`
	TaxAmount             Money          `json:"tax_amount"`
	CGST                  Money          `json:"cgst"`
	SGST                  Money          `json:"sgst"`
	IGST                  Money          `json:"igst"`
	TotalAmountDue        Money          `json:"total_amount_due"`
	Comparisons           []ExternalRate `json:"comparisons,omitempty"`
}

// ApplyTax fills the subtotal, tax split and total from the components
// already on the breakdown.
func (p *PriceBreakdown) ApplyTax(ratePercent int64, regime TaxRegime) {
	sub := p.BasePrice + p.CleaningFee + p.AddonTotal - p.DiscountAmount
	if sub < 0 {
		sub = 0
	}
	p.SubtotalAfterDiscount = sub
	p.TaxRegime = regime
	p.TaxAmount = Money(divRoundHalfUp(int64(sub)*ratePercent, 100))
	p.CGST, p.SGST, p.IGST = 0, 0, 0
	if regime == TaxInterState {
		p.IGST = p.TaxAmount
	} else {
		p.CGST = p.TaxAmount / 2
		p.SGST = p.TaxAmount - p.CGST
	}
	p.TotalAmountDue = sub + p.TaxAmount
}
