// Package invoicing holds the garage financial lifecycle: quotes (devis),
// invoices (factures) issued from accepted quotes, and credit notes (avoirs)
// that reverse invoices when a quote is revised after invoicing.
package invoicing

import (
	"strings"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places kept on every persisted monetary figure
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// LineItem is one priced service or part on a quote
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Total returns the exact quantity * unit price; rounding happens on the subtotal
func (l LineItem) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Validate checks a single line item
func (l LineItem) Validate() error {
	if strings.TrimSpace(l.Description) == "" {
		return shared.NewValidationError("Line item description is required")
	}
	if !l.Quantity.IsPositive() {
		return shared.NewValidationError("Line item quantity must be positive")
	}
	if l.UnitPrice.IsNegative() {
		return shared.NewValidationError("Line item unit price cannot be negative")
	}
	return nil
}

// Pricing is the caller-supplied input to the totals calculation
type Pricing struct {
	LineItems    []LineItem
	LaborCost    decimal.Decimal
	TaxRate      decimal.Decimal // percent, 0..100
	DiscountRate decimal.Decimal // percent, 0..100, applied to the post-tax total
}

// Validate rejects pricing that cannot produce a valid quote
func (p Pricing) Validate() error {
	if len(p.LineItems) == 0 {
		return shared.NewValidationError("At least one line item is required")
	}
	for _, item := range p.LineItems {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	if p.LaborCost.IsNegative() {
		return shared.NewValidationError("Labor cost cannot be negative")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(hundred) {
		return shared.NewValidationError("Tax rate must be between 0 and 100")
	}
	if p.DiscountRate.IsNegative() || p.DiscountRate.GreaterThan(hundred) {
		return shared.NewValidationError("Discount rate must be between 0 and 100")
	}
	return nil
}

// Totals holds the derived figures of a quote or invoice
type Totals struct {
	ServicesSubtotal  decimal.Decimal `json:"services_subtotal"`
	PreTaxTotal       decimal.Decimal `json:"pre_tax_total"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	PostTaxTotal      decimal.Decimal `json:"post_tax_total"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	FinalPayableTotal decimal.Decimal `json:"final_payable_total"`
}

// CalculateTotals derives all totals from the pricing input.
// The result depends only on its input: the same input always yields the same figures.
//
//	servicesSubtotal  = round2(sum(quantity * unitPrice))
//	preTaxTotal       = round2(sum(quantity * unitPrice) + laborCost)
//	taxAmount         = round2(preTaxTotal * taxRate / 100)
//	postTaxTotal      = preTaxTotal + taxAmount
//	discountAmount    = round2(postTaxTotal * discountRate / 100)
//	finalPayableTotal = postTaxTotal - discountAmount
func CalculateTotals(p Pricing) Totals {
	exact := decimal.Zero
	for _, item := range p.LineItems {
		exact = exact.Add(item.Total())
	}

	subtotal := roundMoney(exact)
	preTax := roundMoney(exact.Add(p.LaborCost))
	tax := percentOf(preTax, p.TaxRate)
	postTax := preTax.Add(tax)
	discount := percentOf(postTax, p.DiscountRate)

	return Totals{
		ServicesSubtotal:  subtotal,
		PreTaxTotal:       preTax,
		TaxAmount:         tax,
		PostTaxTotal:      postTax,
		DiscountAmount:    discount,
		FinalPayableTotal: postTax.Sub(discount),
	}
}

// percentOf never loses precision before rounding: dividing by 100 always terminates.
func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	return roundMoney(base.Mul(rate).Div(hundred))
}

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
