package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType identifies how a discount's amount is interpreted.
type DiscountType string

const (
	// DiscountFixedAmount subtracts Amount directly.
	DiscountFixedAmount DiscountType = "fixed_amount"
	// DiscountPercentage subtracts Amount percent of the original subtotal.
	DiscountPercentage DiscountType = "percentage"
)

// Discount is a reduction applied to a registration total.
type Discount struct {
	Name   string
	Type   DiscountType
	Amount decimal.Decimal
}

// CalculatedItem is an immutable snapshot of one line item's resolved
// contribution to one registration. UserAge records the age used at
// calculation time for audit and display.
type CalculatedItem struct {
	LineItemID uuid.UUID
	Name       string
	Amount     decimal.Decimal
	UserAge    *int
}

// BreakdownEntry is one row of an itemized receipt.
type BreakdownEntry struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Totals aggregates a registration's priced components.
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	Total         decimal.Decimal
	Breakdown     []BreakdownEntry
}

var hundred = decimal.NewFromInt(100)

// RegistrationTotal aggregates snapshotted line item amounts and a discount
// set into subtotal, discount total, and final total.
//
// Percentage discounts are always resolved against the original subtotal,
// never a running balance: stacked discounts do not compound on each other.
// A discount with an unknown type contributes zero rather than failing the
// whole calculation. The final total is floored at zero.
func RegistrationTotal(items []CalculatedItem, discounts []Discount) Totals {
	subtotal := decimal.Zero
	breakdown := make([]BreakdownEntry, 0, len(items)+len(discounts))
	for _, it := range items {
		subtotal = subtotal.Add(it.Amount)
		breakdown = append(breakdown, BreakdownEntry{Name: it.Name, Amount: it.Amount})
	}

	discountTotal := decimal.Zero
	for _, d := range discounts {
		amount := resolveDiscount(d, subtotal)
		discountTotal = discountTotal.Add(amount)
		breakdown = append(breakdown, BreakdownEntry{Name: d.Name, Amount: amount})
	}

	total := subtotal.Sub(discountTotal)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{
		Subtotal:      subtotal,
		DiscountTotal: discountTotal,
		Total:         total,
		Breakdown:     breakdown,
	}
}

func resolveDiscount(d Discount, subtotal decimal.Decimal) decimal.Decimal {
	switch d.Type {
	case DiscountFixedAmount:
		return d.Amount
	case DiscountPercentage:
		return subtotal.Mul(d.Amount).Div(hundred).Round(2)
	default:
		// Unknown discount kinds degrade to zero on purpose: one malformed
		// entry must not block the invoice.
		return decimal.Zero
	}
}
