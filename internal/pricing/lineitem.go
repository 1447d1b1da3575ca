package pricing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method identifies how a line item's contribution is computed.
type Method string

const (
	// MethodFixedAmount charges BaseAmount regardless of the subject.
	MethodFixedAmount Method = "fixed_amount"
	// MethodAgeMultiplier charges age × Multiplier clamped to [MinAmount, MaxAmount].
	MethodAgeMultiplier Method = "age_multiplier"
	// MethodPercentage carries a raw percentage value; see ItemAmount.
	MethodPercentage Method = "percentage"
)

var (
	// ErrMissingAge is returned when an age-multiplier item is priced without a subject age.
	ErrMissingAge = errors.New("pricing: age required for age-multiplier item")
	// ErrMissingMultiplier is returned when an age-multiplier item has no multiplier configured.
	ErrMissingMultiplier = errors.New("pricing: age-multiplier item has no multiplier")
)

// LineItem describes a priceable component of an event registration as
// configured by the organizer. Optional amounts are nil when unset.
type LineItem struct {
	ID         uuid.UUID
	Name       string
	Method     Method
	BaseAmount *decimal.Decimal
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Multiplier *decimal.Decimal
	Required   bool
}

// ItemAmount computes the monetary contribution of a single line item.
//
// fixed_amount items return BaseAmount (zero when unset) scaled by qty.
// age_multiplier items return age × Multiplier, min-clamped then
// max-clamped, scaled by qty; they fail when the age or the multiplier is
// missing rather than defaulting to zero. percentage items return the raw
// percentage value scaled by qty: unlike percentage discounts, the
// percentage-of-subtotal resolution is deferred to discount application and
// never happens here. Unknown methods behave as fixed_amount.
func ItemAmount(item LineItem, age *int, qty int) (decimal.Decimal, error) {
	if qty <= 0 {
		qty = 1
	}
	scale := decimal.NewFromInt(int64(qty))

	switch item.Method {
	case MethodAgeMultiplier:
		if age == nil {
			return decimal.Zero, fmt.Errorf("%s: %w", item.Name, ErrMissingAge)
		}
		if item.Multiplier == nil {
			return decimal.Zero, fmt.Errorf("%s: %w", item.Name, ErrMissingMultiplier)
		}
		raw := decimal.NewFromInt(int64(*age)).Mul(*item.Multiplier)
		if item.MinAmount != nil && raw.LessThan(*item.MinAmount) {
			raw = *item.MinAmount
		}
		if item.MaxAmount != nil && raw.GreaterThan(*item.MaxAmount) {
			raw = *item.MaxAmount
		}
		return raw.Mul(scale), nil
	case MethodFixedAmount, MethodPercentage:
		return baseOrZero(item).Mul(scale), nil
	default:
		return baseOrZero(item).Mul(scale), nil
	}
}

func baseOrZero(item LineItem) decimal.Decimal {
	if item.BaseAmount == nil {
		return decimal.Zero
	}
	return *item.BaseAmount
}
