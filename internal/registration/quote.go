package registration

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashworth-collective/backend-club/internal/event"
	"github.com/ashworth-collective/backend-club/internal/pricing"
)

// ErrRequiredItem is returned when a required line item cannot be priced.
// Optional items that fail are skipped instead.
var ErrRequiredItem = errors.New("registration: required line item cannot be priced")

// Quote is the fully priced view of a registration before persistence.
type Quote struct {
	Age *int
	// AgeNote carries the parse failure when a date of birth was supplied
	// but no age could be derived from it.
	AgeNote string
	Items   []pricing.CalculatedItem
	Skipped []SkippedItem
	Totals  pricing.Totals
	Balance pricing.Balance
	Status  pricing.PaymentStatus
}

// SkippedItem records an optional line item left out of a quote.
type SkippedItem struct {
	Name   string
	Reason string
}

// BuildQuote prices every line item definition for one member and resolves
// the discount set through the totals engine. Age is computed against the
// event start so a registration made months ahead still pays the rate the
// member will be at the event.
func BuildQuote(defs []event.LineItem, dateOfBirth string, eventStart time.Time, discounts []pricing.Discount, depositRequired decimal.Decimal) (Quote, error) {
	var age *int
	var ageNote string
	if dateOfBirth != "" {
		dob, err := pricing.ParseDate(dateOfBirth)
		if err != nil {
			ageNote = err.Error()
		} else {
			years := pricing.Age(dob, eventStart)
			age = &years
		}
	}

	items := make([]pricing.CalculatedItem, 0, len(defs))
	var skipped []SkippedItem
	for _, def := range defs {
		li := def.ToPricing()
		amount, err := pricing.ItemAmount(li, age, 1)
		if err != nil {
			if def.Required {
				return Quote{}, fmt.Errorf("%w: %s: %v", ErrRequiredItem, def.Name, err)
			}
			skipped = append(skipped, SkippedItem{Name: def.Name, Reason: err.Error()})
			continue
		}
		items = append(items, pricing.CalculatedItem{
			LineItemID: li.ID,
			Name:       def.Name,
			Amount:     amount,
			UserAge:    age,
		})
	}

	totals := pricing.RegistrationTotal(items, discounts)
	balance := pricing.DepositBalance(totals.Total, depositRequired, decimal.Zero)
	status := pricing.Status(totals.Total, decimal.Zero)
	return Quote{
		Age:     age,
		AgeNote: ageNote,
		Items:   items,
		Skipped: skipped,
		Totals:  totals,
		Balance: balance,
		Status:  status,
	}, nil
}

// discountAmounts slices the resolved per-discount amounts out of a totals
// breakdown (items come first, discounts after, in input order).
func discountAmounts(totals pricing.Totals, itemCount int) []decimal.Decimal {
	entries := totals.Breakdown[itemCount:]
	amounts := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		amounts[i] = e.Amount
	}
	return amounts
}
