package registration

import (
	"context"

	"github.com/ashworth-collective/backend-club/internal/pricing"
)

// ReceiptLine is one display row of an itemized receipt.
type ReceiptLine struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Receipt is the display-ready rendering of a registration.
type Receipt struct {
	RegistrationID string        `json:"registration_id"`
	Currency       string        `json:"currency"`
	Lines          []ReceiptLine `json:"lines"`
	Subtotal       string        `json:"subtotal"`
	DiscountTotal  string        `json:"discount_total"`
	Total          string        `json:"total"`
	AmountPaid     string        `json:"amount_paid"`
	DepositDue     string        `json:"deposit_due"`
	BalanceDue     string        `json:"balance_due"`
	Status         string        `json:"status"`
}

// Receipt renders a registration's amounts as locale-formatted strings.
func (s *Service) Receipt(ctx context.Context, registrationID string) (Receipt, error) {
	reg, err := s.Get(ctx, registrationID)
	if err != nil {
		return Receipt{}, err
	}
	return RenderReceipt(reg), nil
}

// RenderReceipt formats every amount of a registration with its currency.
func RenderReceipt(reg Registration) Receipt {
	code := reg.Currency
	lines := make([]ReceiptLine, 0, len(reg.Items)+len(reg.Discounts))
	for _, it := range reg.Items {
		lines = append(lines, ReceiptLine{Name: it.Name, Amount: pricing.FormatCurrency(it.Amount, code)})
	}
	for _, d := range reg.Discounts {
		lines = append(lines, ReceiptLine{Name: d.Name, Amount: "-" + pricing.FormatCurrency(d.ResolvedAmount, code)})
	}
	return Receipt{
		RegistrationID: reg.ID,
		Currency:       code,
		Lines:          lines,
		Subtotal:       pricing.FormatCurrency(reg.Subtotal, code),
		DiscountTotal:  pricing.FormatCurrency(reg.DiscountTotal, code),
		Total:          pricing.FormatCurrency(reg.Total, code),
		AmountPaid:     pricing.FormatCurrency(reg.AmountPaid, code),
		DepositDue:     pricing.FormatCurrency(reg.DepositDue, code),
		BalanceDue:     pricing.FormatCurrency(reg.BalanceDue, code),
		Status:         string(reg.Status),
	}
}
