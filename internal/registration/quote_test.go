package registration

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashworth-collective/backend-club/internal/event"
	"github.com/ashworth-collective/backend-club/internal/pricing"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func eventStart() time.Time {
	return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
}

func ageBandDef() event.LineItem {
	return event.LineItem{
		ID:         "f0f4a6a4-2b39-4a6e-b1f8-3a4f5d6e7a8b",
		Name:       "Membership dues",
		Method:     pricing.MethodAgeMultiplier,
		Multiplier: decPtr("60"),
		MinAmount:  decPtr("1800"),
		MaxAmount:  decPtr("3600"),
		Required:   true,
	}
}

func TestBuildQuoteAgeAtEventStart(t *testing.T) {
	defs := []event.LineItem{ageBandDef()}
	quote, err := BuildQuote(defs, "1990-01-15", eventStart(), nil, decimal.Zero)
	if err != nil {
		t.Fatalf("BuildQuote returned error: %v", err)
	}
	if quote.Age == nil || *quote.Age != 35 {
		t.Fatalf("age = %v, want 35", quote.Age)
	}
	if len(quote.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(quote.Items))
	}
	if !quote.Items[0].Amount.Equal(dec("2100")) {
		t.Fatalf("amount = %s, want 2100", quote.Items[0].Amount)
	}
	if quote.Items[0].UserAge == nil || *quote.Items[0].UserAge != 35 {
		t.Fatalf("snapshot age = %v, want 35", quote.Items[0].UserAge)
	}
}

func TestBuildQuoteRequiredItemAborts(t *testing.T) {
	defs := []event.LineItem{ageBandDef()}
	_, err := BuildQuote(defs, "", eventStart(), nil, decimal.Zero)
	if !errors.Is(err, ErrRequiredItem) {
		t.Fatalf("expected ErrRequiredItem, got %v", err)
	}
}

func TestBuildQuoteOptionalItemSkipped(t *testing.T) {
	optional := ageBandDef()
	optional.Required = false
	optional.Name = "Optional age fee"
	defs := []event.LineItem{
		{Name: "Registration fee", Method: pricing.MethodFixedAmount, BaseAmount: decPtr("500"), Required: true},
		optional,
	}
	quote, err := BuildQuote(defs, "", eventStart(), nil, decimal.Zero)
	if err != nil {
		t.Fatalf("BuildQuote returned error: %v", err)
	}
	if len(quote.Items) != 1 {
		t.Fatalf("expected 1 priced item, got %d", len(quote.Items))
	}
	if len(quote.Skipped) != 1 || quote.Skipped[0].Name != "Optional age fee" {
		t.Fatalf("unexpected skipped set: %+v", quote.Skipped)
	}
	if !quote.Totals.Total.Equal(dec("500")) {
		t.Fatalf("total = %s, want 500", quote.Totals.Total)
	}
}

func TestBuildQuoteDiscountsAndDeposit(t *testing.T) {
	defs := []event.LineItem{
		{Name: "Registration fee", Method: pricing.MethodFixedAmount, BaseAmount: decPtr("2000"), Required: true},
	}
	discounts := []pricing.Discount{
		{Name: "Early bird", Type: pricing.DiscountPercentage, Amount: dec("10")},
	}
	quote, err := BuildQuote(defs, "1990-01-15", eventStart(), discounts, dec("500"))
	if err != nil {
		t.Fatalf("BuildQuote returned error: %v", err)
	}
	if !quote.Totals.Total.Equal(dec("1800")) {
		t.Fatalf("total = %s, want 1800", quote.Totals.Total)
	}
	if !quote.Balance.DepositDue.Equal(dec("500")) {
		t.Fatalf("deposit due = %s, want 500", quote.Balance.DepositDue)
	}
	if !quote.Balance.BalanceDue.Equal(dec("1800")) {
		t.Fatalf("balance due = %s, want 1800", quote.Balance.BalanceDue)
	}
	if quote.Status != pricing.StatusUnpaid {
		t.Fatalf("status = %s, want %s", quote.Status, pricing.StatusUnpaid)
	}

	resolved := discountAmounts(quote.Totals, len(quote.Items))
	if len(resolved) != 1 || !resolved[0].Equal(dec("200")) {
		t.Fatalf("resolved discounts = %v, want [200]", resolved)
	}
}

func TestRenderReceipt(t *testing.T) {
	age := 35
	reg := Registration{
		ID:            "9f4a1c7e-0000-0000-0000-000000000001",
		Currency:      "USD",
		Subtotal:      dec("2100"),
		DiscountTotal: dec("0"),
		Total:         dec("2100"),
		AmountPaid:    dec("500"),
		DepositDue:    dec("0"),
		BalanceDue:    dec("1600"),
		Status:        pricing.StatusDepositPaid,
		Items: []SnapshotItem{
			{Name: "Membership dues", Amount: dec("2100"), UserAge: &age},
		},
	}
	receipt := RenderReceipt(reg)
	if receipt.Total != "$2,100.00" {
		t.Fatalf("total = %q, want $2,100.00", receipt.Total)
	}
	if receipt.BalanceDue != "$1,600.00" {
		t.Fatalf("balance due = %q, want $1,600.00", receipt.BalanceDue)
	}
	if len(receipt.Lines) != 1 || receipt.Lines[0].Amount != "$2,100.00" {
		t.Fatalf("unexpected lines: %+v", receipt.Lines)
	}
	if receipt.Status != "DEPOSIT_PAID" {
		t.Fatalf("status = %q, want DEPOSIT_PAID", receipt.Status)
	}
}

func TestBuildQuoteMalformedDateOfBirth(t *testing.T) {
	defs := []event.LineItem{{
		ID:         "0b4f2c9e-5d1a-4e8b-9c3f-7a6d5e4f3a2b",
		Name:       "Registration fee",
		Method:     pricing.MethodFixedAmount,
		BaseAmount: decPtr("250"),
		Required:   true,
	}}

	quote, err := BuildQuote(defs, "15/01/1990", eventStart(), nil, decimal.Zero)
	if err != nil {
		t.Fatalf("BuildQuote returned error: %v", err)
	}
	if quote.Age != nil {
		t.Fatalf("age = %v, want nil for unparseable date", quote.Age)
	}
	if quote.AgeNote == "" {
		t.Fatal("expected the parse failure to be surfaced in AgeNote")
	}
	if !quote.Totals.Total.Equal(dec("250")) {
		t.Fatalf("total = %s, want 250", quote.Totals.Total)
	}

	noDOB, err := BuildQuote(defs, "", eventStart(), nil, decimal.Zero)
	if err != nil {
		t.Fatalf("BuildQuote returned error: %v", err)
	}
	if noDOB.AgeNote != "" {
		t.Fatalf("AgeNote = %q for an absent date of birth, want empty", noDOB.AgeNote)
	}
}
