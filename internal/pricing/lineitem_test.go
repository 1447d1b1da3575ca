package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func intPtr(v int) *int { return &v }

func ageBandItem() LineItem {
	return LineItem{
		Name:       "Annual dues",
		Method:     MethodAgeMultiplier,
		Multiplier: decPtr("60"),
		MinAmount:  decPtr("1800"),
		MaxAmount:  decPtr("3600"),
		Required:   true,
	}
}

func TestItemAmountFixedScaling(t *testing.T) {
	item := LineItem{Name: "Supplement", Method: MethodFixedAmount, BaseAmount: decPtr("100")}
	amount, err := ItemAmount(item, nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amount.Equal(dec("300")) {
		t.Fatalf("expected 300, got %s", amount)
	}
}

func TestItemAmountFixedMissingBaseDefaultsZero(t *testing.T) {
	amount, err := ItemAmount(LineItem{Name: "Empty", Method: MethodFixedAmount}, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amount.IsZero() {
		t.Fatalf("expected 0, got %s", amount)
	}
}

func TestItemAmountAgeMultiplier(t *testing.T) {
	cases := []struct {
		name string
		age  int
		want string
	}{
		{"clamp low", 20, "1800"},
		{"mid range", 35, "2100"},
		{"clamp high", 70, "3600"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount, err := ItemAmount(ageBandItem(), intPtr(tc.age), 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !amount.Equal(dec(tc.want)) {
				t.Fatalf("age %d: expected %s, got %s", tc.age, tc.want, amount)
			}
		})
	}
}

func TestItemAmountAgeMultiplierMissingAge(t *testing.T) {
	_, err := ItemAmount(ageBandItem(), nil, 1)
	if !errors.Is(err, ErrMissingAge) {
		t.Fatalf("expected ErrMissingAge, got %v", err)
	}
}

func TestItemAmountAgeMultiplierMissingMultiplier(t *testing.T) {
	item := ageBandItem()
	item.Multiplier = nil
	_, err := ItemAmount(item, intPtr(35), 1)
	if !errors.Is(err, ErrMissingMultiplier) {
		t.Fatalf("expected ErrMissingMultiplier, got %v", err)
	}
}

func TestItemAmountPercentageReturnsRawValue(t *testing.T) {
	// Percentage line items carry the raw percentage number; resolution
	// against a subtotal only happens during discount application.
	item := LineItem{Name: "Surcharge", Method: MethodPercentage, BaseAmount: decPtr("12.5")}
	amount, err := ItemAmount(item, nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amount.Equal(dec("25")) {
		t.Fatalf("expected 25, got %s", amount)
	}
}

func TestItemAmountUnknownMethodFallsBackToFixed(t *testing.T) {
	item := LineItem{Name: "Legacy", Method: Method("mystery"), BaseAmount: decPtr("40")}
	amount, err := ItemAmount(item, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amount.Equal(dec("40")) {
		t.Fatalf("expected 40, got %s", amount)
	}
}

func TestItemAmountZeroQuantityDefaultsToOne(t *testing.T) {
	item := LineItem{Name: "Supplement", Method: MethodFixedAmount, BaseAmount: decPtr("100")}
	amount, err := ItemAmount(item, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amount.Equal(dec("100")) {
		t.Fatalf("expected 100, got %s", amount)
	}
}
