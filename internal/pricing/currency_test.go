package pricing

import "testing"

func TestFormatCurrencyUSD(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"2100", "$2,100.00"},
		{"550.5", "$550.50"},
		{"0", "$0.00"},
		{"1234567.89", "$1,234,567.89"},
	}
	for _, tc := range cases {
		if got := FormatCurrency(dec(tc.amount), "USD"); got != tc.want {
			t.Fatalf("FormatCurrency(%s): expected %q, got %q", tc.amount, tc.want, got)
		}
	}
}

func TestFormatCurrencyDefaultsToUSD(t *testing.T) {
	if got := FormatCurrency(dec("2100"), ""); got != "$2,100.00" {
		t.Fatalf("expected USD default, got %q", got)
	}
	if got := FormatCurrency(dec("2100"), "NOPE"); got != "$2,100.00" {
		t.Fatalf("expected USD fallback for unknown code, got %q", got)
	}
}
