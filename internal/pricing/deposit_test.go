package pricing

import "testing"

func TestDepositBalanceRoundTrip(t *testing.T) {
	b := DepositBalance(dec("2100"), dec("500"), dec("500"))
	if !b.DepositDue.IsZero() {
		t.Fatalf("expected deposit due 0, got %s", b.DepositDue)
	}
	if !b.BalanceDue.Equal(dec("1600")) {
		t.Fatalf("expected balance due 1600, got %s", b.BalanceDue)
	}
	if !b.DepositPaid {
		t.Fatalf("expected deposit paid")
	}
	if b.FullyPaid {
		t.Fatalf("did not expect fully paid")
	}
}

func TestDepositBalanceNothingPaid(t *testing.T) {
	b := DepositBalance(dec("2100"), dec("500"), dec("0"))
	if !b.DepositDue.Equal(dec("500")) {
		t.Fatalf("expected deposit due 500, got %s", b.DepositDue)
	}
	if !b.BalanceDue.Equal(dec("2100")) {
		t.Fatalf("expected balance due 2100, got %s", b.BalanceDue)
	}
	if b.DepositPaid || b.FullyPaid {
		t.Fatalf("expected nothing paid, got %+v", b)
	}
}

func TestDepositBalanceOverpaidFlooredAtZero(t *testing.T) {
	b := DepositBalance(dec("2100"), dec("500"), dec("2500"))
	if !b.DepositDue.IsZero() || !b.BalanceDue.IsZero() {
		t.Fatalf("expected dues floored at zero, got %+v", b)
	}
	if !b.DepositPaid || !b.FullyPaid {
		t.Fatalf("expected fully paid, got %+v", b)
	}
}

func TestStatusBoundaries(t *testing.T) {
	cases := []struct {
		total string
		paid  string
		want  PaymentStatus
	}{
		{"2100", "0", StatusUnpaid},
		{"2100", "500", StatusDepositPaid},
		{"2100", "2100", StatusFullyPaid},
		{"2100", "2500", StatusFullyPaid},
	}
	for _, tc := range cases {
		if got := Status(dec(tc.total), dec(tc.paid)); got != tc.want {
			t.Fatalf("Status(%s, %s): expected %s, got %s", tc.total, tc.paid, tc.want, got)
		}
	}
}

func TestStatusZeroTotalZeroPaidIsUnpaid(t *testing.T) {
	// The zero-paid branch is evaluated before the fully-paid comparison,
	// so 0 >= 0 never promotes an untouched registration to FULLY_PAID.
	if got := Status(dec("0"), dec("0")); got != StatusUnpaid {
		t.Fatalf("expected UNPAID, got %s", got)
	}
}
