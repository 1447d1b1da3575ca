package pricing

import "github.com/shopspring/decimal"

// Balance describes how a registration's total splits into an outstanding
// deposit and a remaining balance given the amount already paid.
type Balance struct {
	DepositDue  decimal.Decimal
	BalanceDue  decimal.Decimal
	DepositPaid bool
	FullyPaid   bool
}

// DepositBalance derives the outstanding deposit and balance for a
// registration. Both dues are floored at zero. Inputs are not checked for
// sign; callers supply non-negative amounts.
func DepositBalance(total, depositRequired, amountPaid decimal.Decimal) Balance {
	depositDue := depositRequired.Sub(amountPaid)
	if depositDue.IsNegative() {
		depositDue = decimal.Zero
	}
	balanceDue := total.Sub(amountPaid)
	if balanceDue.IsNegative() {
		balanceDue = decimal.Zero
	}
	return Balance{
		DepositDue:  depositDue,
		BalanceDue:  balanceDue,
		DepositPaid: amountPaid.GreaterThanOrEqual(depositRequired),
		FullyPaid:   amountPaid.GreaterThanOrEqual(total),
	}
}

// PaymentStatus classifies how much of a registration has been paid.
type PaymentStatus string

const (
	StatusUnpaid      PaymentStatus = "UNPAID"
	StatusDepositPaid PaymentStatus = "DEPOSIT_PAID"
	StatusFullyPaid   PaymentStatus = "FULLY_PAID"
)

// Status maps a total and the amount paid so far onto a payment status.
// The zero-paid check runs before the fully-paid check so a zero-total
// registration with no payments reports UNPAID, not FULLY_PAID.
func Status(total, amountPaid decimal.Decimal) PaymentStatus {
	if amountPaid.IsZero() {
		return StatusUnpaid
	}
	if amountPaid.GreaterThanOrEqual(total) {
		return StatusFullyPaid
	}
	return StatusDepositPaid
}
