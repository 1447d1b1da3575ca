package pricing

import (
	"strings"

	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

// FormatCurrency renders amount for display in the given ISO 4217 currency,
// with the currency symbol, thousands separators, and the currency's usual
// number of decimal places. An empty or unknown code falls back to USD.
func FormatCurrency(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}
	locale, ok := accounting.LocaleInfo[code]
	if !ok {
		locale = accounting.LocaleInfo["USD"]
	}
	format := "%v %s"
	if locale.Pre {
		format = "%s%v"
	}
	ac := accounting.Accounting{
		Symbol:    locale.ComSymbol,
		Precision: locale.FractionLength,
		Thousand:  locale.ThouSep,
		Decimal:   locale.DecSep,
		Format:    format,
	}
	return ac.FormatMoneyDecimal(amount)
}
