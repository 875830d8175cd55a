package domain

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CentPlaces is the number of decimal places every monetary value is kept at.
const CentPlaces = 2

// DefaultStartingCash is the balance credited to a newly registered account.
var DefaultStartingCash = decimal.RequireFromString("10000.00")

// RoundCents rounds d to whole cents, half away from zero. Every money
// computation in the ledger goes through this function so that the same
// policy applies to costs, balances and valuations.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// Cost returns the total price of quantity shares at price, rounded to cents.
func Cost(price decimal.Decimal, quantity int64) decimal.Decimal {
	return RoundCents(price.Mul(decimal.NewFromInt(quantity)))
}

// FormatUSD renders d as a US dollar amount, e.g. "$1,234.56".
func FormatUSD(d decimal.Decimal) string {
	cents := RoundCents(d).Shift(CentPlaces)
	if cents.BigInt().IsInt64() {
		return money.New(cents.IntPart(), money.USD).Display()
	}
	return formatLargeUSD(RoundCents(d))
}

// formatLargeUSD groups amounts whose cents overflow int64.
func formatLargeUSD(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(CentPlaces), ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}
