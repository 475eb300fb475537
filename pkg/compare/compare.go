package compare

import (
	"strings"

	"github.com/shopspring/decimal"
)

// exactTolerance is half a cent: distances below it round to 0.00.
var exactTolerance = decimal.RequireFromString("0.005")

// Distance compares an expense value with a bank movement using the movement's
// absolute amount, since debits are stored negative and expenses positive.
func Distance(expenseValue, amount decimal.Decimal) decimal.Decimal {
	return expenseValue.Sub(amount.Abs()).Abs()
}

// Exact reports whether a distance rounds to zero cents.
func Exact(distance decimal.Decimal) bool {
	return distance.LessThan(exactTolerance)
}

// AmountContains matches a user typed value ("5,9", "150.00") against the
// absolute amount printed with two decimals.
func AmountContains(amount decimal.Decimal, query string) bool {
	query = strings.Replace(strings.TrimSpace(query), ",", ".", 1)
	if query == "" {
		return true
	}
	return strings.Contains(amount.Abs().StringFixed(2), query)
}

// TextContains is a case-insensitive substring match over any of fields.
func TextContains(query string, fields ...string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
