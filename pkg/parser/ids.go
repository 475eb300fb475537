package parser

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// generateTransactionID derives a stable id from what a statement line says,
// for formats that carry no native transaction id. seq disambiguates
// identical lines within the same file.
func generateTransactionID(date time.Time, payee string, amount decimal.Decimal, seq int) string {
	cleanPayee := strings.ToLower(strings.TrimSpace(payee))
	input := fmt.Sprintf("%s-%s-%s-%d", date.Format("2006-01-02"), cleanPayee, amount.StringFixed(2), seq)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash)[:16]
}

// occurrences numbers repeated (date, payee, amount) keys in file order.
type occurrences map[string]int

func (o occurrences) next(date time.Time, payee string, amount decimal.Decimal) int {
	key := fmt.Sprintf("%s|%s|%s", date.Format("2006-01-02"), strings.ToLower(strings.TrimSpace(payee)), amount.StringFixed(2))
	n := o[key]
	o[key] = n + 1
	return n
}

// cardInvoiceID is the composite id used for card invoice CSV rows:
// csv-{epochMillis(date)}-{abs(amount)}-{rowIndex}.
func cardInvoiceID(date time.Time, amount decimal.Decimal, row int) string {
	return fmt.Sprintf("csv-%d-%s-%d", date.UnixMilli(), amount.Abs().String(), row)
}
