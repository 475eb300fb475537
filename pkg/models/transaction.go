package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceType tells where a statement line came from.
type SourceType string

const (
	SourceBank SourceType = "bank"
	SourceCard SourceType = "card"
)

// memoLeak is the closing tag some OFX exporters leave inside MEMO text.
const memoLeak = "</MEMO>"

// Transaction is a bank or card movement imported from a statement.
// Negative amounts are debits (money out), positive amounts are credits.
type Transaction struct {
	ID          string
	ExternalID  string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	SourceType  SourceType

	ManualDescription string
	ManualNote        string
	ManualReportID    string
	ManualCompanyID   string

	// LinkedExpenseID is empty while the transaction is unreconciled.
	LinkedExpenseID string
	ImportedAt      time.Time
}

// IsLinked reports whether the transaction is reconciled against an expense.
func (t *Transaction) IsLinked() bool {
	return t.LinkedExpenseID != ""
}

// IsCredit reports whether money came in.
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// DisplayDescription is the source description without leaked OFX markup.
func (t *Transaction) DisplayDescription() string {
	return strings.TrimSpace(strings.ReplaceAll(t.Description, memoLeak, ""))
}

// Source defaults missing source types to bank, as older imports had none.
func (t *Transaction) Source() SourceType {
	if t.SourceType == "" {
		return SourceBank
	}
	return t.SourceType
}
