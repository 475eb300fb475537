package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/compare"
	"github.com/yurifrl/reembolso/pkg/models"
)

// Filter narrows the transaction list. Zero fields match everything.
type Filter struct {
	Month  int // 1-12
	Year   int
	Value  string // substring of the absolute amount with two decimals
	Text   string // substring of description or manual description
	Source models.SourceType
}

func (f Filter) Match(tx *models.Transaction) bool {
	if f.Month != 0 && int(tx.Date.Month()) != f.Month {
		return false
	}
	if f.Year != 0 && tx.Date.Year() != f.Year {
		return false
	}
	if !compare.AmountContains(tx.Amount, f.Value) {
		return false
	}
	if !compare.TextContains(f.Text, tx.Description, tx.ManualDescription) {
		return false
	}
	if f.Source != "" && tx.Source() != f.Source {
		return false
	}
	return true
}

// Apply returns the matching transactions, keeping their order.
func (f Filter) Apply(txs []*models.Transaction) []*models.Transaction {
	out := make([]*models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Selectable returns the transactions a bulk selection may include: the
// unlinked ones.
func Selectable(txs []*models.Transaction) []*models.Transaction {
	out := make([]*models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.IsLinked() {
			out = append(out, tx)
		}
	}
	return out
}

// SelectionSum adds the signed amounts of the selected transactions. Ids not
// present in txs are ignored and duplicates count once.
func SelectionSum(txs []*models.Transaction, selected []string) decimal.Decimal {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	total := decimal.Zero
	for _, tx := range txs {
		if want[tx.ID] {
			total = total.Add(tx.Amount)
			delete(want, tx.ID)
		}
	}
	return total
}
