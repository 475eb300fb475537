// Package reconcile holds the reusable logic that ties imported bank and card
// movements to expense items: import dedup reports, manual linking and candidate
// ranking, plus list filters and selection totals. It has no UI or transport
// concerns so the CLI and the HTTP server share it.
package reconcile

import (
	"github.com/yurifrl/reembolso/pkg/models"
)

// Status indicates the import result for a parsed transaction.
//
//   - Synced: its external id is already stored (or repeats earlier in the batch).
//   - ToAdd:  new, will be inserted.
type Status int

const (
	Synced Status = iota
	ToAdd
)

func (s Status) String() string {
	if s == Synced {
		return "synced"
	}
	return "to_add"
}

// Entry is one parsed transaction and what importing it would do.
type Entry struct {
	Parsed *models.Transaction
	Status Status
}

// Report is the dry-run view of an import.
type Report struct {
	Items []Entry
	toAdd []*models.Transaction
}

// BuildImportReport marks every parsed transaction whose external id is in
// existing, or already appeared earlier in parsed, as Synced.
func BuildImportReport(parsed []*models.Transaction, existing map[string]bool) *Report {
	items := make([]Entry, 0, len(parsed))
	toAdd := make([]*models.Transaction, 0, len(parsed))
	seen := make(map[string]bool, len(parsed))

	for _, tx := range parsed {
		status := ToAdd
		if existing[tx.ExternalID] || seen[tx.ExternalID] {
			status = Synced
		}
		seen[tx.ExternalID] = true

		items = append(items, Entry{Parsed: tx, Status: status})
		if status == ToAdd {
			toAdd = append(toAdd, tx)
		}
	}

	return &Report{Items: items, toAdd: toAdd}
}

// InSyncCount returns how many parsed transactions are already stored.
func (r *Report) InSyncCount() int {
	return len(r.Items) - len(r.toAdd)
}

// MissingCount returns how many parsed transactions are new.
func (r *Report) MissingCount() int {
	return len(r.toAdd)
}

// TransactionsToAdd returns the new transactions in file order.
func (r *Report) TransactionsToAdd() []*models.Transaction {
	return r.toAdd
}
