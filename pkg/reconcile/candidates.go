package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/compare"
	"github.com/yurifrl/reembolso/pkg/models"
)

// Candidate is an expense offered when linking a transaction.
type Candidate struct {
	Expense  *models.Expense
	Distance decimal.Decimal
	Exact    bool
}

// RankCandidates lists the expenses of the active company that tx could be
// linked to, closest value first. search, when set, keeps expenses whose
// description or value contains it. Expenses reconciled with another
// transaction are left out. Nothing is linked automatically.
func RankCandidates(tx *models.Transaction, expenses []*models.Expense, activeCompanyID, search string) []Candidate {
	out := make([]Candidate, 0, len(expenses))
	for _, e := range expenses {
		if e.CompanyID != activeCompanyID {
			continue
		}
		if e.ReconciledTransactionID != "" && e.ReconciledTransactionID != tx.ID {
			continue
		}
		if !compare.TextContains(search, e.Description, e.Value.String()) {
			continue
		}
		dist := compare.Distance(e.Value, tx.Amount)
		out = append(out, Candidate{Expense: e, Distance: dist, Exact: compare.Exact(dist)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance.LessThan(out[j].Distance)
	})
	return out
}
