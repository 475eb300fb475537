package executors

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/plan"
	"github.com/yurifrl/reembolso/pkg/reconcile"
)

var (
	syncedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	addedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

// Plan prints, per statement, which records an import would add and which
// are already stored. Nothing is written.
func (e *Executor) Plan(ctx context.Context, w io.Writer, p *plan.Plan) ([]Change, error) {
	changes := make([]Change, 0, len(p.Statements))
	for _, st := range p.Statements {
		e.logger.Debug("planning statement", "statement", st.Name())

		txs, err := e.Transactions(st, p.YNAB.BudgetID)
		if err != nil {
			return changes, err
		}
		report, err := e.importer.Plan(ctx, txs)
		if err != nil {
			return changes, err
		}

		fmt.Fprintln(w, titleStyle.Render(st.Name()))
		PrintReport(w, report)
		changes = append(changes, Change{Statement: st.Name(), ToAdd: report.MissingCount(), InSync: report.InSyncCount()})
	}
	return changes, nil
}

// PrintReport writes one line per record, "+" for new and "=" for stored,
// followed by a summary line.
func PrintReport(w io.Writer, report *reconcile.Report) {
	for _, item := range report.Items {
		tx := item.Parsed
		line := fmt.Sprintf("%s | %-30.30s | %-24s | %s",
			tx.Date.Format("2006-01-02"), tx.DisplayDescription(), tx.ExternalID, brl.Format(tx.Amount))
		if item.Status == reconcile.Synced {
			fmt.Fprintln(w, syncedStyle.Render("= "+line))
			continue
		}
		fmt.Fprintln(w, addedStyle.Render("+ "+line))
	}

	if report.MissingCount() == 0 {
		fmt.Fprintf(w, "\nPlan: All %d transaction(s) are in sync\n", report.InSyncCount())
	} else {
		fmt.Fprintf(w, "\nPlan: %d transaction(s) will be added, %d already in sync\n", report.MissingCount(), report.InSyncCount())
	}
}
