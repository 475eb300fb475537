package executors

import (
	"context"
	"fmt"

	"github.com/yurifrl/reembolso/pkg/plan"
)

// Apply imports every statement of the plan in order and stops at the first
// failing one. Statements already applied stay imported.
func (e *Executor) Apply(ctx context.Context, p *plan.Plan) ([]Change, error) {
	e.logger.Debug("applying plan", "statements", len(p.Statements))

	changes := make([]Change, 0, len(p.Statements))
	for _, st := range p.Statements {
		txs, err := e.Transactions(st, p.YNAB.BudgetID)
		if err != nil {
			return changes, err
		}
		res, err := e.importer.Import(ctx, txs)
		if err != nil {
			return changes, fmt.Errorf("statement %s: %w", st.Name(), err)
		}
		e.logger.Info("applied statement", "statement", st.Name(), "inserted", res.Inserted, "skipped", res.Skipped)
		changes = append(changes, Change{Statement: st.Name(), ToAdd: res.Inserted, InSync: res.Skipped})
	}
	return changes, nil
}
