package executors

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/reembolso/pkg/importer"
	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/parser"
	"github.com/yurifrl/reembolso/pkg/plan"
	"github.com/yurifrl/reembolso/pkg/service"
)

// Source fetches an account's movements from a remote ledger.
type Source interface {
	Transactions(budgetID, accountID string) ([]*models.Transaction, error)
}

type Executor struct {
	logger    *log.Logger
	processor *service.Processor
	importer  *importer.Importer
	ynab      Source
}

// New builds an executor. ynab may be nil when no plan statement reads from
// YNAB.
func New(logger *log.Logger, processor *service.Processor, imp *importer.Importer, ynab Source) *Executor {
	return &Executor{
		logger:    logger,
		processor: processor,
		importer:  imp,
		ynab:      ynab,
	}
}

// Change is what a plan statement would do, or did.
type Change struct {
	Statement string
	ToAdd     int
	InSync    int
}

// Transactions loads the records of one plan statement.
func (e *Executor) Transactions(st plan.Statement, budgetID string) ([]*models.Transaction, error) {
	switch st.Type {
	case plan.TypeYNAB:
		if e.ynab == nil {
			return nil, fmt.Errorf("statement %s: no ynab client configured", st.Name())
		}
		return e.ynab.Transactions(budgetID, st.Account)
	default:
		// no profile keeps the processor's configured one
		var profile parser.Profile
		if st.Profile != "" {
			p, err := parser.ParseProfile(st.Profile)
			if err != nil {
				return nil, fmt.Errorf("statement %s: %w", st.Name(), err)
			}
			profile = p
		}
		return e.processor.ParseFile(st.File, profile)
	}
}
