package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/reembolso/pkg/models"
)

var (
	// ErrLinked is returned when an operation needs an unlinked transaction.
	ErrLinked = errors.New("transaction is linked to an expense")
	// ErrNotLinked is returned when unlinking a transaction that has no link.
	ErrNotLinked = errors.New("transaction is not linked")
	// ErrLockedByOtherCompany is returned when a transaction is linked to an
	// expense owned by a company other than the active one.
	ErrLockedByOtherCompany = errors.New("transaction is locked by another company")
	// ErrUnknownField is returned for manual fields that do not exist.
	ErrUnknownField = errors.New("unknown manual field")
)

// Repository is the persistence the matcher needs. Atomic runs fn against a
// repository whose writes commit together or not at all.
type Repository interface {
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, e *models.Expense) error
	Atomic(ctx context.Context, fn func(Repository) error) error
}

// ManualField names a user editable overlay field of a transaction.
type ManualField string

const (
	FieldDescription ManualField = "description"
	FieldReport      ManualField = "report"
	FieldNote        ManualField = "note"
)

type Matcher struct {
	repo   Repository
	logger *log.Logger
	now    func() time.Time
}

func NewMatcher(repo Repository, logger *log.Logger) *Matcher {
	return &Matcher{repo: repo, logger: logger, now: time.Now}
}

// OwnerCompany is the company a linked transaction belongs to: the overlay
// company id, else the company of the linked expense.
func OwnerCompany(tx *models.Transaction, linked *models.Expense) string {
	if tx.ManualCompanyID != "" {
		return tx.ManualCompanyID
	}
	if linked != nil {
		return linked.CompanyID
	}
	return ""
}

// Locked reports whether tx is linked to another company than activeCompanyID.
func Locked(tx *models.Transaction, linked *models.Expense, activeCompanyID string) bool {
	owner := OwnerCompany(tx, linked)
	return tx.IsLinked() && owner != "" && owner != activeCompanyID
}

func (m *Matcher) locked(ctx context.Context, r Repository, tx *models.Transaction, activeCompanyID string) bool {
	if !tx.IsLinked() {
		return false
	}
	var linked *models.Expense
	if tx.ManualCompanyID == "" {
		// missing expenses just leave the row unlocked
		linked, _ = r.GetExpense(ctx, tx.LinkedExpenseID)
	}
	return Locked(tx, linked, activeCompanyID)
}

// Link ties a transaction to an expense. The transaction gets the expense's
// company, report and description as overlay fields (company falls back to
// activeCompanyID, description to the current overlay) and the expense is
// marked paid with a back reference. All writes commit together. Relinking a
// transaction releases its previous expense; an expense already reconciled
// with another transaction is refused with ErrLinked.
func (m *Matcher) Link(ctx context.Context, txID, expenseID, activeCompanyID string) (*models.Transaction, error) {
	var linked *models.Transaction
	err := m.repo.Atomic(ctx, func(r Repository) error {
		tx, err := r.GetTransaction(ctx, txID)
		if err != nil {
			return fmt.Errorf("failed to load transaction %s: %w", txID, err)
		}
		if m.locked(ctx, r, tx, activeCompanyID) {
			return ErrLockedByOtherCompany
		}
		exp, err := r.GetExpense(ctx, expenseID)
		if err != nil {
			return fmt.Errorf("failed to load expense %s: %w", expenseID, err)
		}

		if exp.ReconciledTransactionID != "" && exp.ReconciledTransactionID != tx.ID {
			return fmt.Errorf("expense %s is reconciled with %s: %w", exp.ID, exp.ReconciledTransactionID, ErrLinked)
		}

		if tx.IsLinked() && tx.LinkedExpenseID != exp.ID {
			m.logger.Debug("relinking transaction", "transaction", tx.ID, "from", tx.LinkedExpenseID, "to", exp.ID)
			if err := m.releaseExpense(ctx, r, tx.LinkedExpenseID, tx.ID); err != nil {
				return fmt.Errorf("failed to release expense %s: %w", tx.LinkedExpenseID, err)
			}
		}

		tx.LinkedExpenseID = exp.ID
		tx.ManualCompanyID = exp.CompanyID
		if tx.ManualCompanyID == "" {
			tx.ManualCompanyID = activeCompanyID
		}
		tx.ManualReportID = exp.ReportID
		if exp.Description != "" {
			tx.ManualDescription = exp.Description
		}

		now := m.now()
		exp.IsPaid = true
		exp.ReconciledTransactionID = tx.ID
		exp.ReconciledDate = &now

		if err := r.UpdateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		if err := r.UpdateExpense(ctx, exp); err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		linked = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("linked transaction", "transaction", txID, "expense", expenseID, "company", linked.ManualCompanyID)
	return linked, nil
}

// Unlink clears a transaction's link and overlay fields. Releasing the
// expense (paid flag, back reference, reconciled date) is best effort: a
// failure there is logged and the unlink still stands.
func (m *Matcher) Unlink(ctx context.Context, txID, activeCompanyID string) (*models.Transaction, error) {
	tx, err := m.repo.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", txID, err)
	}
	if !tx.IsLinked() {
		return nil, ErrNotLinked
	}
	if m.locked(ctx, m.repo, tx, activeCompanyID) {
		return nil, ErrLockedByOtherCompany
	}

	expenseID := tx.LinkedExpenseID
	tx.LinkedExpenseID = ""
	tx.ManualCompanyID = ""
	tx.ManualReportID = ""
	tx.ManualDescription = ""
	if err := m.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	if err := m.releaseExpense(ctx, m.repo, expenseID, tx.ID); err != nil {
		m.logger.Warn("expense not released", "expense", expenseID, "error", err)
	}

	m.logger.Info("unlinked transaction", "transaction", txID, "expense", expenseID)
	return tx, nil
}

// releaseExpense marks an expense unpaid, unless it is reconciled with a
// transaction other than txID. A missing expense has nothing to release.
func (m *Matcher) releaseExpense(ctx context.Context, r Repository, expenseID, txID string) error {
	exp, err := r.GetExpense(ctx, expenseID)
	if err != nil {
		m.logger.Debug("expense to release not found", "expense", expenseID, "error", err)
		return nil
	}
	if exp.ReconciledTransactionID != "" && exp.ReconciledTransactionID != txID {
		return nil
	}
	exp.IsPaid = false
	exp.ReconciledTransactionID = ""
	exp.ReconciledDate = nil
	return r.UpdateExpense(ctx, exp)
}

// EditManualField sets one overlay field. Rows locked by another company
// cannot be edited.
func (m *Matcher) EditManualField(ctx context.Context, txID string, field ManualField, value, activeCompanyID string) (*models.Transaction, error) {
	tx, err := m.repo.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", txID, err)
	}
	if m.locked(ctx, m.repo, tx, activeCompanyID) {
		return nil, ErrLockedByOtherCompany
	}

	switch field {
	case FieldDescription:
		tx.ManualDescription = value
	case FieldReport:
		tx.ManualReportID = value
	case FieldNote:
		tx.ManualNote = value
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if err := m.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	m.logger.Debug("edited manual field", "transaction", txID, "field", field)
	return tx, nil
}
