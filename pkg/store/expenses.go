package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/models"
)

const expenseColumns = `id, user_id, company_id, report_id, cost_center, category, description,
	value, date, closing_date, status, admin_status, is_glosada, substitute_type,
	supplier_name, supplier_document, receipt_number, receipt_type,
	is_paid, reconciled_transaction_id, reconciled_date`

func (s *Store) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	return getExpense(ctx, s.db, id)
}

func getExpense(ctx context.Context, q queryable, id string) (*models.Expense, error) {
	row := q.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense %s: %w", id, err)
	}
	return e, nil
}

// ListExpenses returns expenses, newest first. A non-empty companyID limits
// the list to that company.
func (s *Store) ListExpenses(ctx context.Context, companyID string) ([]*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses`
	var args []any
	if companyID != "" {
		query += ` WHERE company_id = ?`
		args = append(args, companyID)
	}
	query += ` ORDER BY date DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertExpense inserts e or replaces the stored row with the same id. A
// missing id is generated.
func (s *Store) UpsertExpense(ctx context.Context, e *models.Expense) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			company_id = excluded.company_id,
			report_id = excluded.report_id,
			cost_center = excluded.cost_center,
			category = excluded.category,
			description = excluded.description,
			value = excluded.value,
			date = excluded.date,
			closing_date = excluded.closing_date,
			status = excluded.status,
			admin_status = excluded.admin_status,
			is_glosada = excluded.is_glosada,
			substitute_type = excluded.substitute_type,
			supplier_name = excluded.supplier_name,
			supplier_document = excluded.supplier_document,
			receipt_number = excluded.receipt_number,
			receipt_type = excluded.receipt_type,
			is_paid = excluded.is_paid,
			reconciled_transaction_id = excluded.reconciled_transaction_id,
			reconciled_date = excluded.reconciled_date`,
		expenseArgs(e)...,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert expense %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) UpdateExpense(ctx context.Context, e *models.Expense) error {
	return updateExpense(ctx, s.db, e)
}

// updateExpense writes the reconciliation side of an expense.
func updateExpense(ctx context.Context, q queryable, e *models.Expense) error {
	res, err := q.ExecContext(ctx, `UPDATE expenses SET
		is_paid = ?, reconciled_transaction_id = ?, reconciled_date = ?
		WHERE id = ?`,
		e.IsPaid, e.ReconciledTransactionID, nullUnix(e.ReconciledDate), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense %s: %w", e.ID, err)
	}
	return expectRow(res, "expense", e.ID)
}

func expenseArgs(e *models.Expense) []any {
	status := e.Status
	if status == "" {
		status = models.StatusDraft
	}
	admin := e.AdminStatus
	if admin == "" {
		admin = models.AdminPending
	}
	return []any{
		e.ID, e.UserID, e.CompanyID, e.ReportID, e.CostCenter, e.Category, e.Description,
		e.Value.String(), e.Date.Unix(), nullUnix(e.ClosingDate), string(status), string(admin),
		e.IsGlosada, string(e.SubstituteType),
		e.SupplierName, e.SupplierDocument, e.ReceiptNumber, e.ReceiptType,
		e.IsPaid, e.ReconciledTransactionID, nullUnix(e.ReconciledDate),
	}
}

func scanExpense(row scanner) (*models.Expense, error) {
	var (
		e                         models.Expense
		value, status, admin, sub string
		date                      int64
		closing, reconciled       sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.UserID, &e.CompanyID, &e.ReportID, &e.CostCenter, &e.Category, &e.Description,
		&value, &date, &closing, &status, &admin, &e.IsGlosada, &sub,
		&e.SupplierName, &e.SupplierDocument, &e.ReceiptNumber, &e.ReceiptType,
		&e.IsPaid, &e.ReconciledTransactionID, &reconciled)
	if err != nil {
		return nil, err
	}
	if e.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("bad value %q: %w", value, err)
	}
	e.Date = time.Unix(date, 0)
	e.ClosingDate = fromNullUnix(closing)
	e.ReconciledDate = fromNullUnix(reconciled)
	e.Status = models.ExpenseStatus(status)
	e.AdminStatus = models.AdminStatus(admin)
	e.SubstituteType = models.SubstituteType(sub)
	return &e, nil
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromNullUnix(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0)
	return &t
}
