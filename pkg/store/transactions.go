package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/reconcile"
)

const transactionColumns = `id, external_id, date, amount, description, source_type,
	manual_description, manual_note, manual_report_id, manual_company_id,
	linked_expense_id, imported_at`

// ExistingExternalIDs returns the set of external ids already stored.
func (s *Store) ExistingExternalIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT external_id FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query external ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan external id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// InsertTransaction stores t unless its external id is already present, and
// reports whether a row was written. Missing ids and import times are filled.
func (s *Store) InsertTransaction(ctx context.Context, t *models.Transaction) (bool, error) {
	if t.ExternalID == "" {
		return false, errors.New("transaction has no external id")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ImportedAt.IsZero() {
		t.ImportedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ExternalID, t.Date.Unix(), t.Amount.String(), t.Description, string(t.Source()),
		t.ManualDescription, t.ManualNote, t.ManualReportID, t.ManualCompanyID,
		t.LinkedExpenseID, t.ImportedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction %s: %w", t.ExternalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return getTransaction(ctx, s.db, id)
}

func getTransaction(ctx context.Context, q queryable, id string) (*models.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return t, nil
}

// ListTransactions returns every transaction, newest first.
func (s *Store) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions
		ORDER BY date DESC, external_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	return updateTransaction(ctx, s.db, t)
}

// updateTransaction writes the mutable fields: overlay fields and the link.
func updateTransaction(ctx context.Context, q queryable, t *models.Transaction) error {
	res, err := q.ExecContext(ctx, `UPDATE transactions SET
		manual_description = ?, manual_note = ?, manual_report_id = ?, manual_company_id = ?,
		linked_expense_id = ?
		WHERE id = ?`,
		t.ManualDescription, t.ManualNote, t.ManualReportID, t.ManualCompanyID,
		t.LinkedExpenseID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", t.ID, err)
	}
	return expectRow(res, "transaction", t.ID)
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	return expectRow(res, "transaction", id)
}

// DeleteTransactions removes ids in one SQL transaction. If any of them is
// linked nothing is deleted and reconcile.ErrLinked is returned. Unknown ids
// are ignored. It returns how many rows were removed.
func (s *Store) DeleteTransactions(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	var linked int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions
		WHERE linked_expense_id != '' AND id IN (`+placeholders+`)`, args...).Scan(&linked)
	if err != nil {
		return 0, fmt.Errorf("failed to check linked transactions: %w", err)
	}
	if linked > 0 {
		return 0, fmt.Errorf("%d selected: %w", linked, reconcile.ErrLinked)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var (
		t              models.Transaction
		date, imported int64
		amount, source string
	)
	err := row.Scan(&t.ID, &t.ExternalID, &date, &amount, &t.Description, &source,
		&t.ManualDescription, &t.ManualNote, &t.ManualReportID, &t.ManualCompanyID,
		&t.LinkedExpenseID, &imported)
	if err != nil {
		return nil, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	t.Date = time.Unix(date, 0)
	t.ImportedAt = time.Unix(imported, 0)
	t.SourceType = models.SourceType(source)
	return &t, nil
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
