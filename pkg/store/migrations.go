package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one schema step, applied inside its own SQL transaction.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// ExpectedSchemaVersion is the version after every migration has run.
const ExpectedSchemaVersion = 2

func execAll(tx *sql.Tx, stmts ...string) error {
	for _, q := range stmts {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE transactions (
					id TEXT PRIMARY KEY,
					external_id TEXT NOT NULL UNIQUE,
					date INTEGER NOT NULL,
					amount TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					source_type TEXT NOT NULL DEFAULT 'bank',
					manual_description TEXT NOT NULL DEFAULT '',
					manual_report_id TEXT NOT NULL DEFAULT '',
					manual_company_id TEXT NOT NULL DEFAULT '',
					linked_expense_id TEXT NOT NULL DEFAULT '',
					imported_at INTEGER NOT NULL
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_linked ON transactions(linked_expense_id)`,
				`CREATE TABLE expenses (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL DEFAULT '',
					company_id TEXT NOT NULL DEFAULT '',
					report_id TEXT NOT NULL DEFAULT '',
					cost_center TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					value TEXT NOT NULL DEFAULT '0',
					date INTEGER NOT NULL,
					closing_date INTEGER,
					status TEXT NOT NULL DEFAULT 'Draft',
					admin_status TEXT NOT NULL DEFAULT 'pending',
					is_glosada INTEGER NOT NULL DEFAULT 0,
					substitute_type TEXT NOT NULL DEFAULT '',
					supplier_name TEXT NOT NULL DEFAULT '',
					supplier_document TEXT NOT NULL DEFAULT '',
					receipt_number TEXT NOT NULL DEFAULT '',
					receipt_type TEXT NOT NULL DEFAULT '',
					is_paid INTEGER NOT NULL DEFAULT 0,
					reconciled_transaction_id TEXT NOT NULL DEFAULT '',
					reconciled_date INTEGER
				)`,
				`CREATE INDEX idx_expenses_report ON expenses(report_id)`,
				`CREATE INDEX idx_expenses_company ON expenses(company_id)`,
				`CREATE TABLE companies (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					color TEXT NOT NULL DEFAULT '',
					short_code TEXT NOT NULL DEFAULT ''
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add manual note to transactions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, `ALTER TABLE transactions ADD COLUMN manual_note TEXT NOT NULL DEFAULT ''`)
		},
	},
}

// Migrate applies all pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}

	var final int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&final); err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, final)
	}
	return nil
}
