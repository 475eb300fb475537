// Package store persists transactions, expenses and companies in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/reconcile"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const memoryPath = ":memory:"

type Store struct {
	db *sql.DB
}

// New opens the database at path, creating its directory when needed. Use
// ":memory:" for a throwaway database.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Open is New followed by Migrate.
func Open(ctx context.Context, path string) (*Store, error) {
	s, err := New(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Atomic runs fn inside one SQL transaction. fn's error rolls everything back.
func (s *Store) Atomic(ctx context.Context, fn func(reconcile.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&txRepo{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txRepo is the repository view handed to Atomic callbacks.
type txRepo struct {
	tx *sql.Tx
}

func (r *txRepo) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return getTransaction(ctx, r.tx, id)
}

func (r *txRepo) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	return updateTransaction(ctx, r.tx, t)
}

func (r *txRepo) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	return getExpense(ctx, r.tx, id)
}

func (r *txRepo) UpdateExpense(ctx context.Context, e *models.Expense) error {
	return updateExpense(ctx, r.tx, e)
}

// Atomic on an open transaction joins it.
func (r *txRepo) Atomic(_ context.Context, fn func(reconcile.Repository) error) error {
	return fn(r)
}

var _ reconcile.Repository = (*Store)(nil)
