package importer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/reconcile"
)

// DefaultConcurrency bounds the number of inserts in flight.
const DefaultConcurrency = 8

// ErrEmptySelection is returned when a batch delete names no transactions.
var ErrEmptySelection = errors.New("no transactions selected")

// Repository is the transaction storage the importer writes to.
type Repository interface {
	ExistingExternalIDs(ctx context.Context) (map[string]bool, error)
	InsertTransaction(ctx context.Context, t *models.Transaction) (bool, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	DeleteTransactions(ctx context.Context, ids []string) (int, error)
}

// Importer brings parsed statement records into storage. It is shared by
// the CLI and the HTTP server.
type Importer struct {
	repo        Repository
	logger      *log.Logger
	concurrency int
}

func New(repo Repository, logger *log.Logger, concurrency int) *Importer {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Importer{repo: repo, logger: logger, concurrency: concurrency}
}

// Result summarizes an import.
type Result struct {
	Parsed   int
	Inserted int
	Skipped  int
}

// Plan reports what importing txns would do without writing anything.
func (i *Importer) Plan(ctx context.Context, txns []*models.Transaction) (*reconcile.Report, error) {
	existing, err := i.repo.ExistingExternalIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing ids: %w", err)
	}
	return reconcile.BuildImportReport(txns, existing), nil
}

// Import inserts every record whose external id is not stored yet. Inserts
// run concurrently and the first failure is returned; records written before
// it stay written.
func (i *Importer) Import(ctx context.Context, txns []*models.Transaction) (Result, error) {
	res := Result{Parsed: len(txns)}
	report, err := i.Plan(ctx, txns)
	if err != nil {
		return res, err
	}

	var inserted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for _, tx := range report.TransactionsToAdd() {
		g.Go(func() error {
			ok, err := i.repo.InsertTransaction(gctx, tx)
			if err != nil {
				return err
			}
			if ok {
				inserted.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	res.Inserted = int(inserted.Load())
	res.Skipped = res.Parsed - res.Inserted
	if err != nil {
		return res, fmt.Errorf("import stopped after %d inserts: %w", res.Inserted, err)
	}

	i.logger.Info("imported transactions", "parsed", res.Parsed, "inserted", res.Inserted, "skipped", res.Skipped)
	return res, nil
}

// Delete removes one transaction. Linked transactions are refused.
func (i *Importer) Delete(ctx context.Context, id string) error {
	tx, err := i.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if tx.IsLinked() {
		return reconcile.ErrLinked
	}
	if err := i.repo.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	i.logger.Info("deleted transaction", "id", id)
	return nil
}

// DeleteBatch removes the selected transactions. If any of them is linked
// nothing is removed and reconcile.ErrLinked is returned.
func (i *Importer) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}
	n, err := i.repo.DeleteTransactions(ctx, ids)
	if err != nil {
		return 0, err
	}
	i.logger.Info("deleted transactions", "selected", len(ids), "deleted", n)
	return n, nil
}
