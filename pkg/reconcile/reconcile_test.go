package reconcile

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/reembolso/pkg/models"
)

var errNotFound = errors.New("not found")

type memRepo struct {
	txs         map[string]models.Transaction
	expenses    map[string]models.Expense
	failExpense bool
}

func newMemRepo() *memRepo {
	return &memRepo{txs: map[string]models.Transaction{}, expenses: map[string]models.Expense{}}
}

func (r *memRepo) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	tx, ok := r.txs[id]
	if !ok {
		return nil, errNotFound
	}
	return &tx, nil
}

func (r *memRepo) UpdateTransaction(_ context.Context, tx *models.Transaction) error {
	r.txs[tx.ID] = *tx
	return nil
}

func (r *memRepo) GetExpense(_ context.Context, id string) (*models.Expense, error) {
	e, ok := r.expenses[id]
	if !ok {
		return nil, errNotFound
	}
	return &e, nil
}

func (r *memRepo) UpdateExpense(_ context.Context, e *models.Expense) error {
	if r.failExpense {
		return errors.New("write failed")
	}
	r.expenses[e.ID] = *e
	return nil
}

func (r *memRepo) Atomic(_ context.Context, fn func(Repository) error) error {
	txs := make(map[string]models.Transaction, len(r.txs))
	for k, v := range r.txs {
		txs[k] = v
	}
	expenses := make(map[string]models.Expense, len(r.expenses))
	for k, v := range r.expenses {
		expenses[k] = v
	}
	if err := fn(r); err != nil {
		r.txs, r.expenses = txs, expenses
		return err
	}
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestMatcher(repo Repository) *Matcher {
	m := NewMatcher(repo, log.New(io.Discard))
	m.now = func() time.Time { return time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC) }
	return m
}

func seed() *memRepo {
	repo := newMemRepo()
	repo.txs["t1"] = models.Transaction{ID: "t1", Amount: d("-150"), Description: "PIX", ManualDescription: "kept"}
	repo.expenses["e1"] = models.Expense{ID: "e1", CompanyID: "acme", ReportID: "R-10", Description: "Jantar cliente", Value: d("150")}
	repo.expenses["e2"] = models.Expense{ID: "e2", CompanyID: "", Value: d("150")}
	return repo
}

func TestLink(t *testing.T) {
	repo := seed()
	m := newTestMatcher(repo)

	tx, err := m.Link(context.Background(), "t1", "e1", "acme")
	require.NoError(t, err)
	assert.Equal(t, "e1", tx.LinkedExpenseID)
	assert.Equal(t, "acme", tx.ManualCompanyID)
	assert.Equal(t, "R-10", tx.ManualReportID)
	assert.Equal(t, "Jantar cliente", tx.ManualDescription)

	e := repo.expenses["e1"]
	assert.True(t, e.IsPaid)
	assert.Equal(t, "t1", e.ReconciledTransactionID)
	require.NotNil(t, e.ReconciledDate)
	assert.Equal(t, 2024, e.ReconciledDate.Year())
}

func TestLinkFallbacks(t *testing.T) {
	repo := seed()
	m := newTestMatcher(repo)

	tx, err := m.Link(context.Background(), "t1", "e2", "beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", tx.ManualCompanyID, "company falls back to the active one")
	assert.Equal(t, "kept", tx.ManualDescription, "empty expense description keeps the overlay")
	assert.Empty(t, tx.ManualReportID)
}

func TestLinkIsAtomic(t *testing.T) {
	repo := seed()
	repo.failExpense = true
	m := newTestMatcher(repo)

	_, err := m.Link(context.Background(), "t1", "e1", "acme")
	require.Error(t, err)
	assert.Empty(t, repo.txs["t1"].LinkedExpenseID, "transaction write rolled back")
	assert.False(t, repo.expenses["e1"].IsPaid)
}

func TestLinkMissingExpense(t *testing.T) {
	m := newTestMatcher(seed())
	_, err := m.Link(context.Background(), "t1", "nope", "acme")
	assert.ErrorIs(t, err, errNotFound)
}

func TestRelinkReleasesPreviousExpense(t *testing.T) {
	repo := seed()
	repo.expenses["e3"] = models.Expense{ID: "e3", CompanyID: "acme", ReportID: "R-11", Value: d("10")}
	m := newTestMatcher(repo)

	_, err := m.Link(context.Background(), "t1", "e1", "acme")
	require.NoError(t, err)
	tx, err := m.Link(context.Background(), "t1", "e3", "acme")
	require.NoError(t, err)
	assert.Equal(t, "e3", tx.LinkedExpenseID)
	assert.Equal(t, "R-11", tx.ManualReportID)

	old := repo.expenses["e1"]
	assert.False(t, old.IsPaid, "previous expense released")
	assert.Empty(t, old.ReconciledTransactionID)
	assert.Nil(t, old.ReconciledDate)
	assert.Equal(t, "t1", repo.expenses["e3"].ReconciledTransactionID)

	_, err = m.Unlink(context.Background(), "t1", "acme")
	require.NoError(t, err)
	assert.False(t, repo.expenses["e1"].IsPaid)
	assert.False(t, repo.expenses["e3"].IsPaid)
}

func TestLinkRefusesExpenseOfAnotherTransaction(t *testing.T) {
	repo := seed()
	repo.txs["t2"] = models.Transaction{ID: "t2", Amount: d("-150")}
	m := newTestMatcher(repo)
	ctx := context.Background()

	_, err := m.Link(ctx, "t1", "e1", "acme")
	require.NoError(t, err)

	_, err = m.Link(ctx, "t2", "e1", "acme")
	assert.ErrorIs(t, err, ErrLinked)
	assert.Empty(t, repo.txs["t2"].LinkedExpenseID)
	assert.Equal(t, "t1", repo.expenses["e1"].ReconciledTransactionID)

	tx, err := m.Link(ctx, "t1", "e1", "acme")
	require.NoError(t, err, "relinking the same pair is allowed")
	assert.Equal(t, "e1", tx.LinkedExpenseID)
}

func TestUnlink(t *testing.T) {
	repo := seed()
	m := newTestMatcher(repo)
	ctx := context.Background()

	_, err := m.Link(ctx, "t1", "e1", "acme")
	require.NoError(t, err)

	tx, err := m.Unlink(ctx, "t1", "acme")
	require.NoError(t, err)
	assert.False(t, tx.IsLinked())
	assert.Empty(t, tx.ManualCompanyID)
	assert.Empty(t, tx.ManualReportID)
	assert.Empty(t, tx.ManualDescription)

	e := repo.expenses["e1"]
	assert.False(t, e.IsPaid)
	assert.Empty(t, e.ReconciledTransactionID)
	assert.Nil(t, e.ReconciledDate)

	_, err = m.Unlink(ctx, "t1", "acme")
	assert.ErrorIs(t, err, ErrNotLinked)
}

func TestUnlinkExpenseFailureIsNotFatal(t *testing.T) {
	repo := seed()
	m := newTestMatcher(repo)
	ctx := context.Background()

	_, err := m.Link(ctx, "t1", "e1", "acme")
	require.NoError(t, err)
	delete(repo.expenses, "e1")

	tx, err := m.Unlink(ctx, "t1", "acme")
	require.NoError(t, err)
	assert.False(t, tx.IsLinked())
	assert.Empty(t, repo.txs["t1"].LinkedExpenseID)
}

func TestLockedByOtherCompany(t *testing.T) {
	repo := seed()
	m := newTestMatcher(repo)
	ctx := context.Background()

	_, err := m.Link(ctx, "t1", "e1", "acme")
	require.NoError(t, err)

	_, err = m.Unlink(ctx, "t1", "other")
	assert.ErrorIs(t, err, ErrLockedByOtherCompany)
	_, err = m.EditManualField(ctx, "t1", FieldDescription, "x", "other")
	assert.ErrorIs(t, err, ErrLockedByOtherCompany)
	_, err = m.Link(ctx, "t1", "e2", "other")
	assert.ErrorIs(t, err, ErrLockedByOtherCompany)

	assert.Equal(t, "e1", repo.txs["t1"].LinkedExpenseID)
}

func TestEditManualField(t *testing.T) {
	repo := seed()
	m := newTestMatcher(repo)
	ctx := context.Background()

	tx, err := m.EditManualField(ctx, "t1", FieldReport, "R-99", "acme")
	require.NoError(t, err)
	assert.Equal(t, "R-99", tx.ManualReportID)

	_, err = m.EditManualField(ctx, "t1", FieldNote, "almoço", "acme")
	require.NoError(t, err)
	assert.Equal(t, "almoço", repo.txs["t1"].ManualNote)

	_, err = m.EditManualField(ctx, "t1", ManualField("amount"), "1", "acme")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestRankCandidates(t *testing.T) {
	tx := &models.Transaction{Amount: d("-150.00")}
	expenses := []*models.Expense{
		{ID: "far", CompanyID: "acme", Description: "Hotel", Value: d("400")},
		{ID: "close", CompanyID: "acme", Description: "Taxi", Value: d("150.01")},
		{ID: "exact", CompanyID: "acme", Description: "Jantar", Value: d("150.00")},
		{ID: "foreign", CompanyID: "other", Description: "Jantar", Value: d("150.00")},
	}

	got := RankCandidates(tx, expenses, "acme", "")
	require.Len(t, got, 3)
	assert.Equal(t, "exact", got[0].Expense.ID)
	assert.True(t, got[0].Exact)
	assert.Equal(t, "close", got[1].Expense.ID)
	assert.False(t, got[1].Exact)
	assert.Equal(t, "far", got[2].Expense.ID)

	got = RankCandidates(tx, expenses, "acme", "hot")
	require.Len(t, got, 1)
	assert.Equal(t, "far", got[0].Expense.ID)

	got = RankCandidates(tx, expenses, "acme", "150.01")
	require.Len(t, got, 1)
	assert.Equal(t, "close", got[0].Expense.ID)
}

func TestRankCandidatesSkipsReconciledExpenses(t *testing.T) {
	tx := &models.Transaction{ID: "t1", Amount: d("-150")}
	expenses := []*models.Expense{
		{ID: "taken", CompanyID: "acme", Value: d("150"), IsPaid: true, ReconciledTransactionID: "t9"},
		{ID: "mine", CompanyID: "acme", Value: d("150"), IsPaid: true, ReconciledTransactionID: "t1"},
		{ID: "free", CompanyID: "acme", Value: d("151")},
	}

	got := RankCandidates(tx, expenses, "acme", "")
	require.Len(t, got, 2)
	assert.Equal(t, "mine", got[0].Expense.ID)
	assert.Equal(t, "free", got[1].Expense.ID)
}

func TestFilter(t *testing.T) {
	march := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
	april := time.Date(2024, 4, 1, 12, 0, 0, 0, time.Local)
	txs := []*models.Transaction{
		{ID: "a", Date: march, Amount: d("-5.91"), Description: "POSTO SHELL", SourceType: models.SourceCard},
		{ID: "b", Date: march, Amount: d("120"), Description: "PIX", ManualDescription: "Reembolso jantar"},
		{ID: "c", Date: april, Amount: d("-5.91"), Description: "POSTO SHELL", SourceType: models.SourceCard},
	}

	ids := func(list []*models.Transaction) []string {
		var out []string
		for _, tx := range list {
			out = append(out, tx.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b"}, ids(Filter{Month: 3, Year: 2024}.Apply(txs)))
	assert.Equal(t, []string{"a", "c"}, ids(Filter{Value: "5,9"}.Apply(txs)))
	assert.Equal(t, []string{"b"}, ids(Filter{Text: "JANTAR"}.Apply(txs)))
	assert.Equal(t, []string{"b"}, ids(Filter{Source: models.SourceBank}.Apply(txs)))
	assert.Len(t, Filter{}.Apply(txs), 3)
}

func TestSelection(t *testing.T) {
	txs := []*models.Transaction{
		{ID: "a", Amount: d("-50")},
		{ID: "b", Amount: d("120.50")},
		{ID: "c", Amount: d("-10"), LinkedExpenseID: "e1"},
	}

	assert.Equal(t, "70.5", SelectionSum(txs, []string{"a", "b", "a", "zzz"}).String())
	assert.True(t, SelectionSum(txs, nil).IsZero())

	sel := Selectable(txs)
	require.Len(t, sel, 2)
	assert.Equal(t, "a", sel[0].ID)
	assert.Equal(t, "b", sel[1].ID)
}

func TestBuildImportReport(t *testing.T) {
	parsed := []*models.Transaction{
		{ExternalID: "1"},
		{ExternalID: "2"},
		{ExternalID: "2"},
		{ExternalID: "3"},
	}
	r := BuildImportReport(parsed, map[string]bool{"1": true})

	assert.Equal(t, 2, r.MissingCount())
	assert.Equal(t, 2, r.InSyncCount())
	assert.Equal(t, Synced, r.Items[0].Status)
	assert.Equal(t, ToAdd, r.Items[1].Status)
	assert.Equal(t, Synced, r.Items[2].Status)
	assert.Equal(t, "3", r.TransactionsToAdd()[1].ExternalID)

	again := BuildImportReport(parsed, map[string]bool{"1": true, "2": true, "3": true})
	assert.Zero(t, again.MissingCount())
}
