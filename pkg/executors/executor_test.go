package executors

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/reembolso/pkg/importer"
	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/parser"
	"github.com/yurifrl/reembolso/pkg/plan"
	"github.com/yurifrl/reembolso/pkg/service"
	"github.com/yurifrl/reembolso/pkg/store"
)

type fakeSource struct {
	txs []*models.Transaction
	err error
}

func (f *fakeSource) Transactions(_, _ string) ([]*models.Transaction, error) {
	return f.txs, f.err
}

func newExecutor(t *testing.T, src Source) *Executor {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := log.New(io.Discard)
	imp := importer.New(s, logger, 2)
	return New(logger, service.NewProcessor(parser.New(logger), imp, logger), imp, src)
}

func testPlan(t *testing.T) *plan.Plan {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fatura.csv")
	body := "05/03/2024,Restaurante Bom,\"120,50\"\n06/03/2024,Posto Shell,\"200,00\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return &plan.Plan{
		YNAB: plan.YNABConfig{BudgetID: "b1"},
		Statements: []plan.Statement{
			{Type: plan.TypeFile, File: path, Profile: "card"},
			{Type: plan.TypeYNAB, Account: "acc"},
		},
	}
}

func TestPlanThenApply(t *testing.T) {
	src := &fakeSource{txs: []*models.Transaction{{
		ExternalID: "ynab-1",
		Date:       time.Date(2024, time.March, 7, 12, 0, 0, 0, time.Local),
		Amount:     decimal.RequireFromString("-10"),
		SourceType: models.SourceBank,
	}}}
	e := newExecutor(t, src)
	p := testPlan(t)
	ctx := context.Background()

	var out bytes.Buffer
	changes, err := e.Plan(ctx, &out, p)
	require.NoError(t, err)
	assert.Equal(t, []Change{
		{Statement: p.Statements[0].File, ToAdd: 2},
		{Statement: "ynab:acc", ToAdd: 1},
	}, changes)
	assert.Contains(t, out.String(), "Restaurante Bom")
	assert.Contains(t, out.String(), "2 transaction(s) will be added")

	changes, err = e.Apply(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, changes[0].ToAdd)
	assert.Equal(t, 1, changes[1].ToAdd)

	out.Reset()
	changes, err = e.Plan(ctx, &out, p)
	require.NoError(t, err)
	assert.Equal(t, 2, changes[0].InSync)
	assert.Contains(t, out.String(), "All 2 transaction(s) are in sync")
}

func TestApplyErrors(t *testing.T) {
	p := testPlan(t)

	_, err := newExecutor(t, nil).Apply(context.Background(), p)
	assert.ErrorContains(t, err, "no ynab client")

	changes, err := newExecutor(t, &fakeSource{err: errors.New("401")}).Apply(context.Background(), p)
	assert.ErrorContains(t, err, "401")
	assert.Len(t, changes, 1, "file statement applied before the failure")

	p.Statements[0].Profile = "bogus"
	_, err = newExecutor(t, nil).Apply(context.Background(), p)
	assert.ErrorContains(t, err, "unknown csv profile")
}
