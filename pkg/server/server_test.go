package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/reembolso/pkg/config"
	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/store"
)

const statement = "Data;Descrição;Valor;ID\n05/03/2024;Hotel Central;-350,00;h1\n06/03/2024;Padaria;-12,50;p1\n"

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		CompanyID: "acme",
		CSV:       config.CSVConfig{Profile: "auto"},
		Import:    config.ImportConfig{Concurrency: 2},
	}
	srv, err := New(cfg, log.New(io.Discard), st)
	require.NoError(t, err)
	return srv, st
}

func upload(t *testing.T, srv *Server, path, field, filename string, body []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func do(t *testing.T, srv *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func importStatement(t *testing.T, srv *Server, st *store.Store) []*models.Transaction {
	t.Helper()
	rec := upload(t, srv, "/api/import", "statement", "conta.csv", []byte(statement), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	txs, err := st.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	return txs
}

func TestImportAndList(t *testing.T) {
	srv, st := newTestServer(t)

	rec := upload(t, srv, "/api/import", "statement", "conta.csv", []byte(statement), map[string]string{"dry_run": "true"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["to_add"])

	rec = upload(t, srv, "/api/import", "statement", "conta.csv", []byte(statement), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["inserted"])

	rec = upload(t, srv, "/api/import", "statement", "conta.csv", []byte(statement), nil)
	assert.EqualValues(t, 2, decode(t, rec)["skipped"])

	rec = do(t, srv, http.MethodGet, "/api/transactions?q=hotel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["transactions"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "-350.00", list[0].(map[string]any)["amount"])

	rec = do(t, srv, http.MethodGet, "/api/transactions?month=13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, srv, "/api/import", "statement", "conta.pdf", []byte("%PDF-1.4"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, srv, "/api/import", "statement", "conta.csv", []byte(statement), map[string]string{"profile": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_ = st
}

func TestLinkUnlinkAndLock(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()
	txs := importStatement(t, srv, st)
	hotel := txs[1]
	require.Equal(t, "h1", hotel.ExternalID)

	require.NoError(t, st.UpsertCompany(ctx, models.Company{ID: "acme", Name: "Acme"}))
	require.NoError(t, st.UpsertExpense(ctx, &models.Expense{
		ID: "e1", CompanyID: "acme", ReportID: "R-1", Description: "Hospedagem",
		Value: decimal.RequireFromString("350"), Date: time.Date(2024, time.March, 5, 12, 0, 0, 0, time.Local),
	}))

	rec := do(t, srv, http.MethodGet, "/api/transactions/"+hotel.ID+"/candidates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cands := decode(t, rec)["candidates"].([]any)
	require.Len(t, cands, 1)
	assert.Equal(t, true, cands[0].(map[string]any)["exact"])

	rec = do(t, srv, http.MethodPost, "/api/transactions/"+hotel.ID+"/link", `{"expense_id":"e1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/transactions?q=hosped", "", "X-Company-ID", "beta")
	list := decode(t, rec)["transactions"].([]any)
	require.Len(t, list, 1)
	badge := list[0].(map[string]any)["badge"].(map[string]any)
	assert.Equal(t, "ACME", badge["label"])
	assert.Equal(t, true, badge["locked"])

	rec = do(t, srv, http.MethodPost, "/api/transactions/"+hotel.ID+"/unlink", "", "X-Company-ID", "beta")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(t, srv, http.MethodPatch, "/api/transactions/"+hotel.ID, `{"field":"note","value":"x"}`, "X-Company-ID", "beta")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/transactions/"+hotel.ID, `{"field":"color","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/transactions", `{"ids":["`+txs[0].ID+`","`+hotel.ID+`"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/transactions/"+hotel.ID+"/unlink", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPost, "/api/transactions/"+hotel.ID+"/unlink", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	exp, err := st.GetExpense(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, exp.IsPaid)

	rec = do(t, srv, http.MethodPost, "/api/transactions/missing/link", `{"expense_id":"e1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAndSum(t *testing.T) {
	srv, st := newTestServer(t)
	txs := importStatement(t, srv, st)

	rec := do(t, srv, http.MethodPost, "/api/selection/sum", `{"ids":["`+txs[0].ID+`","`+txs[1].ID+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "-362.50", decode(t, rec)["sum"])

	linked := *txs[1]
	linked.LinkedExpenseID = "e9"
	require.NoError(t, st.UpdateTransaction(context.Background(), &linked))
	rec = do(t, srv, http.MethodPost, "/api/selection/sum", `{"ids":["`+txs[0].ID+`","`+txs[1].ID+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "-12.50", decode(t, rec)["sum"], "linked rows are not selectable")
	linked.LinkedExpenseID = ""
	require.NoError(t, st.UpdateTransaction(context.Background(), &linked))

	rec = do(t, srv, http.MethodDelete, "/api/transactions", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/transactions", `{"ids":["`+txs[0].ID+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["deleted"])

	rec = do(t, srv, http.MethodDelete, "/api/transactions/"+txs[1].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/transactions/"+txs[1].ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceiptNonPDF(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := upload(t, srv, "/api/receipts", "receipt", "nota.txt", []byte("just text"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Nil(t, body["receipt"])
}

func TestReportsAndExport(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()
	importStatement(t, srv, st)

	march := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)
	for _, e := range []*models.Expense{
		{ID: "a", CompanyID: "acme", ReportID: "R-2", Category: "Hotel", Value: decimal.RequireFromString("300"), Date: march, Status: models.StatusClosed},
		{ID: "b", CompanyID: "acme", ReportID: "R-2", Category: "Táxi", Value: decimal.RequireFromString("50"), Date: march, Status: models.StatusClosed, IsGlosada: true},
		{ID: "c", CompanyID: "beta", ReportID: "R-9", Value: decimal.RequireFromString("10"), Date: march, Status: models.StatusClosed},
	} {
		require.NoError(t, st.UpsertExpense(ctx, e))
	}

	rec := do(t, srv, http.MethodGet, "/api/reports?month=3&year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	reports := body["reports"].([]any)
	require.Len(t, reports, 1)
	r := reports[0].(map[string]any)
	assert.Equal(t, "300.00", r["totalApproved"])
	assert.Equal(t, "50.00", r["glosado"])
	assert.Equal(t, "300.00", body["total_approved"])

	rec = do(t, srv, http.MethodGet, "/api/export.csv?source=card", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Date,Description,Source,Amount,ExternalID,Linked"))
	assert.Contains(t, rec.Body.String(), "Hotel Central")

	rec = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reembolso_http_requests_total")
	assert.Contains(t, rec.Body.String(), `reembolso_imported_transactions_total{result="inserted"} 2`)
}

func TestNewRejectsBadProfile(t *testing.T) {
	_, err := New(&config.Config{CSV: config.CSVConfig{Profile: "weird"}}, log.New(io.Discard), nil)
	assert.Error(t, err)
}
