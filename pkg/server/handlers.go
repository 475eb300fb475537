package server

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/company"
	"github.com/yurifrl/reembolso/pkg/csv"
	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/parser"
	"github.com/yurifrl/reembolso/pkg/reconcile"
	"github.com/yurifrl/reembolso/pkg/report"
)

// readUpload returns the bytes and name of the multipart file in field.
func readUpload(r *http.Request, field string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, "", fmt.Errorf("invalid multipart form: %w", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %s file: %w", field, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", field, err)
	}
	return data, header.Filename, nil
}

// ---------------- import ----------------

type planEntry struct {
	Status      string          `json:"status"`
	Transaction transactionView `json:"transaction"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, filename, err := readUpload(r, "statement")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "statement file required", err)
		return
	}

	ps := s.parser
	if raw := r.FormValue("profile"); raw != "" {
		profile, err := parser.ParseProfile(raw)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
			return
		}
		ps = ps.WithProfile(profile)
	}

	txs, err := ps.ProcessBytes(data, filename)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to process file", err)
		return
	}

	if dry, _ := strconv.ParseBool(r.FormValue("dry_run")); dry {
		rep, err := s.importer.Plan(r.Context(), txs)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		entries := make([]planEntry, 0, len(rep.Items))
		for _, item := range rep.Items {
			entries = append(entries, planEntry{Status: item.Status.String(), Transaction: newTransactionView(item.Parsed)})
		}
		s.respondOK(w, map[string]any{
			"status":  "success",
			"file":    filename,
			"to_add":  rep.MissingCount(),
			"in_sync": rep.InSyncCount(),
			"items":   entries,
		})
		return
	}

	res, err := s.importer.Import(r.Context(), txs)
	s.metrics.imported.WithLabelValues("inserted").Add(float64(res.Inserted))
	s.metrics.imported.WithLabelValues("skipped").Add(float64(res.Skipped))
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "import failed", err)
		return
	}
	s.logger.Info("import complete", "file", filename, "inserted", res.Inserted, "skipped", res.Skipped)
	s.respondOK(w, map[string]any{
		"status":   "success",
		"file":     filename,
		"parsed":   res.Parsed,
		"inserted": res.Inserted,
		"skipped":  res.Skipped,
	})
}

// ---------------- receipts ----------------

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	data, filename, err := readUpload(r, "receipt")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "receipt file required", err)
		return
	}

	rec, err := s.receipts.Parse(r.Context(), data)
	if err != nil {
		s.respondError(w, r, http.StatusRequestTimeout, "receipt parsing cancelled", err)
		return
	}
	kind := "none"
	if rec != nil {
		kind = string(rec.Kind)
	}
	s.metrics.receipts.WithLabelValues(kind).Inc()

	body := map[string]any{"status": "success", "file": filename, "receipt": rec}

	if id := r.FormValue("expense_id"); id != "" && rec != nil {
		exp, err := s.store.GetExpense(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rec.ApplyTo(exp)
		if err := s.store.UpsertExpense(r.Context(), exp); err != nil {
			s.fail(w, r, err)
			return
		}
		body["expense"] = newExpenseView(exp)
	}
	s.respondOK(w, body)
}

// ---------------- transactions ----------------

func intParam(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

func parseFilter(q url.Values) (reconcile.Filter, error) {
	f := reconcile.Filter{
		Value: q.Get("value"),
		Text:  q.Get("q"),
	}
	var err error
	if f.Month, err = intParam(q, "month"); err != nil {
		return f, err
	}
	if f.Month < 0 || f.Month > 12 {
		return f, fmt.Errorf("invalid month %d", f.Month)
	}
	if f.Year, err = intParam(q, "year"); err != nil {
		return f, err
	}
	switch src := models.SourceType(q.Get("source")); src {
	case "", models.SourceBank, models.SourceCard:
		f.Source = src
	default:
		return f, fmt.Errorf("invalid source %q", src)
	}
	return f, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	ctx := r.Context()
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	expenses, err := s.store.ListExpenses(ctx, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	byID := make(map[string]*models.Expense, len(expenses))
	for _, e := range expenses {
		byID[e.ID] = e
	}

	dir := company.NewDirectory(companies)
	active := s.activeCompany(r)
	visible := filter.Apply(txs)
	views := make([]transactionView, 0, len(visible))
	for _, tx := range visible {
		v := newTransactionView(tx)
		v.withBadge(dir.Badge(tx, byID[tx.LinkedExpenseID], active))
		views = append(views, v)
	}

	selectable := reconcile.Selectable(visible)
	ids := make([]string, 0, len(selectable))
	for _, tx := range selectable {
		ids = append(ids, tx.ID)
	}

	s.respondOK(w, map[string]any{
		"status":       "success",
		"transactions": views,
		"selectable":   ids,
	})
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	n, err := s.importer.DeleteBatch(r.Context(), req.IDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondOK(w, map[string]any{"status": "success", "deleted": n})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.importer.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondOK(w, map[string]any{"status": "success", "deleted": 1})
}

type editRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	tx, err := s.matcher.EditManualField(r.Context(), r.PathValue("id"), reconcile.ManualField(req.Field), req.Value, s.activeCompany(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondOK(w, map[string]any{"status": "success", "transaction": newTransactionView(tx)})
}

type linkRequest struct {
	ExpenseID string `json:"expense_id"`
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	if req.ExpenseID == "" {
		s.respondError(w, r, http.StatusBadRequest, "expense_id required", nil)
		return
	}
	tx, err := s.matcher.Link(r.Context(), r.PathValue("id"), req.ExpenseID, s.activeCompany(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondOK(w, map[string]any{"status": "success", "transaction": newTransactionView(tx)})
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	tx, err := s.matcher.Unlink(r.Context(), r.PathValue("id"), s.activeCompany(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondOK(w, map[string]any{"status": "success", "transaction": newTransactionView(tx)})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tx, err := s.store.GetTransaction(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	active := s.activeCompany(r)
	expenses, err := s.store.ListExpenses(ctx, active)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ranked := reconcile.RankCandidates(tx, expenses, active, r.URL.Query().Get("q"))
	views := make([]candidateView, 0, len(ranked))
	for _, c := range ranked {
		views = append(views, newCandidateView(c))
	}
	s.respondOK(w, map[string]any{
		"status":      "success",
		"transaction": newTransactionView(tx),
		"candidates":  views,
	})
}

func (s *Server) handleSelectionSum(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum := reconcile.SelectionSum(reconcile.Selectable(txs), req.IDs)
	s.respondOK(w, map[string]any{
		"status":    "success",
		"sum":       sum.StringFixed(2),
		"formatted": brl.Format(sum),
	})
}

// ---------------- reports ----------------

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := intParam(q, "month")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	year, err := intParam(q, "year")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	expenses, err := s.store.ListExpenses(r.Context(), s.activeCompany(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	groups := report.GroupByReport(expenses, report.Selector{
		Month:  month,
		Year:   year,
		Search: q.Get("q"),
		UserID: q.Get("user"),
	})

	views := make([]reportView, 0, len(groups))
	for _, g := range groups {
		views = append(views, newReportView(g))
	}
	s.respondOK(w, map[string]any{
		"status":         "success",
		"reports":        views,
		"total_approved": report.ApprovedSum(groups).StringFixed(2),
	})
}

// ---------------- export ----------------

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := csv.Create(txs, filter.Match)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transacoes.csv"`)
	if _, err := w.Write(out); err != nil {
		s.logger.Warn("failed to write csv response", "err", err)
	}
}
