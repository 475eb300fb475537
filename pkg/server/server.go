package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yurifrl/reembolso/pkg/config"
	"github.com/yurifrl/reembolso/pkg/importer"
	"github.com/yurifrl/reembolso/pkg/parser"
	"github.com/yurifrl/reembolso/pkg/receipt"
	"github.com/yurifrl/reembolso/pkg/reconcile"
	"github.com/yurifrl/reembolso/pkg/store"
)

// maxUpload bounds multipart bodies held in memory.
const maxUpload = 32 << 20

// Server exposes the ingestion core over HTTP.
type Server struct {
	config   *config.Config
	logger   *log.Logger
	mux      *http.ServeMux
	store    *store.Store
	parser   *parser.Parser
	receipts *receipt.Parser
	importer *importer.Importer
	matcher  *reconcile.Matcher
	metrics  *metrics
}

// New creates a server over st. Routes are registered right away.
func New(cfg *config.Config, logger *log.Logger, st *store.Store) (*Server, error) {
	profile, err := parser.ParseProfile(cfg.CSV.Profile)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		store:    st,
		parser:   parser.New(logger).WithProfile(profile),
		receipts: receipt.New(logger),
		importer: importer.New(st, logger, cfg.Import.Concurrency),
		matcher:  reconcile.NewMatcher(st, logger),
		metrics:  newMetrics(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until the listener fails.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/import", s.withLogging(s.handleImport))
	s.mux.HandleFunc("POST /api/receipts", s.withLogging(s.handleReceipt))

	s.mux.HandleFunc("GET /api/transactions", s.withLogging(s.handleListTransactions))
	s.mux.HandleFunc("DELETE /api/transactions", s.withLogging(s.handleDeleteTransactions))
	s.mux.HandleFunc("DELETE /api/transactions/{id}", s.withLogging(s.handleDeleteTransaction))
	s.mux.HandleFunc("PATCH /api/transactions/{id}", s.withLogging(s.handleEditTransaction))
	s.mux.HandleFunc("POST /api/transactions/{id}/link", s.withLogging(s.handleLink))
	s.mux.HandleFunc("POST /api/transactions/{id}/unlink", s.withLogging(s.handleUnlink))
	s.mux.HandleFunc("GET /api/transactions/{id}/candidates", s.withLogging(s.handleCandidates))
	s.mux.HandleFunc("POST /api/selection/sum", s.withLogging(s.handleSelectionSum))

	s.mux.HandleFunc("GET /api/reports", s.withLogging(s.handleReports))
	s.mux.HandleFunc("GET /api/export.csv", s.withLogging(s.handleExport))

	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
}

// activeCompany is the company context of a request: the X-Company-ID
// header, else the company query parameter, else the configured default.
func (s *Server) activeCompany(r *http.Request) string {
	if id := r.Header.Get("X-Company-ID"); id != "" {
		return id
	}
	if id := r.URL.Query().Get("company"); id != "" {
		return id
	}
	return s.config.CompanyID
}

// --- helpers ---

// statusFor maps business errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrLinked),
		errors.Is(err, reconcile.ErrNotLinked),
		errors.Is(err, reconcile.ErrLockedByOtherCompany):
		return http.StatusConflict
	case errors.Is(err, reconcile.ErrUnknownField),
		errors.Is(err, importer.ErrEmptySelection),
		errors.Is(err, parser.ErrUnknownFileType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (s *Server) respondOK(w http.ResponseWriter, v any) {
	if err := s.writeJSON(w, http.StatusOK, v); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// fail responds with the status statusFor picks for err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, statusFor(err), err.Error(), err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// withLogging wraps a handler to log requests, count them and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("panic recovered", "panic", p, "method", r.Method, "path", r.URL.Path)
				s.respondError(rec, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", p))
			}
			s.metrics.requests.WithLabelValues(r.Method, r.Pattern, strconv.Itoa(rec.status)).Inc()
			s.logger.Debug("http response", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
		}()
		next(rec, r)
	}
}
