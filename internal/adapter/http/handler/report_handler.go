package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
)

// ReportService defines the behavior needed by ReportHandler.
type ReportService interface {
	TrialBalance(ctx context.Context, scope domain.Scope, start, end *time.Time) (*domain.TrialBalance, error)
	IncomeStatement(ctx context.Context, scope domain.Scope, start, end *time.Time) (*domain.IncomeStatement, error)
	BalanceSheet(ctx context.Context, scope domain.Scope, asOf time.Time) (*domain.BalanceSheet, error)
	AgingReport(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, asOf time.Time) (*domain.AgingReport, error)
}

// ReportHandler serves financial reports.
type ReportHandler struct {
	reportUC ReportService
}

func NewReportHandler(reportUC ReportService) *ReportHandler {
	return &ReportHandler{reportUC: reportUC}
}

// TrialBalance reports posted activity per account inside an optional
// start_date..end_date window.
func (h *ReportHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	start, end, ok := dateWindow(w, r)
	if !ok {
		return
	}

	tb, err := h.reportUC.TrialBalance(r.Context(), scopeOf(r), start, end)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TrialBalanceFromDomain(tb))
}

func (h *ReportHandler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	start, end, ok := dateWindow(w, r)
	if !ok {
		return
	}

	is, err := h.reportUC.IncomeStatement(r.Context(), scopeOf(r), start, end)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.IncomeStatementFromDomain(is))
}

// BalanceSheet reports balances as of the as_of date, today by default.
func (h *ReportHandler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, ok := asOfDate(w, r)
	if !ok {
		return
	}

	bs, err := h.reportUC.BalanceSheet(r.Context(), scopeOf(r), asOf)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceSheetFromDomain(bs))
}

// Aging buckets open bills (kind=bill) or invoices (kind=invoice).
func (h *ReportHandler) Aging(w http.ResponseWriter, r *http.Request) {
	kind := domain.DocumentKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = domain.DocumentKindInvoice
	}
	if kind != domain.DocumentKindBill && kind != domain.DocumentKindInvoice {
		writeError(w, http.StatusBadRequest, "bad_request", "kind must be bill or invoice")
		return
	}

	asOf, ok := asOfDate(w, r)
	if !ok {
		return
	}

	report, err := h.reportUC.AgingReport(r.Context(), scopeOf(r), kind, asOf)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AgingReportFromDomain(report))
}

func dateWindow(w http.ResponseWriter, r *http.Request) (start, end *time.Time, ok bool) {
	start, err := parseDateQuery(r, "start_date")
	if err == nil {
		end, err = parseDateQuery(r, "end_date")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return nil, nil, false
	}
	if start != nil && end != nil && start.After(*end) {
		writeError(w, http.StatusBadRequest, "bad_request", "start_date must not be after end_date")
		return nil, nil, false
	}
	return start, end, true
}

// asOfDate returns the as_of parameter, or the zero time to let the report
// default to today.
func asOfDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return time.Time{}, false
	}
	if asOf == nil {
		return time.Time{}, true
	}
	return *asOf, true
}
