package handler

import (
	"context"
	"net/http"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	GenerateReconciliationReport(ctx context.Context, scope domain.Scope) (*usecase.ReconciliationReport, error)
	UnpostedDocuments(ctx context.Context, scope domain.Scope) ([]usecase.UnpostedDocument, error)
	RepairAccount(ctx context.Context, scope domain.Scope, accountID string) (*usecase.ReconciliationResult, error)
}

// ReconciliationHandler exposes balance drift and missing postings.
type ReconciliationHandler struct {
	reconUC ReconciliationService
}

func NewReconciliationHandler(reconUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconUC: reconUC}
}

// Accounts returns the full reconciliation report.
func (h *ReconciliationHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconUC.GenerateReconciliationReport(r.Context(), scopeOf(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationReportFromUseCase(report))
}

// Unposted lists recognized documents without a ledger journal.
func (h *ReconciliationHandler) Unposted(w http.ResponseWriter, r *http.Request) {
	docs, err := h.reconUC.UnpostedDocuments(r.Context(), scopeOf(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UnpostedDocumentsFromUseCase(docs))
}

// Repair rewrites the cached balance of one account from its journal lines.
func (h *ReconciliationHandler) Repair(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconUC.RepairAccount(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationResultFromUseCase(result))
}
