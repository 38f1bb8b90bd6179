package handler

import (
	"context"
	"net/http"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// BillService defines the behavior needed by BillHandler.
type BillService interface {
	CreateBill(ctx context.Context, scope domain.Scope, input usecase.CreateBillInput) (*usecase.BillResult, error)
	UpdateBill(ctx context.Context, scope domain.Scope, id string, input usecase.UpdateBillInput) (*usecase.BillResult, error)
	DeleteBill(ctx context.Context, scope domain.Scope, id string) error
	UpdateBillStatus(ctx context.Context, scope domain.Scope, id string, status domain.DocumentStatus) (*usecase.BillResult, error)
	PostBillToLedger(ctx context.Context, scope domain.Scope, id string) (*usecase.BillResult, error)
	GetBill(ctx context.Context, scope domain.Scope, id string) (*domain.Bill, error)
	ListBills(ctx context.Context, scope domain.Scope, filter usecase.DocumentFilter) ([]*domain.Bill, error)
}

// DuplicateChecker checks for bills resembling a prospective one.
type DuplicateChecker interface {
	CheckForDuplicateBill(ctx context.Context, scope domain.Scope, query domain.DuplicateQuery) (*domain.DuplicateCheckResult, error)
}

// BillHandler handles accounts payable bill requests.
type BillHandler struct {
	billUC     BillService
	duplicates DuplicateChecker
}

func NewBillHandler(billUC BillService, duplicates DuplicateChecker) *BillHandler {
	return &BillHandler{billUC: billUC, duplicates: duplicates}
}

// Create stores a bill. The response carries any duplicate warning and
// the ledger outcome when the bill was created approved.
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBillRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.billUC.CreateBill(r.Context(), scopeOf(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BillFromResult(result))
}

func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	bill, err := h.billUC.GetBill(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BillFromDomain(bill))
}

// List filters bills by status list and vendor.
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	bills, err := h.billUC.ListBills(r.Context(), scopeOf(r), usecase.DocumentFilter{
		Statuses:       parseDocumentStatuses(r),
		CounterpartyID: r.URL.Query().Get("vendor_id"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.BillResponse]{
		Data:   dto.BillsFromDomain(bills),
		Limit:  limit,
		Offset: offset,
	})
}

func (h *BillHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateBillRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.billUC.UpdateBill(r.Context(), scopeOf(r), idParam(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BillFromResult(result))
}

func (h *BillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.billUC.DeleteBill(r.Context(), scopeOf(r), idParam(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus submits, approves or cancels a bill.
func (h *BillHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.BillStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.billUC.UpdateBillStatus(r.Context(), scopeOf(r), idParam(r), domain.DocumentStatus(req.Status))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BillFromResult(result))
}

// PostToLedger backfills the recognition journal of an approved bill.
func (h *BillHandler) PostToLedger(w http.ResponseWriter, r *http.Request) {
	result, err := h.billUC.PostBillToLedger(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, ledgerStatus(result.Ledger), dto.BillFromResult(result))
}

// DuplicateCheck reports bills resembling the query without storing anything.
func (h *BillHandler) DuplicateCheck(w http.ResponseWriter, r *http.Request) {
	var req dto.DuplicateCheckRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.duplicates.CheckForDuplicateBill(r.Context(), scopeOf(r), req.ToQuery())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DuplicateCheckFromDomain(result))
}
