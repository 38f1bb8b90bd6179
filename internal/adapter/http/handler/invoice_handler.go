package handler

import (
	"context"
	"net/http"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// InvoiceService defines the behavior needed by InvoiceHandler.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, scope domain.Scope, input usecase.CreateInvoiceInput) (*usecase.InvoiceResult, error)
	UpdateInvoice(ctx context.Context, scope domain.Scope, id string, input usecase.UpdateInvoiceInput) (*usecase.InvoiceResult, error)
	DeleteInvoice(ctx context.Context, scope domain.Scope, id string) error
	SendInvoice(ctx context.Context, scope domain.Scope, id string) (*usecase.InvoiceResult, error)
	RemindInvoice(ctx context.Context, scope domain.Scope, id string) (*usecase.InvoiceResult, error)
	CancelInvoice(ctx context.Context, scope domain.Scope, id string) (*usecase.InvoiceResult, error)
	PostInvoiceToLedger(ctx context.Context, scope domain.Scope, id string) (*usecase.InvoiceResult, error)
	GetInvoice(ctx context.Context, scope domain.Scope, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, scope domain.Scope, filter usecase.DocumentFilter) ([]*domain.Invoice, error)
}

// InvoiceHandler handles accounts receivable invoice requests.
type InvoiceHandler struct {
	invoiceUC InvoiceService
}

func NewInvoiceHandler(invoiceUC InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceUC: invoiceUC}
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateInvoiceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.invoiceUC.CreateInvoice(r.Context(), scopeOf(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.InvoiceFromResult(result))
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.invoiceUC.GetInvoice(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.InvoiceFromDomain(invoice))
}

// List filters invoices by status list and client.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	invoices, err := h.invoiceUC.ListInvoices(r.Context(), scopeOf(r), usecase.DocumentFilter{
		Statuses:       parseDocumentStatuses(r),
		CounterpartyID: r.URL.Query().Get("client_id"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.InvoiceResponse]{
		Data:   dto.InvoicesFromDomain(invoices),
		Limit:  limit,
		Offset: offset,
	})
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateInvoiceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.invoiceUC.UpdateInvoice(r.Context(), scopeOf(r), idParam(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.InvoiceFromResult(result))
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.invoiceUC.DeleteInvoice(r.Context(), scopeOf(r), idParam(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Send recognizes the invoice and posts it to the ledger.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.invoiceUC.SendInvoice)
}

// Remind requests a payment reminder for an open invoice.
func (h *InvoiceHandler) Remind(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.invoiceUC.RemindInvoice)
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.invoiceUC.CancelInvoice)
}

// PostToLedger backfills the recognition journal of a sent invoice.
func (h *InvoiceHandler) PostToLedger(w http.ResponseWriter, r *http.Request) {
	result, err := h.invoiceUC.PostInvoiceToLedger(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, ledgerStatus(result.Ledger), dto.InvoiceFromResult(result))
}

func (h *InvoiceHandler) act(w http.ResponseWriter, r *http.Request, fn func(context.Context, domain.Scope, string) (*usecase.InvoiceResult, error)) {
	result, err := fn(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.InvoiceFromResult(result))
}
