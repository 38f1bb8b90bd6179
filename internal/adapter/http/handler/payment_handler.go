package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// PaymentService defines the behavior needed by PaymentHandler.
type PaymentService interface {
	RecordPayment(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, documentID string, input usecase.RecordPaymentInput) (*usecase.PaymentResult, error)
	UpdatePayment(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, documentID, paymentID string, input usecase.UpdatePaymentInput) (*usecase.PaymentResult, error)
	DeletePayment(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, documentID, paymentID string) (*domain.Document, error)
	ListPayments(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, documentID string) ([]*domain.Payment, error)
}

// PaymentHandler handles payments of one document kind. Routes mount it
// under /bills/{id}/payments or /invoices/{id}/payments.
type PaymentHandler struct {
	paymentUC PaymentService
	kind      domain.DocumentKind
}

func NewPaymentHandler(paymentUC PaymentService, kind domain.DocumentKind) *PaymentHandler {
	return &PaymentHandler{paymentUC: paymentUC, kind: kind}
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	payments, err := h.paymentUC.ListPayments(r.Context(), scopeOf(r), h.kind, idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentsFromDomain(payments))
}

// Record applies a payment and returns the settled document state.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordPaymentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.paymentUC.RecordPayment(r.Context(), scopeOf(r), h.kind, idParam(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentResultFromUseCase(result))
}

func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdatePaymentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.paymentUC.UpdatePayment(r.Context(), scopeOf(r), h.kind, idParam(r), chi.URLParam(r, "paymentId"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentResultFromUseCase(result))
}

// Delete removes a payment and returns the reopened document state.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	doc, err := h.paymentUC.DeletePayment(r.Context(), scopeOf(r), h.kind, idParam(r), chi.URLParam(r, "paymentId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DocumentBalanceFromDomain(doc))
}
