package handler

import (
	"context"
	"net/http"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// PeriodService defines the behavior needed by PeriodHandler.
type PeriodService interface {
	CreatePeriod(ctx context.Context, scope domain.Scope, input usecase.CreatePeriodInput) (*domain.Period, error)
	ClosePeriod(ctx context.Context, scope domain.Scope, id string) (*domain.Period, error)
	ReopenPeriod(ctx context.Context, scope domain.Scope, id string) (*domain.Period, error)
	ListPeriods(ctx context.Context, scope domain.Scope) ([]*domain.Period, error)
}

// PeriodHandler handles accounting period requests.
type PeriodHandler struct {
	periodUC PeriodService
}

func NewPeriodHandler(periodUC PeriodService) *PeriodHandler {
	return &PeriodHandler{periodUC: periodUC}
}

func (h *PeriodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePeriodRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	period, err := h.periodUC.CreatePeriod(r.Context(), scopeOf(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PeriodFromDomain(period))
}

func (h *PeriodHandler) List(w http.ResponseWriter, r *http.Request) {
	periods, err := h.periodUC.ListPeriods(r.Context(), scopeOf(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PeriodsFromDomain(periods))
}

func (h *PeriodHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.periodUC.ClosePeriod)
}

func (h *PeriodHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.periodUC.ReopenPeriod)
}

func (h *PeriodHandler) setStatus(w http.ResponseWriter, r *http.Request, fn func(context.Context, domain.Scope, string) (*domain.Period, error)) {
	period, err := fn(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PeriodFromDomain(period))
}
