package handler

import (
	"context"
	"net/http"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// JournalService defines the behavior needed by JournalHandler.
type JournalService interface {
	CreateJournal(ctx context.Context, scope domain.Scope, input usecase.CreateJournalInput) (*domain.Journal, error)
	UpdateJournal(ctx context.Context, scope domain.Scope, id string, input usecase.UpdateJournalInput) (*domain.Journal, error)
	DeleteJournal(ctx context.Context, scope domain.Scope, id string) error
	PostJournal(ctx context.Context, scope domain.Scope, id string) (*domain.Journal, error)
	VoidJournal(ctx context.Context, scope domain.Scope, id string) (*domain.Journal, error)
	GetJournal(ctx context.Context, scope domain.Scope, id string) (*domain.Journal, error)
	ListJournals(ctx context.Context, scope domain.Scope, filter usecase.JournalFilter) ([]*domain.Journal, error)
}

// JournalHandler handles manual journal requests.
type JournalHandler struct {
	journalUC JournalService
}

func NewJournalHandler(journalUC JournalService) *JournalHandler {
	return &JournalHandler{journalUC: journalUC}
}

// Create stores a manual journal, optionally posting it.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateJournalRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	journal, err := h.journalUC.CreateJournal(r.Context(), scopeOf(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.JournalFromDomain(journal))
}

func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	journal, err := h.journalUC.GetJournal(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalFromDomain(journal))
}

// List filters journals by status and source.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()

	journals, err := h.journalUC.ListJournals(r.Context(), scopeOf(r), usecase.JournalFilter{
		Status: domain.JournalStatus(q.Get("status")),
		Source: domain.JournalSource(q.Get("source")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.JournalResponse]{
		Data:   dto.JournalsFromDomain(journals),
		Limit:  limit,
		Offset: offset,
	})
}

func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateJournalRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	journal, err := h.journalUC.UpdateJournal(r.Context(), scopeOf(r), idParam(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalFromDomain(journal))
}

func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.journalUC.DeleteJournal(r.Context(), scopeOf(r), idParam(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Post moves a draft journal to posted.
func (h *JournalHandler) Post(w http.ResponseWriter, r *http.Request) {
	journal, err := h.journalUC.PostJournal(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalFromDomain(journal))
}

// Void voids a posted journal.
func (h *JournalHandler) Void(w http.ResponseWriter, r *http.Request) {
	journal, err := h.journalUC.VoidJournal(r.Context(), scopeOf(r), idParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalFromDomain(journal))
}
