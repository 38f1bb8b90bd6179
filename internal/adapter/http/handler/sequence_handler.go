package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
)

// SequenceService issues document numbers.
type SequenceService interface {
	Next(ctx context.Context, scope domain.Scope, kind domain.SequenceKind) (string, error)
}

type SequenceHandler struct {
	numbering SequenceService
}

func NewSequenceHandler(numbering SequenceService) *SequenceHandler {
	return &SequenceHandler{numbering: numbering}
}

// Next reserves the next number of the kind in the URL.
func (h *SequenceHandler) Next(w http.ResponseWriter, r *http.Request) {
	kind := domain.SequenceKind(chi.URLParam(r, "kind"))

	number, err := h.numbering.Next(r.Context(), scopeOf(r), kind)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SequenceResponse{Kind: string(kind), Number: number})
}
