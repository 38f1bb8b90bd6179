package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
)

type ActivityService interface {
	ListActivity(ctx context.Context, scope domain.Scope, entityType, entityID string, limit, offset int) ([]*domain.ActivityLogEntry, error)
}

// ActivityHandler serves the audit trail of one entity.
type ActivityHandler struct {
	activityUC ActivityService
}

func NewActivityHandler(activityUC ActivityService) *ActivityHandler {
	return &ActivityHandler{activityUC: activityUC}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	entries, err := h.activityUC.ListActivity(r.Context(), scopeOf(r), chi.URLParam(r, "entityType"), chi.URLParam(r, "entityId"), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.ActivityResponse]{
		Data:   dto.ActivitiesFromDomain(entries),
		Limit:  limit,
		Offset: offset,
	})
}
