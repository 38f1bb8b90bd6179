package usecase

import (
	"context"

	"github.com/iho/gobooks/internal/domain"
)

// ActivityUseCase reads the activity log.
type ActivityUseCase struct {
	activityRepo ActivityRepository
}

// NewActivityUseCase creates a new ActivityUseCase.
func NewActivityUseCase(activityRepo ActivityRepository) *ActivityUseCase {
	return &ActivityUseCase{activityRepo: activityRepo}
}

// ListActivity returns the history of one entity, newest first.
func (uc *ActivityUseCase) ListActivity(ctx context.Context, scope domain.Scope, entityType, entityID string, limit, offset int) ([]*domain.ActivityLogEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := domain.RequireField("entity_type", entityType); err != nil {
		return nil, err
	}
	if err := domain.RequireField("entity_id", entityID); err != nil {
		return nil, err
	}

	limit, offset, _ = domain.ValidatePagination(limit, offset)

	return uc.activityRepo.List(ctx, scope.OrganizationID, entityType, entityID, limit, offset)
}
