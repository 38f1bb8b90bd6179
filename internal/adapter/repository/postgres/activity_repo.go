package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// ActivityRepository implements usecase.ActivityRepository.
type ActivityRepository struct {
	db DBTX
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts an activity log entry.
func (r *ActivityRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.ActivityLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	var details []byte
	if entry.Details != nil {
		var err error
		if details, err = json.Marshal(entry.Details); err != nil {
			return err
		}
	}

	_, err := conn(r.db, tx).Exec(ctx, `
		INSERT INTO activity_log (id, organization_id, entity_type, entity_id, action, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.OrganizationID, entry.EntityType, entry.EntityID, entry.Action, entry.ActorID, details, entry.CreatedAt)

	return err
}

// List returns the history of one entity, newest first.
func (r *ActivityRepository) List(ctx context.Context, orgID, entityType, entityID string, limit, offset int) ([]*domain.ActivityLogEntry, error) {
	query, args := appendPage(`
		SELECT id, organization_id, entity_type, entity_id, action, actor_id, details, created_at
		FROM activity_log
		WHERE organization_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC, seq DESC`, []any{orgID, entityType, entityID}, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.ActivityLogEntry, 0)
	for rows.Next() {
		var (
			e       domain.ActivityLogEntry
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.EntityType, &e.EntityID, &e.Action, &e.ActorID, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if details != nil {
			_ = json.Unmarshal(details, &e.Details)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
