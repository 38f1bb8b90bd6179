package postgres

import (
	"context"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// SequenceRepository implements usecase.SequenceRepository.
type SequenceRepository struct {
	db DBTX
}

// NewSequenceRepository creates a new SequenceRepository.
func NewSequenceRepository(db DBTX) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments the (organization, kind, year) counter. The row stays
// locked until tx ends, so concurrent allocations serialize.
func (r *SequenceRepository) Next(ctx context.Context, tx usecase.Transaction, orgID string, kind domain.SequenceKind, year int) (int64, error) {
	var value int64
	err := conn(r.db, tx).QueryRow(ctx, `
		INSERT INTO document_sequences (organization_id, kind, year, value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (organization_id, kind, year)
		DO UPDATE SET value = document_sequences.value + 1
		RETURNING value`, orgID, kind, year).Scan(&value)

	return value, err
}
