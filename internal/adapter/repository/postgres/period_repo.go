package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gobooks/internal/domain"
)

const periodColumns = `id, organization_id, name, start_date, end_date, status, created_at, updated_at`

// PeriodRepository implements usecase.PeriodRepository.
type PeriodRepository struct {
	db DBTX
}

// NewPeriodRepository creates a new PeriodRepository.
func NewPeriodRepository(db DBTX) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// Create inserts a period.
func (r *PeriodRepository) Create(ctx context.Context, p *domain.Period) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounting_periods (`+periodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrganizationID, p.Name, dateOnly(p.StartDate), dateOnly(p.EndDate), p.Status, p.CreatedAt, p.UpdatedAt)

	return err
}

// Update writes name, range and status.
func (r *PeriodRepository) Update(ctx context.Context, p *domain.Period) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounting_periods
		SET name = $3, start_date = $4, end_date = $5, status = $6, updated_at = $7
		WHERE organization_id = $1 AND id = $2`,
		p.OrganizationID, p.ID, p.Name, dateOnly(p.StartDate), dateOnly(p.EndDate), p.Status, p.UpdatedAt)

	return affected(tag, err, domain.ErrPeriodNotFound)
}

// GetByID retrieves a period.
func (r *PeriodRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Period, error) {
	row := r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE organization_id = $1 AND id = $2`, orgID, id)

	p, err := scanPeriod(row)
	if err != nil {
		return nil, notFound(err, domain.ErrPeriodNotFound)
	}

	return p, nil
}

// List returns the organization's periods by start date.
func (r *PeriodRepository) List(ctx context.Context, orgID string) ([]*domain.Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE organization_id = $1 ORDER BY start_date`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]*domain.Period, 0)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}

	return periods, rows.Err()
}

func scanPeriod(row pgx.Row) (*domain.Period, error) {
	var p domain.Period
	if err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	return &p, nil
}
