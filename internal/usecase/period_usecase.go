package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iho/gobooks/internal/domain"
)

// PeriodUseCase manages the accounting periods that gate posting.
type PeriodUseCase struct {
	periodRepo PeriodRepository
	idGen      IDGenerator
	rt         Runtime
}

// NewPeriodUseCase creates a new PeriodUseCase.
func NewPeriodUseCase(periodRepo PeriodRepository, idGen IDGenerator, rt Runtime) *PeriodUseCase {
	return &PeriodUseCase{periodRepo: periodRepo, idGen: idGen, rt: rt.withDefaults()}
}

// CreatePeriodInput represents input for creating a period.
type CreatePeriodInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Closed    bool
}

// CreatePeriod adds a period that does not overlap any existing one.
func (uc *PeriodUseCase) CreatePeriod(ctx context.Context, scope domain.Scope, input CreatePeriodInput) (*domain.Period, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := domain.RequireField("name", input.Name); err != nil {
		return nil, err
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates", domain.ErrMissingField)
	}
	if input.StartDate.After(input.EndDate) {
		return nil, fmt.Errorf("%w: %s > %s", domain.ErrInvalidPeriodRange,
			input.StartDate.Format(time.DateOnly), input.EndDate.Format(time.DateOnly))
	}

	now := uc.rt.Now()
	period := &domain.Period{
		ID:             uc.idGen.Generate(),
		OrganizationID: scope.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Status:         domain.PeriodStatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.Closed {
		period.Status = domain.PeriodStatusClosed
	}

	existing, err := uc.periodRepo.List(ctx, scope.OrganizationID)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.Overlaps(period) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPeriodOverlap, p.Name)
		}
	}

	if err := uc.periodRepo.Create(ctx, period); err != nil {
		return nil, err
	}

	return period, nil
}

// ClosePeriod stops posting into the period.
func (uc *PeriodUseCase) ClosePeriod(ctx context.Context, scope domain.Scope, id string) (*domain.Period, error) {
	return uc.setStatus(ctx, scope, id, domain.PeriodStatusClosed)
}

// ReopenPeriod allows posting into the period again.
func (uc *PeriodUseCase) ReopenPeriod(ctx context.Context, scope domain.Scope, id string) (*domain.Period, error) {
	return uc.setStatus(ctx, scope, id, domain.PeriodStatusOpen)
}

// ListPeriods lists the organization's periods ordered by start date.
func (uc *PeriodUseCase) ListPeriods(ctx context.Context, scope domain.Scope) ([]*domain.Period, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return uc.periodRepo.List(ctx, scope.OrganizationID)
}

func (uc *PeriodUseCase) setStatus(ctx context.Context, scope domain.Scope, id string, status domain.PeriodStatus) (*domain.Period, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	period, err := uc.periodRepo.GetByID(ctx, scope.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if period.Status == status {
		return period, nil
	}

	period.Status = status
	period.UpdatedAt = uc.rt.Now()

	if err := uc.periodRepo.Update(ctx, period); err != nil {
		return nil, err
	}

	return period, nil
}
