package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

func TestPeriodUseCase_CreatePeriod(t *testing.T) {
	tests := []struct {
		name      string
		input     usecase.CreatePeriodInput
		errorType error
	}{
		{
			name:  "adjacent month",
			input: usecase.CreatePeriodInput{Name: "2025-02", StartDate: day(2025, 2, 1), EndDate: day(2025, 2, 28)},
		},
		{
			name:      "overlaps january",
			input:     usecase.CreatePeriodInput{Name: "Q1", StartDate: day(2025, 1, 15), EndDate: day(2025, 3, 31)},
			errorType: domain.ErrPeriodOverlap,
		},
		{
			name:      "shares the last day",
			input:     usecase.CreatePeriodInput{Name: "late", StartDate: day(2025, 1, 31), EndDate: day(2025, 2, 10)},
			errorType: domain.ErrPeriodOverlap,
		},
		{
			name:      "inverted range",
			input:     usecase.CreatePeriodInput{Name: "bad", StartDate: day(2025, 5, 1), EndDate: day(2025, 4, 1)},
			errorType: domain.ErrInvalidPeriodRange,
		},
		{
			name:      "missing name",
			input:     usecase.CreatePeriodInput{StartDate: day(2025, 5, 1), EndDate: day(2025, 5, 31)},
			errorType: domain.ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			ctx := context.Background()
			_, err := l.periods.CreatePeriod(ctx, orgScope, usecase.CreatePeriodInput{
				Name: "2025-01", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 31),
			})
			require.NoError(t, err)

			period, err := l.periods.CreatePeriod(ctx, orgScope, tt.input)
			if tt.errorType != nil {
				require.ErrorIs(t, err, tt.errorType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.PeriodStatusOpen, period.Status)

			periods, err := l.periods.ListPeriods(ctx, orgScope)
			require.NoError(t, err)
			require.Len(t, periods, 2)
			assert.Equal(t, "2025-01", periods[0].Name)
		})
	}
}

func TestPeriodUseCase_CloseAndReopen(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	period, err := l.periods.CreatePeriod(ctx, orgScope, usecase.CreatePeriodInput{
		Name: "2025-01", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 31),
	})
	require.NoError(t, err)

	closed, err := l.periods.ClosePeriod(ctx, orgScope, period.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodStatusClosed, closed.Status)

	again, err := l.periods.ClosePeriod(ctx, orgScope, period.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodStatusClosed, again.Status)

	reopened, err := l.periods.ReopenPeriod(ctx, orgScope, period.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodStatusOpen, reopened.Status)

	_, err = l.periods.ClosePeriod(ctx, otherScope, period.ID)
	assert.ErrorIs(t, err, domain.ErrPeriodNotFound)

	// Periods of other organizations never overlap ours.
	_, err = l.periods.CreatePeriod(ctx, otherScope, usecase.CreatePeriodInput{
		Name: "2025-01", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 31),
	})
	require.NoError(t, err)
}
