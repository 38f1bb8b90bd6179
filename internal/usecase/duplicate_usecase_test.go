package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

func TestDuplicateUseCase_CheckForDuplicateBill(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	exact := l.createBill(t, billInput("vendor-1", "DUP-A", "1000", day(2025, 6, 1)))
	near := l.createBill(t, billInput("vendor-1", "DUP-B", "1009", day(2025, 6, 2)))
	later := l.createBill(t, billInput("vendor-1", "DUP-C", "1005", day(2025, 6, 20)))
	l.createBill(t, billInput("vendor-1", "DUP-D", "1011", day(2025, 6, 1)))
	l.createBill(t, billInput("vendor-2", "DUP-E", "1000", day(2025, 6, 1)))

	duplicates := usecase.NewDuplicateUseCase(l.repos.Bills, nil)

	tests := []struct {
		name           string
		query          domain.DuplicateQuery
		wantConfidence domain.DuplicateConfidence
		wantIDs        []string
	}{
		{
			name: "same vendor invoice number",
			query: domain.DuplicateQuery{
				VendorID: "vendor-1", VendorInvoiceNumber: " DUP-A ",
			},
			wantConfidence: domain.DuplicateConfidenceHigh,
			wantIDs:        []string{exact.ID},
		},
		{
			name: "amount and date ranked by score",
			query: domain.DuplicateQuery{
				VendorID: "vendor-1", Amount: dec("1000"), BillDate: day(2025, 6, 1), ExcludeID: exact.ID,
			},
			wantConfidence: domain.DuplicateConfidenceMedium,
			wantIDs:        []string{near.ID, later.ID},
		},
		{
			name: "exact match listed once",
			query: domain.DuplicateQuery{
				VendorID: "vendor-1", VendorInvoiceNumber: "DUP-A", Amount: dec("1000"), BillDate: day(2025, 6, 1),
			},
			wantConfidence: domain.DuplicateConfidenceHigh,
			wantIDs:        []string{exact.ID, near.ID, later.ID},
		},
		{
			name: "outside the date window",
			query: domain.DuplicateQuery{
				VendorID: "vendor-1", Amount: dec("1000"), BillDate: day(2025, 9, 1),
			},
			wantConfidence: domain.DuplicateConfidenceNone,
		},
		{
			name: "other vendor",
			query: domain.DuplicateQuery{
				VendorID: "vendor-3", VendorInvoiceNumber: "DUP-A", Amount: dec("1000"), BillDate: day(2025, 6, 1),
			},
			wantConfidence: domain.DuplicateConfidenceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := duplicates.CheckForDuplicateBill(ctx, orgScope, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfidence, result.Confidence)
			assert.Equal(t, len(tt.wantIDs) > 0, result.IsDuplicate)

			ids := make([]string, len(result.Matches))
			for i, m := range result.Matches {
				ids[i] = m.BillID
			}
			if len(tt.wantIDs) == 0 {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	_, err := duplicates.CheckForDuplicateBill(ctx, otherScope, domain.DuplicateQuery{})
	assert.ErrorIs(t, err, domain.ErrMissingField)
}
