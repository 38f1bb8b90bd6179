package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

func TestActivityUseCase_ListActivity(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	activity := usecase.NewActivityUseCase(l.repos.Activity)

	bill := l.createBill(t, billInput("vendor-1", "ACT-1", "60", day(2025, 5, 1)))
	_, err := l.bills.ApproveBill(ctx, orgScope, bill.ID)
	require.NoError(t, err)
	_, err = l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindBill, bill.ID, usecase.RecordPaymentInput{
		Amount: dec("60"), Method: "wire",
	})
	require.NoError(t, err)

	entries, err := activity.ListActivity(ctx, orgScope, domain.EntityBill, bill.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.ActivityPaymentAdded, entries[0].Action)
	assert.Equal(t, domain.ActivityStatusChanged, entries[1].Action)
	assert.Equal(t, domain.ActivityCreated, entries[2].Action)
	for _, e := range entries {
		assert.Equal(t, "org-1", e.OrganizationID)
	}

	page, err := activity.ListActivity(ctx, orgScope, domain.EntityBill, bill.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, domain.ActivityStatusChanged, page[0].Action)

	foreign, err := activity.ListActivity(ctx, otherScope, domain.EntityBill, bill.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, foreign)

	_, err = activity.ListActivity(ctx, orgScope, "", bill.ID, 0, 0)
	assert.ErrorIs(t, err, domain.ErrMissingField)
}
