package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

func TestBillUseCase_Lifecycle(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	res, err := l.bills.CreateBill(ctx, orgScope, usecase.CreateBillInput{
		VendorID:            "vendor-1",
		CurrencyID:          "usd",
		VendorInvoiceNumber: "  A-100 ",
		IssueDate:           day(2025, 4, 1),
		LineItems: []usecase.LineItemInput{
			{Description: "Paper", Quantity: dec("2"), UnitPrice: dec("50")},
		},
		Taxes: []usecase.TaxInput{{Name: "VAT", Percentage: dec("10")}},
	})
	require.NoError(t, err)
	bill := res.Bill

	assert.Equal(t, domain.DocumentStatusDraft, bill.Status)
	assert.Equal(t, "BILL-2025-0001", bill.Number)
	assert.Equal(t, "A-100", bill.VendorInvoiceNumber)
	requireDecimal(t, "100", bill.Subtotal)
	requireDecimal(t, "10", bill.TaxAmount)
	requireDecimal(t, "110", bill.Total)
	requireDecimal(t, "110", bill.AmountDue)
	assert.Nil(t, res.Ledger)
	assert.Zero(t, l.repos.Journals.Count())

	approved, err := l.bills.ApproveBill(ctx, orgScope, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusApproved, approved.Bill.Status)
	require.NotNil(t, approved.Bill.ApprovedBy)
	assert.Equal(t, orgScope.ActorID, *approved.Bill.ApprovedBy)
	require.NotNil(t, approved.Ledger)
	assert.Equal(t, domain.LedgerPosted, approved.Ledger.Status)

	journal, err := l.journals.GetJournal(ctx, orgScope, approved.Ledger.JournalID)
	require.NoError(t, err)
	assert.Equal(t, domain.JournalSourcePayables, journal.Source)
	require.NotNil(t, journal.SourceID)
	assert.Equal(t, bill.ID, *journal.SourceID)
	assert.Equal(t, domain.JournalStatusPosted, journal.Status)

	requireDecimal(t, "110", l.balance(t, orgScope, domain.CodeExpense))
	requireDecimal(t, "110", l.balance(t, orgScope, domain.CodeAccountsPayable))

	_, err = l.bills.UpdateBill(ctx, orgScope, bill.ID, usecase.UpdateBillInput{Notes: ptr("late")})
	assert.ErrorIs(t, err, domain.ErrDocumentNotEditable)
	assert.ErrorIs(t, l.bills.DeleteBill(ctx, orgScope, bill.ID), domain.ErrDocumentNotEditable)

	paid, err := l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindBill, bill.ID, usecase.RecordPaymentInput{
		Amount:      dec("110"),
		PaymentDate: day(2025, 4, 20),
		Method:      "bank_transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPaid, paid.Document.Status)
	assert.NotNil(t, paid.Document.PaidAt)

	// Approving again only reports the existing journal.
	again, err := l.bills.ApproveBill(ctx, orgScope, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPaid, again.Bill.Status)
	assert.Equal(t, domain.LedgerAlreadyPosted, again.Ledger.Status)
	assert.Equal(t, approved.Ledger.JournalID, again.Ledger.JournalID)

	_, err = l.bills.CancelBill(ctx, orgScope, bill.ID)
	var transition *domain.TransitionError
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, "paid", transition.From)

	assert.Equal(t, 1, l.repos.Journals.Count())
	assert.Equal(t, []string{
		domain.EventTypeBillApproved,
		domain.EventTypeJournalPosted,
		domain.EventTypePaymentRecorded,
	}, l.repos.Outbox.EventTypes())
}

func TestBillUseCase_CreateApprovedPostsImmediately(t *testing.T) {
	l := newLedger(t)
	input := billInput("vendor-1", "X-1", "80", day(2025, 4, 1))
	input.Status = domain.DocumentStatusApproved

	res, err := l.bills.CreateBill(context.Background(), orgScope, input)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusApproved, res.Bill.Status)
	require.NotNil(t, res.Ledger)
	assert.Equal(t, domain.LedgerPosted, res.Ledger.Status)
	requireDecimal(t, "80", l.balance(t, orgScope, domain.CodeAccountsPayable))
}

func TestBillUseCase_CreateBill_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*usecase.CreateBillInput)
		errorType error
	}{
		{
			name:      "no line items",
			mutate:    func(in *usecase.CreateBillInput) { in.LineItems = nil },
			errorType: domain.ErrNoLineItems,
		},
		{
			name: "zero quantity",
			mutate: func(in *usecase.CreateBillInput) {
				in.LineItems = []usecase.LineItemInput{{Description: "x", Quantity: dec("0"), UnitPrice: dec("1")}}
			},
			errorType: domain.ErrInvalidLineItem,
		},
		{
			name:      "negative tax",
			mutate:    func(in *usecase.CreateBillInput) { in.Taxes = []usecase.TaxInput{{Name: "VAT", Percentage: dec("-1")}} },
			errorType: domain.ErrInvalidTax,
		},
		{
			name:      "missing vendor",
			mutate:    func(in *usecase.CreateBillInput) { in.VendorID = "" },
			errorType: domain.ErrMissingField,
		},
		{
			name:      "unknown vendor",
			mutate:    func(in *usecase.CreateBillInput) { in.VendorID = "vendor-x" },
			errorType: domain.ErrVendorNotFound,
		},
		{
			name:      "unknown purchase order",
			mutate:    func(in *usecase.CreateBillInput) { in.PurchaseOrderID = ptr("po-x") },
			errorType: domain.ErrPurchaseOrderNotFound,
		},
		{
			name:      "initial status paid",
			mutate:    func(in *usecase.CreateBillInput) { in.Status = domain.DocumentStatusPaid },
			errorType: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			l.repos.Directory.Vendors = map[string]bool{"org-1|vendor-1": true}
			l.repos.Directory.PurchaseOrders = map[string]bool{"org-1|po-1": true}

			input := billInput("vendor-1", "A-1", "10", day(2025, 4, 1))
			tt.mutate(&input)

			_, err := l.bills.CreateBill(context.Background(), orgScope, input)
			require.ErrorIs(t, err, tt.errorType)
			assert.Zero(t, l.repos.Bills.Count())
		})
	}
}

func TestBillUseCase_DuplicateDetection(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	first := l.createBill(t, billInput("vendor-1", "INV-77", "1000", day(2025, 5, 10)))

	// Same vendor invoice number blocks the bill.
	_, err := l.bills.CreateBill(ctx, orgScope, billInput("vendor-1", " INV-77", "5", day(2025, 9, 1)))
	require.ErrorIs(t, err, domain.ErrDuplicateBill)
	var dup *usecase.DuplicateBillError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, domain.DuplicateConfidenceHigh, dup.Result.Confidence)
	assert.Equal(t, first.ID, dup.Result.Matches[0].BillID)
	assert.Equal(t, 1, l.repos.Bills.Count())

	// The override accepts it with a warning.
	override := billInput("vendor-1", "INV-77", "5", day(2025, 9, 1))
	override.AllowDuplicate = true
	res, err := l.bills.CreateBill(ctx, orgScope, override)
	require.NoError(t, err)
	require.NotNil(t, res.Duplicate)
	assert.Equal(t, domain.DuplicateConfidenceHigh, res.Duplicate.Confidence)

	// Close amount and date warn without blocking.
	res, err = l.bills.CreateBill(ctx, orgScope, billInput("vendor-1", "INV-78", "1005", day(2025, 5, 20)))
	require.NoError(t, err)
	require.NotNil(t, res.Duplicate)
	assert.Equal(t, domain.DuplicateConfidenceMedium, res.Duplicate.Confidence)
	assert.Equal(t, domain.DuplicateReasonAmountDate, res.Duplicate.Matches[0].Reason)

	// Another vendor never matches.
	res, err = l.bills.CreateBill(ctx, orgScope, billInput("vendor-2", "INV-77", "1000", day(2025, 5, 10)))
	require.NoError(t, err)
	assert.Nil(t, res.Duplicate)

	// Cancelled bills are ignored.
	_, err = l.bills.CancelBill(ctx, orgScope, first.ID)
	require.NoError(t, err)
	check, err := usecase.NewDuplicateUseCase(l.repos.Bills, nil).CheckForDuplicateBill(ctx, orgScope, domain.DuplicateQuery{
		VendorID:            "vendor-1",
		VendorInvoiceNumber: "INV-99",
		Amount:              dec("1000"),
		BillDate:            day(2025, 5, 10),
	})
	require.NoError(t, err)
	for _, m := range check.Matches {
		assert.NotEqual(t, first.ID, m.BillID)
	}
}

func TestBillUseCase_UpdateDraft(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	bill := l.createBill(t, billInput("vendor-1", "U-1", "10", day(2025, 4, 1)))

	res, err := l.bills.UpdateBill(ctx, orgScope, bill.ID, usecase.UpdateBillInput{
		VendorInvoiceNumber: ptr("U-2"),
		LineItems: []usecase.LineItemInput{
			{Description: "Desk", Quantity: dec("3"), UnitPrice: dec("12.50")},
		},
		Taxes: []usecase.TaxInput{{Name: "GST", Percentage: dec("5")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "U-2", res.Bill.VendorInvoiceNumber)
	requireDecimal(t, "37.5", res.Bill.Subtotal)
	requireDecimal(t, "1.88", res.Bill.TaxAmount)
	requireDecimal(t, "39.38", res.Bill.Total)

	stored, err := l.bills.GetBill(ctx, orgScope, bill.ID)
	require.NoError(t, err)
	require.Len(t, stored.LineItems, 1)
	assert.Equal(t, "Desk", stored.LineItems[0].Description)

	require.NoError(t, l.bills.DeleteBill(ctx, orgScope, bill.ID))
	_, err = l.bills.GetBill(ctx, orgScope, bill.ID)
	assert.ErrorIs(t, err, domain.ErrBillNotFound)
}

func TestBillUseCase_UpdateTaxesOnly(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	bill := l.createBill(t, billInput("vendor-1", "T-1", "100", day(2025, 4, 1)))

	res, err := l.bills.UpdateBill(ctx, orgScope, bill.ID, usecase.UpdateBillInput{
		Taxes: []usecase.TaxInput{{Name: "VAT", Percentage: dec("10")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Bill.Taxes, 1)
	require.Len(t, res.Bill.LineItems, 1)
	assert.Equal(t, "Office supplies", res.Bill.LineItems[0].Description)
	requireDecimal(t, "100", res.Bill.Subtotal)
	requireDecimal(t, "10", res.Bill.TaxAmount)
	requireDecimal(t, "110", res.Bill.Total)
	requireDecimal(t, "110", res.Bill.AmountDue)

	stored, err := l.bills.GetBill(ctx, orgScope, bill.ID)
	require.NoError(t, err)
	require.Len(t, stored.Taxes, 1)
	requireDecimal(t, "110", stored.Total)

	cleared, err := l.bills.UpdateBill(ctx, orgScope, bill.ID, usecase.UpdateBillInput{Taxes: []usecase.TaxInput{}})
	require.NoError(t, err)
	assert.Empty(t, cleared.Bill.Taxes)
	requireDecimal(t, "100", cleared.Bill.Total)

	untouched, err := l.bills.UpdateBill(ctx, orgScope, bill.ID, usecase.UpdateBillInput{Notes: ptr("net 30")})
	require.NoError(t, err)
	requireDecimal(t, "100", untouched.Bill.Total)
	require.Len(t, untouched.Bill.LineItems, 1)
}

func TestBillUseCase_ConcurrentApprovalPostsOnce(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	bill := l.createBill(t, billInput("vendor-1", "C-1", "500", day(2025, 4, 1)))

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = make(map[domain.LedgerPostingStatus]int)
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.bills.ApproveBill(ctx, orgScope, bill.ID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			statuses[res.Ledger.Status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, statuses[domain.LedgerPosted])
	assert.Equal(t, callers-1, statuses[domain.LedgerAlreadyPosted])
	assert.Equal(t, 1, l.repos.Journals.CountBySource(orgScope.OrganizationID, domain.JournalSourcePayables, bill.ID))
	requireDecimal(t, "500", l.balance(t, orgScope, domain.CodeAccountsPayable))
	requireDecimal(t, "500", l.balance(t, orgScope, domain.CodeExpense))
}

func TestBillUseCase_LedgerFailureKeepsApproval(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	april, err := l.periods.CreatePeriod(ctx, orgScope, usecase.CreatePeriodInput{
		Name: "2025-04", StartDate: day(2025, 4, 1), EndDate: day(2025, 4, 30), Closed: true,
	})
	require.NoError(t, err)

	bill := l.createBill(t, billInput("vendor-1", "F-1", "60", day(2025, 4, 2)))

	res, err := l.bills.ApproveBill(ctx, orgScope, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusApproved, res.Bill.Status)
	require.True(t, res.Ledger.Failed())
	assert.Contains(t, res.Ledger.Error, domain.ErrPeriodClosed.Error())
	assert.True(t, res.Ledger.Retryable)
	assert.Zero(t, l.repos.Journals.Count())

	unposted, err := l.reconcile.UnpostedDocuments(ctx, orgScope)
	require.NoError(t, err)
	require.Len(t, unposted, 1)
	assert.Equal(t, bill.ID, unposted[0].ID)

	_, err = l.periods.ReopenPeriod(ctx, orgScope, april.ID)
	require.NoError(t, err)

	backfill, err := l.bills.PostBillToLedger(ctx, orgScope, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerPosted, backfill.Ledger.Status)

	again, err := l.bills.PostBillToLedger(ctx, orgScope, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerAlreadyPosted, again.Ledger.Status)

	unposted, err = l.reconcile.UnpostedDocuments(ctx, orgScope)
	require.NoError(t, err)
	assert.Empty(t, unposted)
}

func TestBillUseCase_PostDraftToLedgerRejected(t *testing.T) {
	l := newLedger(t)
	bill := l.createBill(t, billInput("vendor-1", "D-1", "60", day(2025, 4, 2)))

	_, err := l.bills.PostBillToLedger(context.Background(), orgScope, bill.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestBillUseCase_StatusTransitions(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	bill := l.createBill(t, billInput("vendor-1", "S-1", "60", day(2025, 4, 2)))

	res, err := l.bills.UpdateBillStatus(ctx, orgScope, bill.ID, domain.DocumentStatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPending, res.Bill.Status)

	_, err = l.bills.UpdateBillStatus(ctx, orgScope, bill.ID, domain.DocumentStatusDraft)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	res, err = l.bills.UpdateBillStatus(ctx, orgScope, bill.ID, domain.DocumentStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusCancelled, res.Bill.Status)

	_, err = l.bills.ApproveBill(ctx, orgScope, bill.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestBillUseCase_PurchaseOrderRollup(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	first := billInput("vendor-1", "P-1", "300", day(2025, 4, 2))
	first.PurchaseOrderID = ptr("po-1")
	a := l.createBill(t, first)

	second := billInput("vendor-1", "P-2", "200", day(2025, 6, 2))
	second.PurchaseOrderID = ptr("po-1")
	l.createBill(t, second)

	requireDecimal(t, "500", l.repos.Bills.PurchaseOrderBilled("org-1", "po-1"))

	_, err := l.bills.CancelBill(ctx, orgScope, a.ID)
	require.NoError(t, err)
	requireDecimal(t, "200", l.repos.Bills.PurchaseOrderBilled("org-1", "po-1"))
}

func TestBillUseCase_ListBills(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	l.createBill(t, billInput("vendor-1", "L-1", "10", day(2025, 4, 2)))
	approved := billInput("vendor-2", "L-2", "20", day(2025, 4, 3))
	approved.Status = domain.DocumentStatusApproved
	l.createBill(t, approved)

	all, err := l.bills.ListBills(ctx, orgScope, usecase.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := l.bills.ListBills(ctx, orgScope, usecase.DocumentFilter{Statuses: []domain.DocumentStatus{domain.DocumentStatusApproved}})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "vendor-2", open[0].CounterpartyID)

	byVendor, err := l.bills.ListBills(ctx, orgScope, usecase.DocumentFilter{CounterpartyID: "vendor-1"})
	require.NoError(t, err)
	assert.Len(t, byVendor, 1)

	others, err := l.bills.ListBills(ctx, otherScope, usecase.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, others)
}
