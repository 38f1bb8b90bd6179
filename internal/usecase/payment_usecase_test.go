package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
	"github.com/iho/gobooks/internal/usecase/mocks"
)

func approvedBill(t *testing.T, l *ledger, amount string) *domain.Bill {
	t.Helper()
	input := billInput("vendor-1", "PAY-"+amount, amount, day(2025, 4, 1))
	input.Status = domain.DocumentStatusApproved
	return l.createBill(t, input)
}

func TestPaymentUseCase_Settlement(t *testing.T) {
	tests := []struct {
		name       string
		payments   []string
		wantStatus domain.DocumentStatus
		wantPaid   string
		wantDue    string
	}{
		{name: "partial", payments: []string{"40"}, wantStatus: domain.DocumentStatusPartiallyPaid, wantPaid: "40", wantDue: "60"},
		{name: "two partials settle", payments: []string{"40", "60"}, wantStatus: domain.DocumentStatusPaid, wantPaid: "100", wantDue: "0"},
		{name: "single full payment", payments: []string{"100"}, wantStatus: domain.DocumentStatusPaid, wantPaid: "100", wantDue: "0"},
		{name: "cents", payments: []string{"33.33", "33.33", "33.34"}, wantStatus: domain.DocumentStatusPaid, wantPaid: "100", wantDue: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			bill := approvedBill(t, l, "100")

			var res *usecase.PaymentResult
			for _, amount := range tt.payments {
				var err error
				res, err = l.payments.RecordPayment(context.Background(), orgScope, domain.DocumentKindBill, bill.ID, usecase.RecordPaymentInput{
					Amount: dec(amount),
					Method: "card",
				})
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantStatus, res.Document.Status)
			requireDecimal(t, tt.wantPaid, res.Document.AmountPaid)
			requireDecimal(t, tt.wantDue, res.Document.AmountDue)

			stored, err := l.bills.GetBill(context.Background(), orgScope, bill.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			requireDecimal(t, tt.wantPaid, stored.AmountPaid)
		})
	}
}

func TestPaymentUseCase_Rejections(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	bill := approvedBill(t, l, "100")
	draft := l.createBill(t, billInput("vendor-1", "DRAFT-1", "100", day(2025, 8, 1)))

	_, err := l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindBill, bill.ID, usecase.RecordPaymentInput{
		Amount: dec("100.01"), Method: "card",
	})
	var over *domain.OverpaymentError
	require.True(t, errors.As(err, &over))
	requireDecimal(t, "100", over.AmountDue)

	_, err = l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindBill, bill.ID, usecase.RecordPaymentInput{
		Amount: dec("0"), Method: "card",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindBill, bill.ID, usecase.RecordPaymentInput{
		Amount: dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrMissingField)

	_, err = l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindBill, draft.ID, usecase.RecordPaymentInput{
		Amount: dec("10"), Method: "card",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = l.payments.RecordPayment(ctx, otherScope, domain.DocumentKindBill, bill.ID, usecase.RecordPaymentInput{
		Amount: dec("10"), Method: "card",
	})
	assert.ErrorIs(t, err, domain.ErrBillNotFound)

	stored, err := l.bills.GetBill(ctx, orgScope, bill.ID)
	require.NoError(t, err)
	requireDecimal(t, "0", stored.AmountPaid)
	assert.Equal(t, domain.DocumentStatusApproved, stored.Status)

	payments, err := l.payments.ListPayments(ctx, orgScope, domain.DocumentKindBill, bill.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestPaymentUseCase_UpdateAndDelete(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	invoice := l.sentInvoice(t, "200")

	first, err := l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, usecase.RecordPaymentInput{
		Amount: dec("150"), PaymentDate: day(2025, 3, 10), Method: "wire",
	})
	require.NoError(t, err)
	second, err := l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, usecase.RecordPaymentInput{
		Amount: dec("50"), PaymentDate: day(2025, 3, 12), Method: "wire",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPaid, second.Document.Status)

	// Raising one payment above what the others leave due is rejected.
	_, err = l.payments.UpdatePayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, first.Payment.ID, usecase.UpdatePaymentInput{
		Amount: ptr(dec("160")),
	})
	require.ErrorIs(t, err, domain.ErrOverpayment)

	updated, err := l.payments.UpdatePayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, first.Payment.ID, usecase.UpdatePaymentInput{
		Amount:          ptr(dec("100")),
		ReferenceNumber: ptr("REF-9"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPartiallyPaid, updated.Document.Status)
	requireDecimal(t, "150", updated.Document.AmountPaid)
	requireDecimal(t, "50", updated.Document.AmountDue)
	assert.Nil(t, updated.Document.PaidAt)
	require.NotNil(t, updated.Payment.ReferenceNumber)
	assert.Equal(t, "REF-9", *updated.Payment.ReferenceNumber)

	doc, err := l.payments.DeletePayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, second.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPartiallyPaid, doc.Status)
	requireDecimal(t, "100", doc.AmountPaid)

	doc, err = l.payments.DeletePayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, first.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusSent, doc.Status)
	requireDecimal(t, "200", doc.AmountDue)

	_, err = l.payments.DeletePayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, first.Payment.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestPaymentUseCase_PaymentBelongsToDocument(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	a := approvedBill(t, l, "100")
	b := approvedBill(t, l, "300")

	res, err := l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindBill, a.ID, usecase.RecordPaymentInput{
		Amount: dec("10"), Method: "card",
	})
	require.NoError(t, err)

	_, err = l.payments.DeletePayment(ctx, orgScope, domain.DocumentKindBill, b.ID, res.Payment.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	_, err = l.payments.DeletePayment(ctx, orgScope, domain.DocumentKindInvoice, a.ID, res.Payment.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestPaymentUseCase_PaymentsDoNotTouchLedger(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	bill := approvedBill(t, l, "100")
	journals := l.repos.Journals.Count()

	_, err := l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindBill, bill.ID, usecase.RecordPaymentInput{
		Amount: dec("100"), Method: "card",
	})
	require.NoError(t, err)

	assert.Equal(t, journals, l.repos.Journals.Count())
	requireDecimal(t, "100", l.balance(t, orgScope, domain.CodeAccountsPayable))
	requireDecimal(t, "0", l.balance(t, orgScope, domain.CodeCash))
}

func TestPaymentUseCase_WritesRunUnderRetrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	retrier := mocks.NewMockRetrier(ctrl)
	metrics := mocks.NewMockMetrics(ctrl)
	invalidator := mocks.NewMockReportInvalidator(ctrl)

	// Re-run the operation once on failure, the way a conflict is retried.
	attempts := 0
	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, op func() error) error {
		attempts++
		if err := op(); err != nil {
			attempts++
			return op()
		}
		return nil
	}).AnyTimes()

	metrics.EXPECT().JournalPosted(gomock.Any()).AnyTimes()
	metrics.EXPECT().BalancesRecalculated(gomock.Any(), gomock.Any()).AnyTimes()
	metrics.EXPECT().DocumentTransitioned(gomock.Any(), gomock.Any()).AnyTimes()
	metrics.EXPECT().PaymentRecorded(domain.DocumentKindInvoice).Times(1)
	invalidator.EXPECT().Invalidate(gomock.Any(), orgScope.OrganizationID).Return(nil).AnyTimes()

	l := newLedgerWith(t, usecase.Runtime{Retrier: retrier, Metrics: metrics, Invalidator: invalidator})
	ctx := context.Background()
	invoice := l.sentInvoice(t, "200")

	// The first transaction of each write fails to begin.
	conflict := errors.New("could not obtain lock")
	failNextBegin := func() {
		l.repos.TxManager.BeginFunc = func(context.Context) (usecase.Transaction, error) {
			l.repos.TxManager.BeginFunc = nil
			return nil, conflict
		}
	}

	failNextBegin()
	before := attempts
	recorded, err := l.payments.RecordPayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, usecase.RecordPaymentInput{
		Amount: dec("120"), Method: "wire",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts-before)
	requireDecimal(t, "80", recorded.Document.AmountDue)

	failNextBegin()
	before = attempts
	updated, err := l.payments.UpdatePayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, recorded.Payment.ID, usecase.UpdatePaymentInput{
		Amount: ptr(dec("150")),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts-before)
	requireDecimal(t, "50", updated.Document.AmountDue)

	failNextBegin()
	before = attempts
	doc, err := l.payments.DeletePayment(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID, recorded.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts-before)
	assert.Equal(t, domain.DocumentStatusSent, doc.Status)
	requireDecimal(t, "200", doc.AmountDue)

	payments, err := l.payments.ListPayments(ctx, orgScope, domain.DocumentKindInvoice, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}
