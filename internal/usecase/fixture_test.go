package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
	"github.com/iho/gobooks/internal/usecase/mocks"
)

var (
	orgScope   = domain.Scope{OrganizationID: "org-1", ActorID: "user-1"}
	otherScope = domain.Scope{OrganizationID: "org-2", ActorID: "user-2"}
)

type ledger struct {
	repos     *mocks.Repos
	accounts  *usecase.AccountUseCase
	balances  *usecase.BalanceUseCase
	journals  *usecase.JournalUseCase
	bills     *usecase.BillUseCase
	invoices  *usecase.InvoiceUseCase
	payments  *usecase.PaymentUseCase
	periods   *usecase.PeriodUseCase
	reports   *usecase.ReportUseCase
	reconcile *usecase.ReconciliationUseCase
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	return newLedgerWith(t, usecase.Runtime{})
}

func newLedgerWith(t *testing.T, rt usecase.Runtime) *ledger {
	t.Helper()

	repos := mocks.NewRepos()
	store := repos.Store()

	reports := usecase.NewReportUseCase(store, nil, 0, rt)
	if rt.Invalidator == nil {
		rt.Invalidator = reports
	}

	accounts := usecase.NewAccountUseCase(repos.Accounts, repos.IDGen)
	balances := usecase.NewBalanceUseCase(repos.Accounts, repos.Journals, rt)
	journals := usecase.NewJournalUseCase(store, balances, rt)
	duplicates := usecase.NewDuplicateUseCase(repos.Bills, nil)

	return &ledger{
		repos:     repos,
		accounts:  accounts,
		balances:  balances,
		journals:  journals,
		bills:     usecase.NewBillUseCase(store, accounts, journals, duplicates, rt),
		invoices:  usecase.NewInvoiceUseCase(store, accounts, journals, rt, "INV"),
		payments:  usecase.NewPaymentUseCase(store, rt),
		periods:   usecase.NewPeriodUseCase(repos.Periods, repos.IDGen, rt),
		reports:   reports,
		reconcile: usecase.NewReconciliationUseCase(store, balances, rt),
	}
}

// account returns the organization's account with code, seeding the defaults.
func (l *ledger) account(t *testing.T, scope domain.Scope, code string) *domain.Account {
	t.Helper()
	acc, err := l.accounts.ResolveSystemAccount(context.Background(), scope, code)
	require.NoError(t, err)
	return acc
}

func (l *ledger) balance(t *testing.T, scope domain.Scope, code string) decimal.Decimal {
	t.Helper()
	return l.account(t, scope, code).CurrentBalance
}

func (l *ledger) createBill(t *testing.T, input usecase.CreateBillInput) *domain.Bill {
	t.Helper()
	res, err := l.bills.CreateBill(context.Background(), orgScope, input)
	require.NoError(t, err)
	return res.Bill
}

func (l *ledger) sentInvoice(t *testing.T, total string) *domain.Invoice {
	t.Helper()
	ctx := context.Background()
	res, err := l.invoices.CreateInvoice(ctx, orgScope, usecase.CreateInvoiceInput{
		ClientID:   "client-1",
		CurrencyID: "usd",
		IssueDate:  day(2025, 3, 1),
		LineItems:  []usecase.LineItemInput{{Description: "Consulting", Quantity: dec("1"), UnitPrice: dec(total)}},
	})
	require.NoError(t, err)
	sent, err := l.invoices.SendInvoice(ctx, orgScope, res.Invoice.ID)
	require.NoError(t, err)
	return sent.Invoice
}

func billInput(vendor, number string, unitPrice string, issued time.Time) usecase.CreateBillInput {
	return usecase.CreateBillInput{
		VendorID:            vendor,
		CurrencyID:          "usd",
		VendorInvoiceNumber: number,
		IssueDate:           issued,
		LineItems: []usecase.LineItemInput{
			{Description: "Office supplies", Quantity: dec("1"), UnitPrice: dec(unitPrice)},
		},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
