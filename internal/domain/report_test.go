package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportFixture() ([]*Account, map[string]AccountActivity) {
	accounts := []*Account{
		{ID: "rev", Code: "4000", Name: "Revenue", Type: AccountTypeIncome},
		{ID: "cash", Code: "1000", Name: "Cash", Type: AccountTypeAsset},
		{ID: "ar", Code: "1200", Name: "Accounts Receivable", Type: AccountTypeAsset},
		{ID: "ap", Code: "2000", Name: "Accounts Payable", Type: AccountTypeLiability},
		{ID: "cap", Code: "3000", Name: "Owner Capital", Type: AccountTypeEquity},
		{ID: "exp", Code: "6000", Name: "Expense", Type: AccountTypeExpense},
		{ID: "idle", Code: "6100", Name: "Travel", Type: AccountTypeExpense},
	}

	// capital 1000 cash; invoice 500 AR/revenue; bill 200 expense/AP
	activity := map[string]AccountActivity{
		"cash": {AccountID: "cash", Debits: dec("1000"), Credits: decimal.Zero},
		"cap":  {AccountID: "cap", Debits: decimal.Zero, Credits: dec("1000")},
		"ar":   {AccountID: "ar", Debits: dec("500"), Credits: decimal.Zero},
		"rev":  {AccountID: "rev", Debits: decimal.Zero, Credits: dec("500")},
		"exp":  {AccountID: "exp", Debits: dec("200"), Credits: decimal.Zero},
		"ap":   {AccountID: "ap", Debits: decimal.Zero, Credits: dec("200")},
	}

	return accounts, activity
}

func TestBuildTrialBalance(t *testing.T) {
	t.Parallel()

	accounts, activity := reportFixture()
	tb := BuildTrialBalance("org", accounts, activity, nil, nil)

	require.Len(t, tb.Lines, len(accounts))
	assert.Equal(t, "1000", tb.Lines[0].Code, "lines sorted by code")
	assert.True(t, tb.TotalDebits.Equal(tb.TotalCredits))

	for _, l := range tb.Lines {
		if l.AccountID == "idle" {
			assert.True(t, l.Net.IsZero(), "accounts without activity appear with zero net")
		}
		assert.True(t, l.Net.Equal(l.Debits.Sub(l.Credits)))
	}
}

func TestBuildIncomeStatement(t *testing.T) {
	t.Parallel()

	accounts, activity := reportFixture()
	is := BuildIncomeStatement(BuildTrialBalance("org", accounts, activity, nil, nil))

	assert.True(t, is.TotalRevenue.Equal(dec("500")))
	assert.True(t, is.TotalExpenses.Equal(dec("200")))
	assert.True(t, is.NetIncome.Equal(dec("300")))
	assert.Len(t, is.Expenses, 2)
}

func TestBuildBalanceSheetIdentity(t *testing.T) {
	t.Parallel()

	accounts, activity := reportFixture()
	asOf := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	bs := BuildBalanceSheet(BuildTrialBalance("org", accounts, activity, nil, &asOf), asOf)

	assert.True(t, bs.TotalAssets.Equal(dec("1500")))
	assert.True(t, bs.TotalLiabilities.Equal(dec("200")))
	assert.True(t, bs.RetainedEarnings.Equal(dec("300")))
	assert.True(t, bs.TotalEquity.Equal(dec("1300")))
	assert.True(t, bs.Check.IsZero())
	assert.True(t, bs.IsBalanced())
}

func TestBuildAgingReport(t *testing.T) {
	t.Parallel()

	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	due := func(days int) *time.Time {
		d := asOf.AddDate(0, 0, -days)
		return &d
	}

	docs := []*Document{
		{ID: "1", Number: "A", AmountDue: dec("100"), DueDate: due(-5)},
		{ID: "2", Number: "B", AmountDue: dec("200"), DueDate: due(10)},
		{ID: "3", Number: "C", AmountDue: dec("300"), DueDate: due(45)},
		{ID: "4", Number: "D", AmountDue: dec("400"), DueDate: due(120)},
		{ID: "5", Number: "E", AmountDue: decimal.Zero, DueDate: due(120)},
	}

	report := BuildAgingReport("org", DocumentKindInvoice, asOf, docs)

	require.Len(t, report.Lines, 4)
	assert.Equal(t, "D", report.Lines[0].Number, "most overdue first")
	assert.True(t, report.Buckets[AgingCurrent].Equal(dec("100")))
	assert.True(t, report.Buckets[Aging1To30].Equal(dec("200")))
	assert.True(t, report.Buckets[Aging31To60].Equal(dec("300")))
	assert.True(t, report.Buckets[AgingOver90].Equal(dec("400")))
	assert.True(t, report.Total.Equal(dec("1000")))
}
