package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AccountActivity is the posted debit and credit total of one account.
type AccountActivity struct {
	AccountID string
	Debits    decimal.Decimal
	Credits   decimal.Decimal
}

// TrialBalanceLine summarizes one account over the report window.
type TrialBalanceLine struct {
	AccountID string
	Code      string
	Name      string
	Type      AccountType
	Debits    decimal.Decimal
	Credits   decimal.Decimal
	Net       decimal.Decimal
}

// TrialBalance lists every account, including those without activity.
type TrialBalance struct {
	OrganizationID string
	StartDate      *time.Time
	EndDate        *time.Time
	Lines          []TrialBalanceLine
	TotalDebits    decimal.Decimal
	TotalCredits   decimal.Decimal
}

// BuildTrialBalance joins the chart of accounts with posted activity.
func BuildTrialBalance(orgID string, accounts []*Account, activity map[string]AccountActivity, start, end *time.Time) *TrialBalance {
	tb := &TrialBalance{
		OrganizationID: orgID,
		StartDate:      start,
		EndDate:        end,
		Lines:          make([]TrialBalanceLine, 0, len(accounts)),
		TotalDebits:    decimal.Zero,
		TotalCredits:   decimal.Zero,
	}

	for _, acc := range accounts {
		a := activity[acc.ID]
		debits, credits := a.Debits, a.Credits
		tb.Lines = append(tb.Lines, TrialBalanceLine{
			AccountID: acc.ID,
			Code:      acc.Code,
			Name:      acc.Name,
			Type:      acc.Type,
			Debits:    debits,
			Credits:   credits,
			Net:       debits.Sub(credits),
		})
		tb.TotalDebits = tb.TotalDebits.Add(debits)
		tb.TotalCredits = tb.TotalCredits.Add(credits)
	}

	sort.Slice(tb.Lines, func(i, j int) bool {
		return tb.Lines[i].Code < tb.Lines[j].Code
	})

	return tb
}

// StatementLine is one account on an income statement or balance sheet,
// already in its normal-balance sign.
type StatementLine struct {
	AccountID string
	Code      string
	Name      string
	Amount    decimal.Decimal
}

// IncomeStatement derives revenue and expense totals from a trial balance.
type IncomeStatement struct {
	OrganizationID string
	StartDate      *time.Time
	EndDate        *time.Time
	Revenue        []StatementLine
	Expenses       []StatementLine
	TotalRevenue   decimal.Decimal
	TotalExpenses  decimal.Decimal
	NetIncome      decimal.Decimal
}

// BuildIncomeStatement filters the trial balance to income and expense rows.
func BuildIncomeStatement(tb *TrialBalance) *IncomeStatement {
	is := &IncomeStatement{
		OrganizationID: tb.OrganizationID,
		StartDate:      tb.StartDate,
		EndDate:        tb.EndDate,
		Revenue:        []StatementLine{},
		Expenses:       []StatementLine{},
		TotalRevenue:   decimal.Zero,
		TotalExpenses:  decimal.Zero,
	}

	for _, line := range tb.Lines {
		switch line.Type {
		case AccountTypeIncome:
			amount := line.Credits.Sub(line.Debits)
			is.Revenue = append(is.Revenue, statementLine(line, amount))
			is.TotalRevenue = is.TotalRevenue.Add(amount)
		case AccountTypeExpense:
			amount := line.Debits.Sub(line.Credits)
			is.Expenses = append(is.Expenses, statementLine(line, amount))
			is.TotalExpenses = is.TotalExpenses.Add(amount)
		}
	}

	is.NetIncome = is.TotalRevenue.Sub(is.TotalExpenses)

	return is
}

// BalanceSheet reports the accounting equation at a point in time.
// RetainedEarnings is the rolling net income up to AsOf and is included in
// TotalEquity.
type BalanceSheet struct {
	OrganizationID   string
	AsOf             time.Time
	Assets           []StatementLine
	Liabilities      []StatementLine
	Equity           []StatementLine
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	RetainedEarnings decimal.Decimal
	TotalEquity      decimal.Decimal
	Check            decimal.Decimal
}

// IsBalanced reports whether the check figure is within tolerance.
func (bs *BalanceSheet) IsBalanced() bool {
	return bs.Check.Abs().LessThanOrEqual(BalanceTolerance)
}

// BuildBalanceSheet expects a trial balance ending at asOf with no start.
func BuildBalanceSheet(tb *TrialBalance, asOf time.Time) *BalanceSheet {
	bs := &BalanceSheet{
		OrganizationID:   tb.OrganizationID,
		AsOf:             asOf,
		Assets:           []StatementLine{},
		Liabilities:      []StatementLine{},
		Equity:           []StatementLine{},
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
	}

	for _, line := range tb.Lines {
		switch line.Type {
		case AccountTypeAsset:
			amount := line.Debits.Sub(line.Credits)
			bs.Assets = append(bs.Assets, statementLine(line, amount))
			bs.TotalAssets = bs.TotalAssets.Add(amount)
		case AccountTypeLiability:
			amount := line.Credits.Sub(line.Debits)
			bs.Liabilities = append(bs.Liabilities, statementLine(line, amount))
			bs.TotalLiabilities = bs.TotalLiabilities.Add(amount)
		case AccountTypeEquity:
			amount := line.Credits.Sub(line.Debits)
			bs.Equity = append(bs.Equity, statementLine(line, amount))
			bs.TotalEquity = bs.TotalEquity.Add(amount)
		}
	}

	bs.RetainedEarnings = BuildIncomeStatement(tb).NetIncome
	bs.TotalEquity = bs.TotalEquity.Add(bs.RetainedEarnings)
	bs.Check = bs.TotalAssets.Sub(bs.TotalLiabilities.Add(bs.TotalEquity))

	return bs
}

func statementLine(line TrialBalanceLine, amount decimal.Decimal) StatementLine {
	return StatementLine{
		AccountID: line.AccountID,
		Code:      line.Code,
		Name:      line.Name,
		Amount:    amount,
	}
}

// AgingBucket groups open documents by days past due.
type AgingBucket string

const (
	AgingCurrent AgingBucket = "current"
	Aging1To30   AgingBucket = "1_30"
	Aging31To60  AgingBucket = "31_60"
	Aging61To90  AgingBucket = "61_90"
	AgingOver90  AgingBucket = "over_90"
)

// AgingBuckets lists the buckets in display order.
var AgingBuckets = []AgingBucket{AgingCurrent, Aging1To30, Aging31To60, Aging61To90, AgingOver90}

// BucketForDays maps days past due to a bucket.
func BucketForDays(days int) AgingBucket {
	switch {
	case days <= 0:
		return AgingCurrent
	case days <= 30:
		return Aging1To30
	case days <= 60:
		return Aging31To60
	case days <= 90:
		return Aging61To90
	}
	return AgingOver90
}

// AgingLine is one open document.
type AgingLine struct {
	DocumentID     string
	Number         string
	CounterpartyID string
	DueDate        *time.Time
	AmountDue      decimal.Decimal
	DaysPastDue    int
	Bucket         AgingBucket
}

// AgingReport buckets outstanding amounts for bills or invoices.
type AgingReport struct {
	OrganizationID string
	Kind           DocumentKind
	AsOf           time.Time
	Lines          []AgingLine
	Buckets        map[AgingBucket]decimal.Decimal
	Total          decimal.Decimal
}

// BuildAgingReport skips documents with nothing due.
func BuildAgingReport(orgID string, kind DocumentKind, asOf time.Time, docs []*Document) *AgingReport {
	report := &AgingReport{
		OrganizationID: orgID,
		Kind:           kind,
		AsOf:           asOf,
		Lines:          []AgingLine{},
		Buckets:        make(map[AgingBucket]decimal.Decimal, len(AgingBuckets)),
		Total:          decimal.Zero,
	}
	for _, b := range AgingBuckets {
		report.Buckets[b] = decimal.Zero
	}

	for _, d := range docs {
		if !d.AmountDue.IsPositive() {
			continue
		}
		days := d.DaysPastDue(asOf)
		bucket := BucketForDays(days)
		report.Lines = append(report.Lines, AgingLine{
			DocumentID:     d.ID,
			Number:         d.Number,
			CounterpartyID: d.CounterpartyID,
			DueDate:        d.DueDate,
			AmountDue:      d.AmountDue,
			DaysPastDue:    days,
			Bucket:         bucket,
		})
		report.Buckets[bucket] = report.Buckets[bucket].Add(d.AmountDue)
		report.Total = report.Total.Add(d.AmountDue)
	}

	sort.Slice(report.Lines, func(i, j int) bool {
		if report.Lines[i].DaysPastDue != report.Lines[j].DaysPastDue {
			return report.Lines[i].DaysPastDue > report.Lines[j].DaysPastDue
		}
		return report.Lines[i].Number < report.Lines[j].Number
	})

	return report
}
