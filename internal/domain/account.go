package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account and fixes its normal balance side.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// IsValid reports whether t is one of the five account types.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// IsDebitNormal reports whether debits increase accounts of this type.
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// NormalBalance applies the sign convention of the type to raw sums.
func (t AccountType) NormalBalance(debits, credits decimal.Decimal) decimal.Decimal {
	if t.IsDebitNormal() {
		return debits.Sub(credits)
	}
	return credits.Sub(debits)
}

// Well-known system account codes.
const (
	CodeCash               = "1000"
	CodeAccountsReceivable = "1200"
	CodeAccountsPayable    = "2000"
	CodeRevenue            = "4000"
	CodeExpense            = "6000"
)

// Account is one entry in an organization's chart of accounts.
// CurrentBalance is a projection of posted journal lines.
type Account struct {
	ID                  string
	OrganizationID      string
	Code                string
	Name                string
	Type                AccountType
	AccountClass        string
	IsSystem            bool
	AllowManualJournals bool
	CurrentBalance      decimal.Decimal
	ParentID            *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SystemAccount describes one of the accounts seeded for every organization.
type SystemAccount struct {
	Code                string
	Name                string
	Type                AccountType
	Class               string
	AllowManualJournals bool
}

// SystemAccounts is the fixed default chart.
var SystemAccounts = []SystemAccount{
	{Code: CodeCash, Name: "Cash", Type: AccountTypeAsset, Class: "current_asset", AllowManualJournals: true},
	{Code: CodeAccountsReceivable, Name: "Accounts Receivable", Type: AccountTypeAsset, Class: "current_asset"},
	{Code: CodeAccountsPayable, Name: "Accounts Payable", Type: AccountTypeLiability, Class: "current_liability"},
	{Code: CodeRevenue, Name: "Revenue", Type: AccountTypeIncome, Class: "operating_revenue", AllowManualJournals: true},
	{Code: CodeExpense, Name: "Expense", Type: AccountTypeExpense, Class: "operating_expense", AllowManualJournals: true},
}

// IsSystemAccountCode reports whether code is reserved for a seeded account.
func IsSystemAccountCode(code string) bool {
	for _, sa := range SystemAccounts {
		if sa.Code == code {
			return true
		}
	}
	return false
}
