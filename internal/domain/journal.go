package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest debit/credit difference accepted as balanced.
var BalanceTolerance = decimal.New(1, -2)

// JournalStatus is the lifecycle state of a journal.
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "draft"
	JournalStatusPosted JournalStatus = "posted"
	JournalStatusVoided JournalStatus = "voided"
)

// JournalSource names the subsystem that produced a journal.
type JournalSource string

const (
	JournalSourceManual      JournalSource = "manual"
	JournalSourcePayables    JournalSource = "payables"
	JournalSourceReceivables JournalSource = "receivables"
	JournalSourcePayroll     JournalSource = "payroll"
)

// IsValid reports whether s is a known source.
func (s JournalSource) IsValid() bool {
	switch s {
	case JournalSourceManual, JournalSourcePayables, JournalSourceReceivables, JournalSourcePayroll:
		return true
	}
	return false
}

// Journal is one balanced double-entry transaction.
type Journal struct {
	ID              string
	OrganizationID  string
	Number          string
	TransactionDate time.Time
	PostingDate     time.Time
	Description     string
	Source          JournalSource
	SourceID        *string
	Status          JournalStatus
	TotalDebits     decimal.Decimal
	TotalCredits    decimal.Decimal
	CreatedBy       string
	PostedBy        *string
	PostedAt        *time.Time
	Lines           []JournalLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JournalLine is one side of a journal.
type JournalLine struct {
	ID          string
	JournalID   string
	AccountID   string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	EntityID    *string
}

// ValidateJournalLines checks the shape of the lines and that they balance.
// It returns the totals on success.
func ValidateJournalLines(lines []JournalLine) (debits, credits decimal.Decimal, err error) {
	if len(lines) < 2 {
		return decimal.Zero, decimal.Zero, ErrTooFewLines
	}

	debits, credits = decimal.Zero, decimal.Zero
	for i, line := range lines {
		if line.AccountID == "" {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: line %d has no account", ErrInvalidJournalLine, i+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: line %d has a negative amount", ErrInvalidJournalLine, i+1)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: line %d has no amount", ErrInvalidJournalLine, i+1)
		}
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}

	if debits.Sub(credits).Abs().GreaterThan(BalanceTolerance) {
		return debits, credits, &UnbalancedJournalError{Debits: debits, Credits: credits}
	}

	return debits, credits, nil
}

// AccountIDs returns the distinct accounts referenced by the journal, sorted.
func (j *Journal) AccountIDs() []string {
	return UniqueAccountIDs(j.Lines)
}

// IsDraft reports whether the journal can still be edited.
func (j *Journal) IsDraft() bool {
	return j.Status == JournalStatusDraft
}

// UniqueAccountIDs collects the sorted distinct account ids of the given lines.
func UniqueAccountIDs(lineSets ...[]JournalLine) []string {
	seen := make(map[string]struct{})
	for _, lines := range lineSets {
		for _, l := range lines {
			seen[l.AccountID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
