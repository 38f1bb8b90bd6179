package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// ReconciliationUseCase reports drift between cached balances and the
// ledger, and documents whose recognition journal is missing. It repairs
// only on explicit request.
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	journalRepo JournalRepository
	billRepo    BillRepository
	invoiceRepo InvoiceRepository
	balances    *BalanceUseCase
	rt          Runtime
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(store Store, balances *BalanceUseCase, rt Runtime) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: store.Accounts,
		journalRepo: store.Journals,
		billRepo:    store.Bills,
		invoiceRepo: store.Invoices,
		balances:    balances,
		rt:          rt.withDefaults(),
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountID         string
	Code              string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// UnpostedDocument is a recognized document with no journal for its source id.
type UnpostedDocument struct {
	Kind      domain.DocumentKind
	ID        string
	Number    string
	Status    domain.DocumentStatus
	Total     decimal.Decimal
	IssueDate time.Time
}

// ReconcileAccount compares the cached balance of an account with the sum
// of its posted lines.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, scope domain.Scope, accountID string) (*ReconciliationResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	account, activity, err := uc.balances.Compute(ctx, scope.OrganizationID, accountID)
	if err != nil {
		return nil, err
	}

	calculated := account.Type.NormalBalance(activity.Debits, activity.Credits)
	diff := account.CurrentBalance.Sub(calculated)

	return &ReconciliationResult{
		AccountID:         account.ID,
		Code:              account.Code,
		RecordedBalance:   account.CurrentBalance,
		CalculatedBalance: calculated,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
		LastChecked:       uc.rt.Now(),
	}, nil
}

// ReconcileAccounts reconciles every account of the organization.
func (uc *ReconciliationUseCase) ReconcileAccounts(ctx context.Context, scope domain.Scope) ([]*ReconciliationResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	accounts, err := uc.accountRepo.List(ctx, scope.OrganizationID)
	if err != nil {
		return nil, err
	}

	results := make([]*ReconciliationResult, 0, len(accounts))
	for _, account := range accounts {
		result, err := uc.ReconcileAccount(ctx, scope, account.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile account %s: %w", account.ID, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// RepairAccount overwrites the cached balance with the recalculated one.
func (uc *ReconciliationUseCase) RepairAccount(ctx context.Context, scope domain.Scope, accountID string) (*ReconciliationResult, error) {
	before, err := uc.ReconcileAccount(ctx, scope, accountID)
	if err != nil {
		return nil, err
	}
	if before.IsReconciled {
		return before, nil
	}

	if _, err := uc.balances.Recalculate(ctx, scope.OrganizationID, accountID); err != nil {
		return nil, err
	}

	uc.rt.Logger.Info().
		Str("org_id", scope.OrganizationID).
		Str("account_id", accountID).
		Str("difference", before.Difference.String()).
		Msg("account balance repaired")

	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	return uc.ReconcileAccount(ctx, scope, accountID)
}

// CheckLedgerConsistency verifies that posted debits equal posted credits.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context, scope domain.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	activity, err := uc.journalRepo.PostedActivity(ctx, scope.OrganizationID, nil, nil)
	if err != nil {
		return err
	}

	totalDebits, totalCredits := decimal.Zero, decimal.Zero
	for _, a := range activity {
		totalDebits = totalDebits.Add(a.Debits)
		totalCredits = totalCredits.Add(a.Credits)
	}

	if totalDebits.Sub(totalCredits).Abs().GreaterThan(domain.BalanceTolerance) {
		return fmt.Errorf(
			"ledger inconsistency detected: debits=%s credits=%s difference=%s",
			totalDebits.String(),
			totalCredits.String(),
			totalDebits.Sub(totalCredits).String(),
		)
	}

	return nil
}

// UnpostedDocuments lists recognized bills and invoices that have no
// recognition journal. They are reported, never posted automatically.
func (uc *ReconciliationUseCase) UnpostedDocuments(ctx context.Context, scope domain.Scope) ([]UnpostedDocument, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	bills, err := uc.billRepo.List(ctx, DocumentFilter{
		OrganizationID: scope.OrganizationID,
		Statuses:       []domain.DocumentStatus{domain.DocumentStatusApproved, domain.DocumentStatusPartiallyPaid, domain.DocumentStatusPaid},
	})
	if err != nil {
		return nil, err
	}
	invoices, err := uc.invoiceRepo.List(ctx, DocumentFilter{
		OrganizationID: scope.OrganizationID,
		Statuses:       []domain.DocumentStatus{domain.DocumentStatusSent, domain.DocumentStatusPartiallyPaid, domain.DocumentStatusPaid},
	})
	if err != nil {
		return nil, err
	}

	billDocs := make([]*domain.Document, 0, len(bills))
	for _, b := range bills {
		if b.Total.IsPositive() {
			billDocs = append(billDocs, &b.Document)
		}
	}
	invoiceDocs := make([]*domain.Document, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Total.IsPositive() {
			invoiceDocs = append(invoiceDocs, &inv.Document)
		}
	}

	var unposted []UnpostedDocument
	for _, group := range []struct {
		kind   domain.DocumentKind
		source domain.JournalSource
		docs   []*domain.Document
	}{
		{domain.DocumentKindBill, domain.JournalSourcePayables, billDocs},
		{domain.DocumentKindInvoice, domain.JournalSourceReceivables, invoiceDocs},
	} {
		if len(group.docs) == 0 {
			continue
		}

		ids := make([]string, len(group.docs))
		for i, d := range group.docs {
			ids[i] = d.ID
		}

		posted, err := uc.journalRepo.ExistingSourceIDs(ctx, scope.OrganizationID, group.source, ids)
		if err != nil {
			return nil, err
		}

		for _, d := range group.docs {
			if posted[d.ID] {
				continue
			}
			unposted = append(unposted, UnpostedDocument{
				Kind:      group.kind,
				ID:        d.ID,
				Number:    d.Number,
				Status:    d.Status,
				Total:     d.Total,
				IssueDate: d.IssueDate,
			})
		}
	}

	return unposted, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	OrganizationID     string
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	LedgerConsistent   bool
	UnpostedDocuments  []UnpostedDocument
	CheckedAt          time.Time
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context, scope domain.Scope) (*ReconciliationReport, error) {
	// Reconcile all accounts
	results, err := uc.ReconcileAccounts(ctx, scope)
	if err != nil {
		return nil, err
	}

	unposted, err := uc.UnpostedDocuments(ctx, scope)
	if err != nil {
		return nil, err
	}

	// Check ledger consistency
	ledgerErr := uc.CheckLedgerConsistency(ctx, scope)

	report := &ReconciliationReport{
		OrganizationID:    scope.OrganizationID,
		TotalAccounts:     len(results),
		Discrepancies:     make([]*ReconciliationResult, 0),
		LedgerConsistent:  ledgerErr == nil,
		UnpostedDocuments: unposted,
		CheckedAt:         uc.rt.Now(),
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	if !report.LedgerConsistent || len(report.Discrepancies) > 0 || len(unposted) > 0 {
		uc.rt.Logger.Warn().
			Str("org_id", scope.OrganizationID).
			Int("discrepancies", len(report.Discrepancies)).
			Int("unposted_documents", len(unposted)).
			Bool("ledger_consistent", report.LedgerConsistent).
			Msg("reconciliation found issues")
	}

	return report, nil
}
