package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// recognition describes the fixed two-line journal a document posts when it
// is recognized.
type recognition struct {
	kind           domain.DocumentKind
	source         domain.JournalSource
	documentID     string
	number         string
	counterpartyID string
	date           time.Time
	amount         decimal.Decimal
	debitCode      string
	creditCode     string
}

func billRecognition(b *domain.Bill) recognition {
	return recognition{
		kind:           domain.DocumentKindBill,
		source:         domain.JournalSourcePayables,
		documentID:     b.ID,
		number:         b.Number,
		counterpartyID: b.CounterpartyID,
		date:           b.IssueDate,
		amount:         b.Total,
		debitCode:      domain.CodeExpense,
		creditCode:     domain.CodeAccountsPayable,
	}
}

func invoiceRecognition(inv *domain.Invoice) recognition {
	return recognition{
		kind:           domain.DocumentKindInvoice,
		source:         domain.JournalSourceReceivables,
		documentID:     inv.ID,
		number:         inv.Number,
		counterpartyID: inv.CounterpartyID,
		date:           inv.IssueDate,
		amount:         inv.Total,
		debitCode:      domain.CodeAccountsReceivable,
		creditCode:     domain.CodeRevenue,
	}
}

// ledgerPoster performs the best-effort GL side of document transitions. It
// never returns an error: the outcome is reported in a LedgerPosting.
type ledgerPoster struct {
	accounts *AccountUseCase
	journals *JournalUseCase
	rt       Runtime
}

func newLedgerPoster(accounts *AccountUseCase, journals *JournalUseCase, rt Runtime) *ledgerPoster {
	return &ledgerPoster{accounts: accounts, journals: journals, rt: rt.withDefaults()}
}

func (p *ledgerPoster) post(ctx context.Context, scope domain.Scope, r recognition) *domain.LedgerPosting {
	if !r.amount.IsPositive() {
		return &domain.LedgerPosting{Status: domain.LedgerSkipped}
	}

	journal, alreadyPosted, err := p.postJournal(ctx, scope, r)
	if err != nil {
		p.rt.Metrics.LedgerPostingFailed(r.kind)
		p.rt.Logger.Warn().Err(err).
			Str("org_id", scope.OrganizationID).
			Str("document_id", r.documentID).
			Str("document_kind", string(r.kind)).
			Msg("document committed but not posted to ledger")

		return &domain.LedgerPosting{
			Status:    domain.LedgerFailed,
			Error:     err.Error(),
			Retryable: isRetryablePosting(err),
		}
	}

	status := domain.LedgerPosted
	if alreadyPosted {
		status = domain.LedgerAlreadyPosted
	}

	return &domain.LedgerPosting{Status: status, JournalID: journal.ID}
}

func (p *ledgerPoster) postJournal(ctx context.Context, scope domain.Scope, r recognition) (*domain.Journal, bool, error) {
	debit, err := p.accounts.ResolveSystemAccount(ctx, scope, r.debitCode)
	if err != nil {
		return nil, false, fmt.Errorf("resolve account %s: %w", r.debitCode, err)
	}
	credit, err := p.accounts.ResolveSystemAccount(ctx, scope, r.creditCode)
	if err != nil {
		return nil, false, fmt.Errorf("resolve account %s: %w", r.creditCode, err)
	}

	description := fmt.Sprintf("%s %s", r.kind, r.number)
	sourceID := r.documentID
	counterparty := r.counterpartyID

	return p.journals.PostSourceJournal(ctx, scope, CreateJournalInput{
		TransactionDate: r.date,
		Description:     description,
		Source:          r.source,
		SourceID:        &sourceID,
		Lines: []JournalLineInput{
			{AccountID: debit.ID, Description: description, Debit: r.amount, EntityID: &counterparty},
			{AccountID: credit.ID, Description: description, Credit: r.amount, EntityID: &counterparty},
		},
	})
}

func isRetryablePosting(err error) bool {
	switch {
	case errors.Is(err, domain.ErrUnbalancedJournal),
		errors.Is(err, domain.ErrInvalidJournalLine),
		errors.Is(err, domain.ErrMissingOrganization):
		return false
	}
	return true
}
