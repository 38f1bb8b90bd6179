package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// JournalUseCase is the double-entry posting engine.
type JournalUseCase struct {
	store    Store
	balances *BalanceUseCase
	rt       Runtime
}

// NewJournalUseCase creates a new JournalUseCase.
func NewJournalUseCase(store Store, balances *BalanceUseCase, rt Runtime) *JournalUseCase {
	return &JournalUseCase{
		store:    store,
		balances: balances,
		rt:       rt.withDefaults(),
	}
}

// JournalLineInput is one requested journal line.
type JournalLineInput struct {
	AccountID   string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	EntityID    *string
}

// CreateJournalInput represents input for creating a journal.
type CreateJournalInput struct {
	TransactionDate time.Time
	PostingDate     *time.Time
	Description     string
	Source          domain.JournalSource
	SourceID        *string
	Lines           []JournalLineInput
	// Post creates the journal directly in posted status.
	Post bool
}

// UpdateJournalInput carries changes to a draft journal. Nil Lines keeps the
// current lines.
type UpdateJournalInput struct {
	TransactionDate *time.Time
	PostingDate     *time.Time
	Description     *string
	Lines           []JournalLineInput
}

// CreateJournal validates and stores a journal with its lines atomically.
func (uc *JournalUseCase) CreateJournal(ctx context.Context, scope domain.Scope, input CreateJournalInput) (*domain.Journal, error) {
	// 1. Resolve organization
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	source := input.Source
	if source == "" {
		source = domain.JournalSourceManual
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidJournalSource, source)
	}
	if input.TransactionDate.IsZero() {
		return nil, fmt.Errorf("%w: transaction date", domain.ErrMissingField)
	}

	// 2. Validate balance before any write
	lines := buildLines(input.Lines)
	debits, credits, err := domain.ValidateJournalLines(lines)
	if err != nil {
		return nil, err
	}

	if err := uc.checkAccounts(ctx, scope.OrganizationID, lines, source == domain.JournalSourceManual); err != nil {
		return nil, err
	}
	if input.Post {
		if err := uc.checkPeriod(ctx, scope.OrganizationID, input.TransactionDate); err != nil {
			return nil, err
		}
	}

	postingDate := input.TransactionDate
	if input.PostingDate != nil {
		postingDate = *input.PostingDate
	}

	var journal *domain.Journal

	// 3-4. Allocate the number and persist header and lines as one unit
	err = uc.rt.Retrier.Retry(ctx, func() error {
		now := uc.rt.Now()
		journal = &domain.Journal{
			ID:              uc.store.IDGen.Generate(),
			OrganizationID:  scope.OrganizationID,
			TransactionDate: input.TransactionDate,
			PostingDate:     postingDate,
			Description:     input.Description,
			Source:          source,
			SourceID:        input.SourceID,
			Status:          domain.JournalStatusDraft,
			TotalDebits:     debits,
			TotalCredits:    credits,
			CreatedBy:       scope.ActorID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if input.Post {
			journal.Status = domain.JournalStatusPosted
			journal.PostedBy = actorRef(scope)
			journal.PostedAt = &now
		}
		journal.Lines = uc.assignLineIDs(journal.ID, lines)

		return inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
			if journal.SourceID != nil {
				_, err := uc.store.Journals.FindBySource(ctx, tx, scope.OrganizationID, source, *journal.SourceID)
				if err == nil {
					return domain.ErrJournalAlreadyExists
				}
				if !errors.Is(err, domain.ErrJournalNotFound) {
					return err
				}
			}

			number, err := nextNumber(ctx, tx, uc.store.Sequences, scope.OrganizationID,
				domain.SequenceJournal, "", journal.TransactionDate)
			if err != nil {
				return fmt.Errorf("allocate journal number: %w", err)
			}
			journal.Number = number

			if err := uc.store.Journals.Create(ctx, tx, journal); err != nil {
				return err
			}

			if err := recordActivity(ctx, tx, uc.store, scope, domain.EntityJournal, journal.ID,
				domain.ActivityCreated, journalDetails(journal), now); err != nil {
				return err
			}

			if journal.Status == domain.JournalStatusPosted {
				return writeEvent(ctx, tx, uc.store, scope, domain.EntityJournal, journal.ID,
					domain.EventTypeJournalPosted, journalEvent(journal), now)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if journal.Status == domain.JournalStatusPosted {
		uc.rt.Metrics.JournalPosted(journal.Source)
	}

	// 5. Recalculate every touched account
	uc.recalculate(ctx, scope.OrganizationID, journal.AccountIDs())

	return journal, nil
}

// PostSourceJournal creates a posted journal for a subledger event exactly
// once per (source, source id). An existing journal is returned with
// alreadyPosted set.
func (uc *JournalUseCase) PostSourceJournal(ctx context.Context, scope domain.Scope, input CreateJournalInput) (journal *domain.Journal, alreadyPosted bool, err error) {
	if err := scope.Validate(); err != nil {
		return nil, false, err
	}
	if input.SourceID == nil || *input.SourceID == "" {
		return nil, false, fmt.Errorf("%w: source id", domain.ErrMissingField)
	}

	existing, err := uc.store.Journals.FindBySource(ctx, nil, scope.OrganizationID, input.Source, *input.SourceID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrJournalNotFound) {
		return nil, false, err
	}

	input.Post = true
	journal, err = uc.CreateJournal(ctx, scope, input)
	if errors.Is(err, domain.ErrJournalAlreadyExists) {
		// Lost a race with a concurrent posting for the same document.
		existing, findErr := uc.store.Journals.FindBySource(ctx, nil, scope.OrganizationID, input.Source, *input.SourceID)
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	return journal, false, nil
}

// PostJournal moves a draft journal to posted.
func (uc *JournalUseCase) PostJournal(ctx context.Context, scope domain.Scope, id string) (*domain.Journal, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var journal *domain.Journal
	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		var err error
		journal, err = uc.store.Journals.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}
		if !journal.IsDraft() {
			return fmt.Errorf("%w: journal %s is %s", domain.ErrJournalNotDraft, journal.Number, journal.Status)
		}
		if err := uc.checkPeriod(ctx, scope.OrganizationID, journal.TransactionDate); err != nil {
			return err
		}

		now := uc.rt.Now()
		journal.Status = domain.JournalStatusPosted
		journal.PostedBy = actorRef(scope)
		journal.PostedAt = &now
		journal.UpdatedAt = now

		if err := uc.store.Journals.UpdateStatus(ctx, tx, journal); err != nil {
			return err
		}
		if err := recordActivity(ctx, tx, uc.store, scope, domain.EntityJournal, journal.ID,
			domain.ActivityPosted, domain.JSON{"number": journal.Number}, now); err != nil {
			return err
		}
		return writeEvent(ctx, tx, uc.store, scope, domain.EntityJournal, journal.ID,
			domain.EventTypeJournalPosted, journalEvent(journal), now)
	})
	if err != nil {
		return nil, err
	}

	uc.rt.Metrics.JournalPosted(journal.Source)
	uc.recalculate(ctx, scope.OrganizationID, journal.AccountIDs())

	return journal, nil
}

// UpdateJournal edits a draft journal, replacing all lines when new ones are
// given.
func (uc *JournalUseCase) UpdateJournal(ctx context.Context, scope domain.Scope, id string, input UpdateJournalInput) (*domain.Journal, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var (
		newLines         []domain.JournalLine
		debits, credits  decimal.Decimal
		replaceLines     = input.Lines != nil
		journal          *domain.Journal
		affectedAccounts []string
	)

	if replaceLines {
		newLines = buildLines(input.Lines)
		var err error
		debits, credits, err = domain.ValidateJournalLines(newLines)
		if err != nil {
			return nil, err
		}
	}

	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		var err error
		journal, err = uc.store.Journals.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}
		if !journal.IsDraft() {
			return fmt.Errorf("%w: journal %s is %s", domain.ErrJournalNotDraft, journal.Number, journal.Status)
		}

		oldLines := journal.Lines

		if replaceLines {
			if err := uc.checkAccounts(ctx, scope.OrganizationID, newLines, journal.Source == domain.JournalSourceManual); err != nil {
				return err
			}
			journal.Lines = uc.assignLineIDs(journal.ID, newLines)
			journal.TotalDebits = debits
			journal.TotalCredits = credits
		}
		if input.TransactionDate != nil {
			journal.TransactionDate = *input.TransactionDate
		}
		if input.PostingDate != nil {
			journal.PostingDate = *input.PostingDate
		}
		if input.Description != nil {
			journal.Description = *input.Description
		}

		now := uc.rt.Now()
		journal.UpdatedAt = now

		if err := uc.store.Journals.Update(ctx, tx, journal); err != nil {
			return err
		}

		affectedAccounts = domain.UniqueAccountIDs(oldLines, journal.Lines)

		return recordActivity(ctx, tx, uc.store, scope, domain.EntityJournal, journal.ID,
			domain.ActivityUpdated, journalDetails(journal), now)
	})
	if err != nil {
		return nil, err
	}

	uc.recalculate(ctx, scope.OrganizationID, affectedAccounts)

	return journal, nil
}

// DeleteJournal removes a draft journal.
func (uc *JournalUseCase) DeleteJournal(ctx context.Context, scope domain.Scope, id string) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	var accountIDs []string
	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		journal, err := uc.store.Journals.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}
		if !journal.IsDraft() {
			return fmt.Errorf("%w: journal %s is %s", domain.ErrJournalNotDraft, journal.Number, journal.Status)
		}

		accountIDs = journal.AccountIDs()

		if err := uc.store.Journals.Delete(ctx, tx, scope.OrganizationID, id); err != nil {
			return err
		}
		return recordActivity(ctx, tx, uc.store, scope, domain.EntityJournal, journal.ID,
			domain.ActivityDeleted, domain.JSON{"number": journal.Number}, uc.rt.Now())
	})
	if err != nil {
		return err
	}

	uc.recalculate(ctx, scope.OrganizationID, accountIDs)

	return nil
}

// VoidJournal marks a draft or posted journal as voided. Voiding a posted
// journal is a ledger change and passes period control.
func (uc *JournalUseCase) VoidJournal(ctx context.Context, scope domain.Scope, id string) (*domain.Journal, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var journal *domain.Journal
	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		var err error
		journal, err = uc.store.Journals.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}

		wasPosted := journal.Status == domain.JournalStatusPosted
		switch journal.Status {
		case domain.JournalStatusDraft:
		case domain.JournalStatusPosted:
			if err := uc.checkPeriod(ctx, scope.OrganizationID, journal.TransactionDate); err != nil {
				return err
			}
		default:
			return &domain.TransitionError{Entity: "journal", From: string(journal.Status), To: string(domain.JournalStatusVoided)}
		}

		now := uc.rt.Now()
		journal.Status = domain.JournalStatusVoided
		journal.UpdatedAt = now

		if err := uc.store.Journals.UpdateStatus(ctx, tx, journal); err != nil {
			return err
		}
		if err := recordActivity(ctx, tx, uc.store, scope, domain.EntityJournal, journal.ID,
			domain.ActivityVoided, domain.JSON{"number": journal.Number}, now); err != nil {
			return err
		}
		if wasPosted {
			return writeEvent(ctx, tx, uc.store, scope, domain.EntityJournal, journal.ID,
				domain.EventTypeJournalVoided, journalEvent(journal), now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.recalculate(ctx, scope.OrganizationID, journal.AccountIDs())

	return journal, nil
}

// GetJournal retrieves a journal with its lines.
func (uc *JournalUseCase) GetJournal(ctx context.Context, scope domain.Scope, id string) (*domain.Journal, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return uc.store.Journals.GetByID(ctx, scope.OrganizationID, id)
}

// ListJournals lists journals of the organization, newest first.
func (uc *JournalUseCase) ListJournals(ctx context.Context, scope domain.Scope, filter JournalFilter) ([]*domain.Journal, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	filter.OrganizationID = scope.OrganizationID
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)

	return uc.store.Journals.List(ctx, filter)
}

// checkAccounts verifies every line account belongs to the organization and,
// for manual journals, accepts manual postings.
func (uc *JournalUseCase) checkAccounts(ctx context.Context, orgID string, lines []domain.JournalLine, manual bool) error {
	ids := domain.UniqueAccountIDs(lines)

	accounts, err := uc.store.Accounts.GetByIDs(ctx, orgID, ids)
	if err != nil {
		return err
	}

	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	for _, id := range ids {
		account, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
		if manual && !account.AllowManualJournals {
			return fmt.Errorf("%w: %s %s", domain.ErrManualJournalNotAllowed, account.Code, account.Name)
		}
	}

	return nil
}

func (uc *JournalUseCase) checkPeriod(ctx context.Context, orgID string, date time.Time) error {
	periods, err := uc.store.Periods.List(ctx, orgID)
	if err != nil {
		return err
	}
	if err := domain.CheckPeriodOpen(periods, date); err != nil {
		return fmt.Errorf("%w: %s", err, date.Format(time.DateOnly))
	}
	return nil
}

func (uc *JournalUseCase) recalculate(ctx context.Context, orgID string, accountIDs []string) {
	if uc.balances == nil {
		return
	}
	// Failures are logged inside; reconciliation repairs any drift.
	_ = uc.balances.RecalculateAccounts(ctx, orgID, accountIDs)
}

func (uc *JournalUseCase) assignLineIDs(journalID string, lines []domain.JournalLine) []domain.JournalLine {
	out := make([]domain.JournalLine, len(lines))
	for i, l := range lines {
		l.ID = uc.store.IDGen.Generate()
		l.JournalID = journalID
		out[i] = l
	}
	return out
}

func buildLines(inputs []JournalLineInput) []domain.JournalLine {
	lines := make([]domain.JournalLine, len(inputs))
	for i, in := range inputs {
		lines[i] = domain.JournalLine{
			AccountID:   in.AccountID,
			Description: in.Description,
			Debit:       in.Debit,
			Credit:      in.Credit,
			EntityID:    in.EntityID,
		}
	}
	return lines
}

func actorRef(scope domain.Scope) *string {
	if scope.ActorID == "" {
		return nil
	}
	actor := scope.ActorID
	return &actor
}

func journalDetails(j *domain.Journal) domain.JSON {
	return domain.JSON{
		"number":        j.Number,
		"status":        string(j.Status),
		"source":        string(j.Source),
		"total_debits":  j.TotalDebits.StringFixed(2),
		"total_credits": j.TotalCredits.StringFixed(2),
		"lines":         len(j.Lines),
	}
}

func journalEvent(j *domain.Journal) domain.JournalEvent {
	ev := domain.JournalEvent{
		OrganizationID: j.OrganizationID,
		JournalID:      j.ID,
		Number:         j.Number,
		Source:         string(j.Source),
		Total:          j.TotalDebits.StringFixed(2),
	}
	if j.SourceID != nil {
		ev.SourceID = *j.SourceID
	}
	return ev
}
