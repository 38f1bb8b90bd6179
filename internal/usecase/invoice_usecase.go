package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// InvoiceUseCase drives the receivables document lifecycle.
type InvoiceUseCase struct {
	store         Store
	poster        *ledgerPoster
	rt            Runtime
	defaultPrefix string
}

// NewInvoiceUseCase creates a new InvoiceUseCase. defaultPrefix numbers the
// invoices of organizations without their own prefix; "" selects INV.
func NewInvoiceUseCase(store Store, accounts *AccountUseCase, journals *JournalUseCase, rt Runtime, defaultPrefix string) *InvoiceUseCase {
	rt = rt.withDefaults()
	return &InvoiceUseCase{
		store:         store,
		poster:        newLedgerPoster(accounts, journals, rt),
		rt:            rt,
		defaultPrefix: defaultPrefix,
	}
}

// InvoiceResult is a committed invoice plus its ledger outcome.
type InvoiceResult struct {
	Invoice *domain.Invoice
	Ledger  *domain.LedgerPosting
}

// CreateInvoiceInput represents input for creating an invoice.
type CreateInvoiceInput struct {
	ClientID   string
	CurrencyID string
	IssueDate  time.Time
	DueDate    *time.Time
	Notes      string
	LineItems  []LineItemInput
	Taxes      []TaxInput
}

// UpdateInvoiceInput carries changes to a draft invoice. LineItems replaces
// lines and taxes together; Taxes alone replaces only the taxes.
type UpdateInvoiceInput struct {
	ClientID   *string
	CurrencyID *string
	IssueDate  *time.Time
	DueDate    *time.Time
	Notes      *string
	LineItems  []LineItemInput
	Taxes      []TaxInput
}

// CreateInvoice stores a draft invoice with its lines.
func (uc *InvoiceUseCase) CreateInvoice(ctx context.Context, scope domain.Scope, input CreateInvoiceInput) (*InvoiceResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := domain.RequireField("client_id", input.ClientID); err != nil {
		return nil, err
	}
	if err := domain.RequireField("currency_id", input.CurrencyID); err != nil {
		return nil, err
	}
	if input.IssueDate.IsZero() {
		return nil, fmt.Errorf("%w: issue date", domain.ErrMissingField)
	}
	if err := uc.checkReferences(ctx, scope.OrganizationID, input.ClientID, input.CurrencyID); err != nil {
		return nil, err
	}

	prefix, err := uc.prefix(ctx, scope.OrganizationID)
	if err != nil {
		return nil, err
	}

	now := uc.rt.Now()
	invoice := &domain.Invoice{
		Document: domain.Document{
			ID:             uc.store.IDGen.Generate(),
			OrganizationID: scope.OrganizationID,
			CounterpartyID: input.ClientID,
			CurrencyID:     input.CurrencyID,
			IssueDate:      input.IssueDate,
			DueDate:        input.DueDate,
			Status:         domain.DocumentStatusDraft,
			AmountPaid:     decimal.Zero,
			Notes:          input.Notes,
			CreatedBy:      scope.ActorID,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}

	if err := setDocumentLines(uc.store.IDGen, &invoice.Document, input.LineItems, input.Taxes); err != nil {
		return nil, err
	}

	err = uc.rt.Retrier.Retry(ctx, func() error {
		return inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
			number, err := nextNumber(ctx, tx, uc.store.Sequences, scope.OrganizationID, domain.SequenceInvoice, prefix, invoice.IssueDate)
			if err != nil {
				return fmt.Errorf("allocate invoice number: %w", err)
			}
			invoice.Number = number

			if err := uc.store.Invoices.Create(ctx, tx, invoice); err != nil {
				return err
			}
			return recordActivity(ctx, tx, uc.store, scope, domain.EntityInvoice, invoice.ID,
				domain.ActivityCreated, documentDetails(&invoice.Document), now)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.rt.Metrics.DocumentTransitioned(domain.DocumentKindInvoice, invoice.Status)
	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	return &InvoiceResult{Invoice: invoice}, nil
}

// UpdateInvoice edits a draft invoice.
func (uc *InvoiceUseCase) UpdateInvoice(ctx context.Context, scope domain.Scope, id string, input UpdateInvoiceInput) (*InvoiceResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var invoice *domain.Invoice
	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		var err error
		invoice, err = uc.store.Invoices.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}
		if !invoice.IsEditable() {
			return fmt.Errorf("%w: invoice %s is %s", domain.ErrDocumentNotEditable, invoice.Number, invoice.Status)
		}

		clientID, currencyID := invoice.CounterpartyID, invoice.CurrencyID
		if input.ClientID != nil {
			clientID = *input.ClientID
		}
		if input.CurrencyID != nil {
			currencyID = *input.CurrencyID
		}
		if input.ClientID != nil || input.CurrencyID != nil {
			if err := uc.checkReferences(ctx, scope.OrganizationID, clientID, currencyID); err != nil {
				return err
			}
		}
		invoice.CounterpartyID = clientID
		invoice.CurrencyID = currencyID

		if input.IssueDate != nil {
			invoice.IssueDate = *input.IssueDate
		}
		if input.DueDate != nil {
			invoice.DueDate = input.DueDate
		}
		if input.Notes != nil {
			invoice.Notes = *input.Notes
		}
		if err := editDocumentLines(uc.store.IDGen, &invoice.Document, input.LineItems, input.Taxes); err != nil {
			return err
		}

		now := uc.rt.Now()
		invoice.UpdatedAt = now

		if err := uc.store.Invoices.Update(ctx, tx, invoice); err != nil {
			return err
		}
		return recordActivity(ctx, tx, uc.store, scope, domain.EntityInvoice, invoice.ID,
			domain.ActivityUpdated, documentDetails(&invoice.Document), now)
	})
	if err != nil {
		return nil, err
	}

	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	return &InvoiceResult{Invoice: invoice}, nil
}

// DeleteInvoice removes a draft invoice with its lines.
func (uc *InvoiceUseCase) DeleteInvoice(ctx context.Context, scope domain.Scope, id string) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		invoice, err := uc.store.Invoices.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}
		if !invoice.IsEditable() {
			return fmt.Errorf("%w: invoice %s is %s", domain.ErrDocumentNotEditable, invoice.Number, invoice.Status)
		}

		if err := uc.store.Invoices.Delete(ctx, tx, scope.OrganizationID, id); err != nil {
			return err
		}
		return recordActivity(ctx, tx, uc.store, scope, domain.EntityInvoice, invoice.ID,
			domain.ActivityDeleted, documentDetails(&invoice.Document), uc.rt.Now())
	})
	if err != nil {
		return err
	}

	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	return nil
}

// SendInvoice marks the invoice sent and posts Dr Accounts Receivable /
// Cr Revenue for its total exactly once. Sending a recognized invoice again
// retries only the ledger posting.
func (uc *InvoiceUseCase) SendInvoice(ctx context.Context, scope domain.Scope, id string) (*InvoiceResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	invoice, err := uc.transition(ctx, scope, id, domain.DocumentStatusSent, func(inv *domain.Invoice, now time.Time) {
		if inv.SentAt == nil {
			inv.SentAt = &now
		}
	}, domain.EventTypeInvoiceSent)
	if err != nil {
		return nil, err
	}

	return &InvoiceResult{
		Invoice: invoice,
		Ledger:  uc.poster.post(ctx, scope, invoiceRecognition(invoice)),
	}, nil
}

// RemindInvoice records a payment reminder for an outstanding invoice and
// queues the notification.
func (uc *InvoiceUseCase) RemindInvoice(ctx context.Context, scope domain.Scope, id string) (*InvoiceResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var invoice *domain.Invoice
	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		var err error
		invoice, err = uc.store.Invoices.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := invoice.CanRemind(); err != nil {
			return err
		}

		now := uc.rt.Now()
		invoice.LastRemindedAt = &now
		invoice.UpdatedAt = now

		if err := uc.store.Invoices.UpdateState(ctx, tx, invoice); err != nil {
			return err
		}
		if err := recordActivity(ctx, tx, uc.store, scope, domain.EntityInvoice, invoice.ID,
			domain.ActivityReminded, domain.JSON{"amount_due": invoice.AmountDue.StringFixed(2)}, now); err != nil {
			return err
		}
		return writeEvent(ctx, tx, uc.store, scope, domain.EntityInvoice, invoice.ID, domain.EventTypeInvoiceReminder,
			domain.NewDocumentEvent(domain.DocumentKindInvoice, &invoice.Document, scope.ActorID), now)
	})
	if err != nil {
		return nil, err
	}

	return &InvoiceResult{Invoice: invoice}, nil
}

// CancelInvoice cancels an invoice that is not yet paid.
func (uc *InvoiceUseCase) CancelInvoice(ctx context.Context, scope domain.Scope, id string) (*InvoiceResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	invoice, err := uc.transition(ctx, scope, id, domain.DocumentStatusCancelled, nil, domain.EventTypeInvoiceCancelled)
	if err != nil {
		return nil, err
	}

	return &InvoiceResult{Invoice: invoice}, nil
}

// PostInvoiceToLedger backfills the recognition journal of a sent invoice.
func (uc *InvoiceUseCase) PostInvoiceToLedger(ctx context.Context, scope domain.Scope, id string) (*InvoiceResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	invoice, err := uc.store.Invoices.GetByID(ctx, scope.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if !invoice.IsRecognized() {
		return nil, &domain.TransitionError{Entity: "invoice", From: string(invoice.Status), To: "posted"}
	}

	return &InvoiceResult{
		Invoice: invoice,
		Ledger:  uc.poster.post(ctx, scope, invoiceRecognition(invoice)),
	}, nil
}

// GetInvoice retrieves an invoice with lines and taxes.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, scope domain.Scope, id string) (*domain.Invoice, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return uc.store.Invoices.GetByID(ctx, scope.OrganizationID, id)
}

// ListInvoices lists invoices of the organization.
func (uc *InvoiceUseCase) ListInvoices(ctx context.Context, scope domain.Scope, filter DocumentFilter) ([]*domain.Invoice, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return uc.store.Invoices.List(ctx, normalizeDocumentFilter(scope, filter))
}

func (uc *InvoiceUseCase) transition(
	ctx context.Context,
	scope domain.Scope,
	id string,
	next domain.DocumentStatus,
	mutate func(*domain.Invoice, time.Time),
	eventType string,
) (*domain.Invoice, error) {
	var (
		invoice *domain.Invoice
		changed bool
	)

	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		var err error
		invoice, err = uc.store.Invoices.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}

		if next == domain.DocumentStatusSent && invoice.IsRecognized() {
			return nil
		}
		if err := invoice.CanTransition(next); err != nil {
			return err
		}

		now := uc.rt.Now()
		previous := invoice.Status
		invoice.Status = next
		invoice.UpdatedAt = now
		if mutate != nil {
			mutate(invoice, now)
		}

		if err := uc.store.Invoices.UpdateState(ctx, tx, invoice); err != nil {
			return err
		}

		action := domain.ActivityStatusChanged
		if next == domain.DocumentStatusSent {
			action = domain.ActivitySent
		}
		if err := recordActivity(ctx, tx, uc.store, scope, domain.EntityInvoice, invoice.ID,
			action, statusDetails(previous, next), now); err != nil {
			return err
		}
		if err := writeEvent(ctx, tx, uc.store, scope, domain.EntityInvoice, invoice.ID, eventType,
			domain.NewDocumentEvent(domain.DocumentKindInvoice, &invoice.Document, scope.ActorID), now); err != nil {
			return err
		}

		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		uc.rt.Metrics.DocumentTransitioned(domain.DocumentKindInvoice, next)
		logInvalidation(ctx, uc.rt, scope.OrganizationID)
	}

	return invoice, nil
}

func (uc *InvoiceUseCase) prefix(ctx context.Context, orgID string) (string, error) {
	if uc.store.Directory != nil {
		prefix, err := uc.store.Directory.InvoicePrefix(ctx, orgID)
		if err != nil {
			return "", fmt.Errorf("load invoice prefix: %w", err)
		}
		if prefix != "" {
			return prefix, nil
		}
	}
	return uc.defaultPrefix, nil
}

func (uc *InvoiceUseCase) checkReferences(ctx context.Context, orgID, clientID, currencyID string) error {
	dir := uc.store.Directory
	if dir == nil {
		return nil
	}

	ok, err := dir.ClientExists(ctx, orgID, clientID)
	if err := checkReference(ok, err, domain.ErrClientNotFound, clientID); err != nil {
		return err
	}
	ok, err = dir.CurrencyExists(ctx, orgID, currencyID)
	return checkReference(ok, err, domain.ErrCurrencyNotFound, currencyID)
}
