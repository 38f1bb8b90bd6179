package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// BillUseCase drives the payables document lifecycle.
type BillUseCase struct {
	store      Store
	duplicates *DuplicateUseCase
	poster     *ledgerPoster
	rt         Runtime
}

// NewBillUseCase creates a new BillUseCase.
func NewBillUseCase(store Store, accounts *AccountUseCase, journals *JournalUseCase, duplicates *DuplicateUseCase, rt Runtime) *BillUseCase {
	rt = rt.withDefaults()
	return &BillUseCase{
		store:      store,
		duplicates: duplicates,
		poster:     newLedgerPoster(accounts, journals, rt),
		rt:         rt,
	}
}

// BillResult is a committed bill plus its secondary outcomes.
type BillResult struct {
	Bill *domain.Bill
	// Ledger is set when the operation attempted a GL posting.
	Ledger *domain.LedgerPosting
	// Duplicate carries a non-blocking duplicate warning.
	Duplicate *domain.DuplicateCheckResult
}

// CreateBillInput represents input for creating a bill.
type CreateBillInput struct {
	VendorID            string
	CurrencyID          string
	VendorInvoiceNumber string
	IssueDate           time.Time
	ReceivedDate        *time.Time
	DueDate             *time.Time
	PurchaseOrderID     *string
	Notes               string
	LineItems           []LineItemInput
	Taxes               []TaxInput
	// Status is the initial status: draft (default), pending or approved.
	Status domain.DocumentStatus
	// AllowDuplicate accepts a bill despite a high-confidence duplicate.
	AllowDuplicate bool
}

// UpdateBillInput carries changes to a draft bill. LineItems replaces lines
// and taxes together; Taxes alone replaces only the taxes.
type UpdateBillInput struct {
	VendorID            *string
	CurrencyID          *string
	VendorInvoiceNumber *string
	IssueDate           *time.Time
	ReceivedDate        *time.Time
	DueDate             *time.Time
	PurchaseOrderID     *string
	Notes               *string
	LineItems           []LineItemInput
	Taxes               []TaxInput
	AllowDuplicate      bool
}

// CreateBill stores a bill with its lines. Approved bills are posted to the
// ledger after commit on a best-effort basis.
func (uc *BillUseCase) CreateBill(ctx context.Context, scope domain.Scope, input CreateBillInput) (*BillResult, error) {
	// 1. Validate input and references
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := domain.RequireField("vendor_id", input.VendorID); err != nil {
		return nil, err
	}
	if err := domain.RequireField("currency_id", input.CurrencyID); err != nil {
		return nil, err
	}
	if input.IssueDate.IsZero() {
		return nil, fmt.Errorf("%w: issue date", domain.ErrMissingField)
	}

	status := input.Status
	if status == "" {
		status = domain.DocumentStatusDraft
	}
	switch status {
	case domain.DocumentStatusDraft, domain.DocumentStatusPending, domain.DocumentStatusApproved:
	default:
		return nil, &domain.TransitionError{Entity: "bill", From: "new", To: string(status)}
	}

	if err := uc.checkReferences(ctx, scope.OrganizationID, input.VendorID, input.CurrencyID, input.PurchaseOrderID); err != nil {
		return nil, err
	}

	now := uc.rt.Now()
	bill := &domain.Bill{
		Document: domain.Document{
			ID:             uc.store.IDGen.Generate(),
			OrganizationID: scope.OrganizationID,
			CounterpartyID: input.VendorID,
			CurrencyID:     input.CurrencyID,
			IssueDate:      input.IssueDate,
			DueDate:        input.DueDate,
			Status:         status,
			AmountPaid:     decimal.Zero,
			Notes:          input.Notes,
			CreatedBy:      scope.ActorID,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		VendorInvoiceNumber: domain.NormalizeVendorInvoiceNumber(input.VendorInvoiceNumber),
		ReceivedDate:        input.ReceivedDate,
		PurchaseOrderID:     input.PurchaseOrderID,
	}
	if status == domain.DocumentStatusApproved {
		bill.ApprovedBy = actorRef(scope)
		bill.ApprovedAt = &now
	}

	if err := setDocumentLines(uc.store.IDGen, &bill.Document, input.LineItems, input.Taxes); err != nil {
		return nil, err
	}

	// 2. Duplicate gate
	warning, err := uc.duplicateGate(ctx, scope, bill, input.AllowDuplicate)
	if err != nil {
		return nil, err
	}

	// 3. Persist document, lines, activity and rollup atomically
	err = uc.rt.Retrier.Retry(ctx, func() error {
		return inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
			number, err := nextNumber(ctx, tx, uc.store.Sequences, scope.OrganizationID, domain.SequenceBill, "", bill.IssueDate)
			if err != nil {
				return fmt.Errorf("allocate bill number: %w", err)
			}
			bill.Number = number

			if err := uc.store.Bills.Create(ctx, tx, bill); err != nil {
				return err
			}
			if err := recordActivity(ctx, tx, uc.store, scope, domain.EntityBill, bill.ID,
				domain.ActivityCreated, documentDetails(&bill.Document), now); err != nil {
				return err
			}
			if bill.PurchaseOrderID != nil {
				if err := uc.store.Bills.RefreshPurchaseOrderBilled(ctx, tx, scope.OrganizationID, *bill.PurchaseOrderID); err != nil {
					return err
				}
			}
			if status == domain.DocumentStatusApproved {
				return writeEvent(ctx, tx, uc.store, scope, domain.EntityBill, bill.ID,
					domain.EventTypeBillApproved, domain.NewDocumentEvent(domain.DocumentKindBill, &bill.Document, scope.ActorID), now)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.rt.Metrics.DocumentTransitioned(domain.DocumentKindBill, bill.Status)
	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	result := &BillResult{Bill: bill, Duplicate: warning}

	// 4. Best-effort ledger posting
	if bill.IsRecognized() {
		result.Ledger = uc.poster.post(ctx, scope, billRecognition(bill))
	}

	return result, nil
}

// UpdateBill edits a draft bill.
func (uc *BillUseCase) UpdateBill(ctx context.Context, scope domain.Scope, id string, input UpdateBillInput) (*BillResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var (
		bill    *domain.Bill
		warning *domain.DuplicateCheckResult
	)

	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		var err error
		bill, err = uc.store.Bills.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}
		if !bill.IsEditable() {
			return fmt.Errorf("%w: bill %s is %s", domain.ErrDocumentNotEditable, bill.Number, bill.Status)
		}

		previousPO := bill.PurchaseOrderID

		if err := uc.applyUpdate(ctx, scope, bill, input); err != nil {
			return err
		}

		warning, err = uc.duplicateGate(ctx, scope, bill, input.AllowDuplicate)
		if err != nil {
			return err
		}

		now := uc.rt.Now()
		bill.UpdatedAt = now

		if err := uc.store.Bills.Update(ctx, tx, bill); err != nil {
			return err
		}
		if err := recordActivity(ctx, tx, uc.store, scope, domain.EntityBill, bill.ID,
			domain.ActivityUpdated, documentDetails(&bill.Document), now); err != nil {
			return err
		}

		return uc.refreshPurchaseOrders(ctx, tx, scope.OrganizationID, previousPO, bill.PurchaseOrderID)
	})
	if err != nil {
		return nil, err
	}

	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	return &BillResult{Bill: bill, Duplicate: warning}, nil
}

// DeleteBill removes a draft bill with its lines.
func (uc *BillUseCase) DeleteBill(ctx context.Context, scope domain.Scope, id string) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	err := inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		bill, err := uc.store.Bills.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}
		if !bill.IsEditable() {
			return fmt.Errorf("%w: bill %s is %s", domain.ErrDocumentNotEditable, bill.Number, bill.Status)
		}

		if err := uc.store.Bills.Delete(ctx, tx, scope.OrganizationID, id); err != nil {
			return err
		}
		if err := recordActivity(ctx, tx, uc.store, scope, domain.EntityBill, bill.ID,
			domain.ActivityDeleted, documentDetails(&bill.Document), uc.rt.Now()); err != nil {
			return err
		}

		return uc.refreshPurchaseOrders(ctx, tx, scope.OrganizationID, bill.PurchaseOrderID, nil)
	})
	if err != nil {
		return err
	}

	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	return nil
}

// UpdateBillStatus applies a manual status change.
func (uc *BillUseCase) UpdateBillStatus(ctx context.Context, scope domain.Scope, id string, status domain.DocumentStatus) (*BillResult, error) {
	switch status {
	case domain.DocumentStatusApproved:
		return uc.ApproveBill(ctx, scope, id)
	case domain.DocumentStatusCancelled:
		return uc.CancelBill(ctx, scope, id)
	case domain.DocumentStatusPending:
		bill, _, err := uc.transition(ctx, scope, id, domain.DocumentStatusPending, nil, "")
		if err != nil {
			return nil, err
		}
		return &BillResult{Bill: bill}, nil
	}

	return nil, &domain.TransitionError{Entity: "bill", From: "current", To: string(status)}
}

// ApproveBill recognizes the bill and posts Dr Expense / Cr Accounts Payable
// for its total exactly once. Approving an already recognized bill retries
// only the ledger posting.
func (uc *BillUseCase) ApproveBill(ctx context.Context, scope domain.Scope, id string) (*BillResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	bill, _, err := uc.transition(ctx, scope, id, domain.DocumentStatusApproved, func(b *domain.Bill, now time.Time) {
		b.ApprovedBy = actorRef(scope)
		b.ApprovedAt = &now
	}, domain.EventTypeBillApproved)
	if err != nil {
		return nil, err
	}

	return &BillResult{
		Bill:   bill,
		Ledger: uc.poster.post(ctx, scope, billRecognition(bill)),
	}, nil
}

// CancelBill cancels a bill that is not yet paid. Journals already posted for
// it stay in the ledger.
func (uc *BillUseCase) CancelBill(ctx context.Context, scope domain.Scope, id string) (*BillResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	bill, _, err := uc.transition(ctx, scope, id, domain.DocumentStatusCancelled, nil, domain.EventTypeBillCancelled)
	if err != nil {
		return nil, err
	}

	return &BillResult{Bill: bill}, nil
}

// PostBillToLedger backfills the recognition journal of an approved bill. It
// reports already_posted when the journal exists.
func (uc *BillUseCase) PostBillToLedger(ctx context.Context, scope domain.Scope, id string) (*BillResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	bill, err := uc.store.Bills.GetByID(ctx, scope.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if !bill.IsRecognized() {
		return nil, &domain.TransitionError{Entity: "bill", From: string(bill.Status), To: "posted"}
	}

	return &BillResult{
		Bill:   bill,
		Ledger: uc.poster.post(ctx, scope, billRecognition(bill)),
	}, nil
}

// GetBill retrieves a bill with lines and taxes.
func (uc *BillUseCase) GetBill(ctx context.Context, scope domain.Scope, id string) (*domain.Bill, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return uc.store.Bills.GetByID(ctx, scope.OrganizationID, id)
}

// ListBills lists bills of the organization.
func (uc *BillUseCase) ListBills(ctx context.Context, scope domain.Scope, filter DocumentFilter) ([]*domain.Bill, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return uc.store.Bills.List(ctx, normalizeDocumentFilter(scope, filter))
}

// transition moves a bill to next under a row lock. A bill already in next is
// returned unchanged with changed=false so retried approvals converge.
func (uc *BillUseCase) transition(
	ctx context.Context,
	scope domain.Scope,
	id string,
	next domain.DocumentStatus,
	mutate func(*domain.Bill, time.Time),
	eventType string,
) (bill *domain.Bill, changed bool, err error) {
	err = inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
		var err error
		bill, err = uc.store.Bills.GetByIDForUpdate(ctx, tx, scope.OrganizationID, id)
		if err != nil {
			return err
		}

		if next == domain.DocumentStatusApproved && bill.IsRecognized() {
			return nil
		}
		if err := bill.CanTransition(next); err != nil {
			return err
		}

		now := uc.rt.Now()
		previous := bill.Status
		bill.Status = next
		bill.UpdatedAt = now
		if mutate != nil {
			mutate(bill, now)
		}

		if err := uc.store.Bills.UpdateState(ctx, tx, bill); err != nil {
			return err
		}
		if err := recordActivity(ctx, tx, uc.store, scope, domain.EntityBill, bill.ID,
			domain.ActivityStatusChanged, statusDetails(previous, next), now); err != nil {
			return err
		}
		if next == domain.DocumentStatusCancelled && bill.PurchaseOrderID != nil {
			if err := uc.store.Bills.RefreshPurchaseOrderBilled(ctx, tx, scope.OrganizationID, *bill.PurchaseOrderID); err != nil {
				return err
			}
		}
		if eventType != "" {
			if err := writeEvent(ctx, tx, uc.store, scope, domain.EntityBill, bill.ID, eventType,
				domain.NewDocumentEvent(domain.DocumentKindBill, &bill.Document, scope.ActorID), now); err != nil {
				return err
			}
		}

		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		uc.rt.Metrics.DocumentTransitioned(domain.DocumentKindBill, next)
		logInvalidation(ctx, uc.rt, scope.OrganizationID)
	}

	return bill, changed, nil
}

func (uc *BillUseCase) applyUpdate(ctx context.Context, scope domain.Scope, bill *domain.Bill, input UpdateBillInput) error {
	vendorID, currencyID := bill.CounterpartyID, bill.CurrencyID
	if input.VendorID != nil {
		vendorID = *input.VendorID
	}
	if input.CurrencyID != nil {
		currencyID = *input.CurrencyID
	}

	var poID *string
	if input.PurchaseOrderID != nil && (bill.PurchaseOrderID == nil || *bill.PurchaseOrderID != *input.PurchaseOrderID) {
		poID = input.PurchaseOrderID
	}
	if input.VendorID != nil || input.CurrencyID != nil || poID != nil {
		if err := uc.checkReferences(ctx, scope.OrganizationID, vendorID, currencyID, poID); err != nil {
			return err
		}
	}

	bill.CounterpartyID = vendorID
	bill.CurrencyID = currencyID
	if input.VendorInvoiceNumber != nil {
		bill.VendorInvoiceNumber = domain.NormalizeVendorInvoiceNumber(*input.VendorInvoiceNumber)
	}
	if input.IssueDate != nil {
		bill.IssueDate = *input.IssueDate
	}
	if input.ReceivedDate != nil {
		bill.ReceivedDate = input.ReceivedDate
	}
	if input.DueDate != nil {
		bill.DueDate = input.DueDate
	}
	if input.PurchaseOrderID != nil {
		bill.PurchaseOrderID = input.PurchaseOrderID
	}
	if input.Notes != nil {
		bill.Notes = *input.Notes
	}

	return editDocumentLines(uc.store.IDGen, &bill.Document, input.LineItems, input.Taxes)
}

func (uc *BillUseCase) duplicateGate(ctx context.Context, scope domain.Scope, bill *domain.Bill, allow bool) (*domain.DuplicateCheckResult, error) {
	if uc.duplicates == nil {
		return nil, nil
	}

	check, err := uc.duplicates.CheckForDuplicateBill(ctx, scope, domain.DuplicateQuery{
		VendorID:            bill.CounterpartyID,
		VendorInvoiceNumber: bill.VendorInvoiceNumber,
		Amount:              bill.Total,
		BillDate:            bill.IssueDate,
		ExcludeID:           bill.ID,
	})
	if err != nil {
		return nil, err
	}
	if !check.IsDuplicate {
		return nil, nil
	}
	if check.Confidence == domain.DuplicateConfidenceHigh && !allow {
		return nil, &DuplicateBillError{Result: check}
	}

	return check, nil
}

func (uc *BillUseCase) checkReferences(ctx context.Context, orgID, vendorID, currencyID string, poID *string) error {
	dir := uc.store.Directory
	if dir == nil {
		return nil
	}

	ok, err := dir.VendorExists(ctx, orgID, vendorID)
	if err := checkReference(ok, err, domain.ErrVendorNotFound, vendorID); err != nil {
		return err
	}
	ok, err = dir.CurrencyExists(ctx, orgID, currencyID)
	if err := checkReference(ok, err, domain.ErrCurrencyNotFound, currencyID); err != nil {
		return err
	}
	if poID != nil {
		ok, err = dir.PurchaseOrderExists(ctx, orgID, *poID)
		if err := checkReference(ok, err, domain.ErrPurchaseOrderNotFound, *poID); err != nil {
			return err
		}
	}

	return nil
}

func (uc *BillUseCase) refreshPurchaseOrders(ctx context.Context, tx Transaction, orgID string, ids ...*string) error {
	seen := make(map[string]bool)
	for _, id := range ids {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		if err := uc.store.Bills.RefreshPurchaseOrderBilled(ctx, tx, orgID, *id); err != nil {
			return err
		}
	}
	return nil
}
