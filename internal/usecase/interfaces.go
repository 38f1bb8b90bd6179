package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// AccountRepository defines data access for the chart of accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	// InsertIfAbsent inserts the account unless its code already exists in
	// the organization. It reports whether a row was written.
	InsertIfAbsent(ctx context.Context, account *domain.Account) (bool, error)
	Update(ctx context.Context, account *domain.Account) error
	Delete(ctx context.Context, orgID, id string) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Account, error)
	GetByCode(ctx context.Context, orgID, code string) (*domain.Account, error)
	GetByIDs(ctx context.Context, orgID string, ids []string) ([]*domain.Account, error)
	List(ctx context.Context, orgID string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, orgID, id string, balance decimal.Decimal, updatedAt time.Time) error
	HasJournalLines(ctx context.Context, orgID, id string) (bool, error)
}

// JournalFilter narrows journal listings.
type JournalFilter struct {
	OrganizationID string
	Status         domain.JournalStatus
	Source         domain.JournalSource
	Limit          int
	Offset         int
}

// JournalRepository defines data access for journals and their lines.
type JournalRepository interface {
	// Create stores the header and lines. A second journal for the same
	// (organization, source, source id) fails with domain.ErrJournalAlreadyExists.
	Create(ctx context.Context, tx Transaction, journal *domain.Journal) error
	// Update rewrites the header and replaces all lines.
	Update(ctx context.Context, tx Transaction, journal *domain.Journal) error
	UpdateStatus(ctx context.Context, tx Transaction, journal *domain.Journal) error
	Delete(ctx context.Context, tx Transaction, orgID, id string) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Journal, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, orgID, id string) (*domain.Journal, error)
	// FindBySource returns domain.ErrJournalNotFound when no journal exists.
	// tx may be nil.
	FindBySource(ctx context.Context, tx Transaction, orgID string, source domain.JournalSource, sourceID string) (*domain.Journal, error)
	ExistingSourceIDs(ctx context.Context, orgID string, source domain.JournalSource, sourceIDs []string) (map[string]bool, error)
	List(ctx context.Context, filter JournalFilter) ([]*domain.Journal, error)
	// SumPosted totals posted lines for one account.
	SumPosted(ctx context.Context, orgID, accountID string) (domain.AccountActivity, error)
	// PostedActivity totals posted lines per account with transaction dates
	// inside the optional window.
	PostedActivity(ctx context.Context, orgID string, start, end *time.Time) (map[string]domain.AccountActivity, error)
}

// PeriodRepository defines data access for accounting periods.
type PeriodRepository interface {
	Create(ctx context.Context, period *domain.Period) error
	Update(ctx context.Context, period *domain.Period) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Period, error)
	List(ctx context.Context, orgID string) ([]*domain.Period, error)
}

// DocumentFilter narrows bill and invoice listings. Limit <= 0 returns every
// matching row.
type DocumentFilter struct {
	OrganizationID string
	Statuses       []domain.DocumentStatus
	CounterpartyID string
	Limit          int
	Offset         int
}

// BillRepository defines data access for bills, their line items and taxes.
type BillRepository interface {
	Create(ctx context.Context, tx Transaction, bill *domain.Bill) error
	// Update rewrites the header and replaces line items and taxes.
	Update(ctx context.Context, tx Transaction, bill *domain.Bill) error
	// UpdateState writes status, payment totals and approval fields.
	UpdateState(ctx context.Context, tx Transaction, bill *domain.Bill) error
	Delete(ctx context.Context, tx Transaction, orgID, id string) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Bill, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, orgID, id string) (*domain.Bill, error)
	List(ctx context.Context, filter DocumentFilter) ([]*domain.Bill, error)
	// FindByVendorInvoiceNumber ignores cancelled bills and excludeID.
	FindByVendorInvoiceNumber(ctx context.Context, orgID, vendorID, number, excludeID string) ([]*domain.Bill, error)
	// FindSimilar returns non-cancelled bills of the vendor with totals and
	// issue dates inside the given ranges.
	FindSimilar(ctx context.Context, orgID, vendorID string, minTotal, maxTotal decimal.Decimal, from, to time.Time, excludeID string) ([]*domain.Bill, error)
	// RefreshPurchaseOrderBilled recomputes the billed amount of a purchase
	// order from its non-cancelled bills.
	RefreshPurchaseOrderBilled(ctx context.Context, tx Transaction, orgID, purchaseOrderID string) error
}

// InvoiceRepository defines data access for invoices, their line items and taxes.
type InvoiceRepository interface {
	Create(ctx context.Context, tx Transaction, invoice *domain.Invoice) error
	Update(ctx context.Context, tx Transaction, invoice *domain.Invoice) error
	// UpdateState writes status, payment totals and send/remind timestamps.
	UpdateState(ctx context.Context, tx Transaction, invoice *domain.Invoice) error
	Delete(ctx context.Context, tx Transaction, orgID, id string) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Invoice, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, orgID, id string) (*domain.Invoice, error)
	List(ctx context.Context, filter DocumentFilter) ([]*domain.Invoice, error)
}

// PaymentRepository defines data access for payments.
type PaymentRepository interface {
	Create(ctx context.Context, tx Transaction, payment *domain.Payment) error
	Update(ctx context.Context, tx Transaction, payment *domain.Payment) error
	Delete(ctx context.Context, tx Transaction, orgID, id string) error
	GetByID(ctx context.Context, tx Transaction, orgID, id string) (*domain.Payment, error)
	ListByDocument(ctx context.Context, orgID string, kind domain.DocumentKind, documentID string) ([]*domain.Payment, error)
}

// SequenceRepository allocates human-readable document numbers.
type SequenceRepository interface {
	// Next atomically increments and returns the counter for
	// (organization, kind, year) inside tx.
	Next(ctx context.Context, tx Transaction, orgID string, kind domain.SequenceKind, year int) (int64, error)
}

// ActivityRepository defines data access for the activity log.
type ActivityRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.ActivityLogEntry) error
	List(ctx context.Context, orgID, entityType, entityID string, limit, offset int) ([]*domain.ActivityLogEntry, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}
