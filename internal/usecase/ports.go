package usecase

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks -exclude_interfaces=Transaction,TransactionManager,IDGenerator,IdempotencyStore,MasterDataDirectory

import (
	"context"
	"errors"
	"time"

	"github.com/iho/gobooks/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs an operation on transient storage conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// MasterDataDirectory validates references to records owned by other
// services. Every lookup is organization scoped.
type MasterDataDirectory interface {
	VendorExists(ctx context.Context, orgID, vendorID string) (bool, error)
	ClientExists(ctx context.Context, orgID, clientID string) (bool, error)
	CurrencyExists(ctx context.Context, orgID, currencyID string) (bool, error)
	PurchaseOrderExists(ctx context.Context, orgID, purchaseOrderID string) (bool, error)
	// InvoicePrefix returns the organization's invoice prefix, or "" when unset.
	InvoicePrefix(ctx context.Context, orgID string) (string, error)
	// OrganizationIDs lists active organizations for scheduled jobs.
	OrganizationIDs(ctx context.Context) ([]string, error)
}

// Notifier delivers document notifications (email, PDF rendering) outside
// the ledger. Failures never roll back committed state.
type Notifier interface {
	Notify(ctx context.Context, eventType string, payload map[string]any) error
}

// ReportInvalidator drops cached reports after the ledger changes.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, orgID string) error
}

// Metrics records domain counters.
type Metrics interface {
	JournalPosted(source domain.JournalSource)
	LedgerPostingFailed(kind domain.DocumentKind)
	BalancesRecalculated(succeeded, failed int)
	PaymentRecorded(kind domain.DocumentKind)
	DocumentTransitioned(kind domain.DocumentKind, status domain.DocumentStatus)
}
