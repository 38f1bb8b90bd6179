package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/gobooks/internal/domain"
)

// Store bundles the repositories shared by the ledger and document use cases.
type Store struct {
	TxManager TransactionManager
	IDGen     IDGenerator
	Accounts  AccountRepository
	Journals  JournalRepository
	Periods   PeriodRepository
	Bills     BillRepository
	Invoices  InvoiceRepository
	Payments  PaymentRepository
	Sequences SequenceRepository
	Activity  ActivityRepository
	Outbox    OutboxRepository
	Directory MasterDataDirectory
}

// Runtime carries cross-cutting collaborators. Zero fields get no-op defaults.
type Runtime struct {
	Logger      *zerolog.Logger
	Metrics     Metrics
	Retrier     Retrier
	Invalidator ReportInvalidator
	Now         func() time.Time
}

func (r Runtime) withDefaults() Runtime {
	if r.Logger == nil {
		nop := zerolog.Nop()
		r.Logger = &nop
	}
	if r.Metrics == nil {
		r.Metrics = NopMetrics{}
	}
	if r.Retrier == nil {
		r.Retrier = noRetry{}
	}
	if r.Invalidator == nil {
		r.Invalidator = nopInvalidator{}
	}
	if r.Now == nil {
		r.Now = func() time.Time { return time.Now().UTC() }
	}
	return r
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) JournalPosted(domain.JournalSource)                              {}
func (NopMetrics) LedgerPostingFailed(domain.DocumentKind)                         {}
func (NopMetrics) BalancesRecalculated(int, int)                                   {}
func (NopMetrics) PaymentRecorded(domain.DocumentKind)                             {}
func (NopMetrics) DocumentTransitioned(domain.DocumentKind, domain.DocumentStatus) {}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error {
	return operation()
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, string) error {
	return nil
}
