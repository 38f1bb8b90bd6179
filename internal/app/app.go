// Package app assembles repositories and use cases shared by the server,
// worker and CLI binaries.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	postgresRepo "github.com/iho/gobooks/internal/adapter/repository/postgres"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/config"
	"github.com/iho/gobooks/internal/usecase"
)

// NewStore builds the postgres-backed repositories on one pool.
func NewStore(pool *pgxpool.Pool) usecase.Store {
	return usecase.Store{
		TxManager: postgresRepo.NewTxManager(pool, postgresRepo.WithLockTimeout(postgresRepo.DefaultLockTimeout)),
		IDGen:     postgresRepo.NewULIDGenerator(),
		Accounts:  postgresRepo.NewAccountRepository(pool),
		Journals:  postgresRepo.NewJournalRepository(pool),
		Periods:   postgresRepo.NewPeriodRepository(pool),
		Bills:     postgresRepo.NewBillRepository(pool),
		Invoices:  postgresRepo.NewInvoiceRepository(pool),
		Payments:  postgresRepo.NewPaymentRepository(pool),
		Sequences: postgresRepo.NewSequenceRepository(pool),
		Activity:  postgresRepo.NewActivityRepository(pool),
		Outbox:    postgresRepo.NewOutboxRepository(pool),
		Directory: postgresRepo.NewMasterDataDirectory(pool),
	}
}

// Services holds every use case.
type Services struct {
	Accounts       *usecase.AccountUseCase
	Balances       *usecase.BalanceUseCase
	Journals       *usecase.JournalUseCase
	Periods        *usecase.PeriodUseCase
	Duplicates     *usecase.DuplicateUseCase
	Bills          *usecase.BillUseCase
	Invoices       *usecase.InvoiceUseCase
	Payments       *usecase.PaymentUseCase
	Numbering      *usecase.NumberingUseCase
	Reports        *usecase.ReportUseCase
	Reconciliation *usecase.ReconciliationUseCase
	Activity       *usecase.ActivityUseCase
}

// NewServices wires the use cases. cache may be nil to disable report
// caching. Writers invalidate cached reports of their organization.
func NewServices(store usecase.Store, cache usecase.Cache, cfg *config.Config, logger zerolog.Logger, metrics usecase.Metrics) *Services {
	rt := usecase.Runtime{
		Logger:  &logger,
		Metrics: metrics,
		Retrier: postgresRepo.NewRetrier(logger),
	}

	reports := usecase.NewReportUseCase(store, cache, cfg.ReportCacheTTL, rt)
	rt.Invalidator = reports

	accounts := usecase.NewAccountUseCase(store.Accounts, store.IDGen)
	balances := usecase.NewBalanceUseCase(store.Accounts, store.Journals, rt)
	journals := usecase.NewJournalUseCase(store, balances, rt)
	duplicates := usecase.NewDuplicateUseCase(store.Bills, domain.NewWeightedScorer())

	return &Services{
		Accounts:       accounts,
		Balances:       balances,
		Journals:       journals,
		Periods:        usecase.NewPeriodUseCase(store.Periods, store.IDGen, rt),
		Duplicates:     duplicates,
		Bills:          usecase.NewBillUseCase(store, accounts, journals, duplicates, rt),
		Invoices:       usecase.NewInvoiceUseCase(store, accounts, journals, rt, cfg.DefaultInvoicePrefix),
		Payments:       usecase.NewPaymentUseCase(store, rt),
		Numbering:      usecase.NewNumberingUseCase(store.TxManager, store.Sequences, rt),
		Reports:        reports,
		Reconciliation: usecase.NewReconciliationUseCase(store, balances, rt),
		Activity:       usecase.NewActivityUseCase(store.Activity),
	}
}
