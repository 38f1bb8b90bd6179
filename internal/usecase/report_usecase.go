package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iho/gobooks/internal/domain"
)

// ReportUseCase derives financial statements from posted journals. Results
// are cached per organization generation; any ledger change bumps the
// generation through Invalidate.
type ReportUseCase struct {
	accountRepo AccountRepository
	journalRepo JournalRepository
	billRepo    BillRepository
	invoiceRepo InvoiceRepository
	cache       Cache
	ttl         time.Duration
	group       singleflight.Group
	rt          Runtime
}

// NewReportUseCase creates a new ReportUseCase. cache may be nil.
func NewReportUseCase(store Store, cache Cache, ttl time.Duration, rt Runtime) *ReportUseCase {
	if ttl <= 0 {
		ttl = DefaultReportCacheTTL
	}
	return &ReportUseCase{
		accountRepo: store.Accounts,
		journalRepo: store.Journals,
		billRepo:    store.Bills,
		invoiceRepo: store.Invoices,
		cache:       cache,
		ttl:         ttl,
		rt:          rt.withDefaults(),
	}
}

// Invalidate implements ReportInvalidator.
func (uc *ReportUseCase) Invalidate(ctx context.Context, orgID string) error {
	if uc.cache == nil {
		return nil
	}
	_, err := uc.cache.Incr(ctx, generationKey(orgID))
	return err
}

// TrialBalance sums posted activity per account within the optional window.
func (uc *ReportUseCase) TrialBalance(ctx context.Context, scope domain.Scope, start, end *time.Time) (*domain.TrialBalance, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, domain.ErrInvalidPeriodRange
	}

	return cachedReport(ctx, uc, scope.OrganizationID, "tb", dateRangeKey(start, end), func(ctx context.Context) (*domain.TrialBalance, error) {
		return uc.buildTrialBalance(ctx, scope.OrganizationID, start, end)
	})
}

// IncomeStatement reports revenue, expenses and net income for the window.
func (uc *ReportUseCase) IncomeStatement(ctx context.Context, scope domain.Scope, start, end *time.Time) (*domain.IncomeStatement, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, domain.ErrInvalidPeriodRange
	}

	return cachedReport(ctx, uc, scope.OrganizationID, "is", dateRangeKey(start, end), func(ctx context.Context) (*domain.IncomeStatement, error) {
		tb, err := uc.buildTrialBalance(ctx, scope.OrganizationID, start, end)
		if err != nil {
			return nil, err
		}
		return domain.BuildIncomeStatement(tb), nil
	})
}

// BalanceSheet reports assets, liabilities and equity at asOf, with rolling
// retained earnings. A zero asOf means now.
func (uc *ReportUseCase) BalanceSheet(ctx context.Context, scope domain.Scope, asOf time.Time) (*domain.BalanceSheet, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = uc.rt.Now()
	}

	return cachedReport(ctx, uc, scope.OrganizationID, "bs", asOf.Format(time.DateOnly), func(ctx context.Context) (*domain.BalanceSheet, error) {
		tb, err := uc.buildTrialBalance(ctx, scope.OrganizationID, nil, &asOf)
		if err != nil {
			return nil, err
		}
		return domain.BuildBalanceSheet(tb, asOf), nil
	})
}

// AgingReport buckets outstanding bills or invoices by days past due.
func (uc *ReportUseCase) AgingReport(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, asOf time.Time) (*domain.AgingReport, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = uc.rt.Now()
	}

	return cachedReport(ctx, uc, scope.OrganizationID, "aging-"+string(kind), asOf.Format(time.DateOnly), func(ctx context.Context) (*domain.AgingReport, error) {
		docs, err := uc.openDocuments(ctx, scope.OrganizationID, kind)
		if err != nil {
			return nil, err
		}
		return domain.BuildAgingReport(scope.OrganizationID, kind, asOf, docs), nil
	})
}

func (uc *ReportUseCase) buildTrialBalance(ctx context.Context, orgID string, start, end *time.Time) (*domain.TrialBalance, error) {
	accounts, err := uc.accountRepo.List(ctx, orgID)
	if err != nil {
		return nil, err
	}

	activity, err := uc.journalRepo.PostedActivity(ctx, orgID, start, end)
	if err != nil {
		return nil, fmt.Errorf("posted activity: %w", err)
	}

	return domain.BuildTrialBalance(orgID, accounts, activity, start, end), nil
}

func (uc *ReportUseCase) openDocuments(ctx context.Context, orgID string, kind domain.DocumentKind) ([]*domain.Document, error) {
	switch kind {
	case domain.DocumentKindBill:
		bills, err := uc.billRepo.List(ctx, DocumentFilter{
			OrganizationID: orgID,
			Statuses:       []domain.DocumentStatus{domain.DocumentStatusApproved, domain.DocumentStatusPartiallyPaid},
		})
		if err != nil {
			return nil, err
		}
		docs := make([]*domain.Document, len(bills))
		for i, b := range bills {
			docs[i] = &b.Document
		}
		return docs, nil

	case domain.DocumentKindInvoice:
		invoices, err := uc.invoiceRepo.List(ctx, DocumentFilter{
			OrganizationID: orgID,
			Statuses:       []domain.DocumentStatus{domain.DocumentStatusSent, domain.DocumentStatusPartiallyPaid},
		})
		if err != nil {
			return nil, err
		}
		docs := make([]*domain.Document, len(invoices))
		for i, inv := range invoices {
			docs[i] = &inv.Document
		}
		return docs, nil
	}

	return nil, fmt.Errorf("%w: document kind %q", domain.ErrMissingField, kind)
}

// cachedReport serves a report from the cache or builds it once for all
// concurrent callers asking for the same key.
func cachedReport[T any](ctx context.Context, uc *ReportUseCase, orgID, kind, rangeKey string, build func(context.Context) (T, error)) (T, error) {
	if uc.cache == nil {
		return build(ctx)
	}

	key := fmt.Sprintf("reports:%s:%d:%s:%s", orgID, uc.generation(ctx, orgID), kind, rangeKey)

	var zero T
	if data, err := uc.cache.Get(ctx, key); err == nil {
		var report T
		if err := json.Unmarshal(data, &report); err == nil {
			return report, nil
		}
	} else if !errors.Is(err, ErrCacheMiss) {
		uc.rt.Logger.Warn().Err(err).Str("key", key).Msg("report cache read failed")
	}

	v, err, _ := uc.group.Do(key, func() (any, error) {
		report, err := build(ctx)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(report); err == nil {
			if err := uc.cache.Set(ctx, key, data, uc.ttl); err != nil {
				uc.rt.Logger.Warn().Err(err).Str("key", key).Msg("report cache write failed")
			}
		}

		return report, nil
	})
	if err != nil {
		return zero, err
	}

	return v.(T), nil
}

func (uc *ReportUseCase) generation(ctx context.Context, orgID string) int64 {
	data, err := uc.cache.Get(ctx, generationKey(orgID))
	if err != nil {
		return 0
	}
	gen, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

func generationKey(orgID string) string {
	return "reports:gen:" + orgID
}

func dateRangeKey(start, end *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "*"
		}
		return t.Format(time.DateOnly)
	}
	return format(start) + ".." + format(end)
}
