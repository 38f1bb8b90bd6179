package usecase

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/iho/gobooks/internal/domain"
)

// BalanceUseCase maintains the cached current balance of accounts as a
// projection of posted journal lines.
type BalanceUseCase struct {
	accountRepo AccountRepository
	journalRepo JournalRepository
	rt          Runtime
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(accountRepo AccountRepository, journalRepo JournalRepository, rt Runtime) *BalanceUseCase {
	return &BalanceUseCase{
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		rt:          rt.withDefaults(),
	}
}

// Compute returns the balance an account should carry given its posted lines.
func (uc *BalanceUseCase) Compute(ctx context.Context, orgID, accountID string) (*domain.Account, domain.AccountActivity, error) {
	account, err := uc.accountRepo.GetByID(ctx, orgID, accountID)
	if err != nil {
		return nil, domain.AccountActivity{}, err
	}

	activity, err := uc.journalRepo.SumPosted(ctx, orgID, accountID)
	if err != nil {
		return nil, domain.AccountActivity{}, fmt.Errorf("sum posted lines: %w", err)
	}

	return account, activity, nil
}

// Recalculate re-sums posted lines for one account and stores the result.
// Concurrent calls for the same account converge on the same value.
func (uc *BalanceUseCase) Recalculate(ctx context.Context, orgID, accountID string) (*domain.Account, error) {
	account, activity, err := uc.Compute(ctx, orgID, accountID)
	if err != nil {
		return nil, err
	}

	balance := account.Type.NormalBalance(activity.Debits, activity.Credits)
	now := uc.rt.Now()

	if err := uc.accountRepo.UpdateBalance(ctx, orgID, accountID, balance, now); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	account.CurrentBalance = balance
	account.UpdatedAt = now

	return account, nil
}

// RecalculateAccounts recalculates every account in parallel. Each failure is
// logged; the first one is returned after all accounts were attempted.
func (uc *BalanceUseCase) RecalculateAccounts(ctx context.Context, orgID string, accountIDs []string) error {
	if len(accountIDs) == 0 {
		return nil
	}

	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	g.SetLimit(recalculationConcurrency)

	for _, id := range accountIDs {
		g.Go(func() error {
			if _, err := uc.Recalculate(ctx, orgID, id); err != nil {
				failed.Add(1)
				uc.rt.Logger.Error().Err(err).
					Str("org_id", orgID).
					Str("account_id", id).
					Msg("balance recalculation failed")
				return fmt.Errorf("recalculate %s: %w", id, err)
			}
			return nil
		})
	}

	err := g.Wait()

	n := int(failed.Load())
	uc.rt.Metrics.BalancesRecalculated(len(accountIDs)-n, n)

	if invErr := uc.rt.Invalidator.Invalidate(ctx, orgID); invErr != nil {
		uc.rt.Logger.Warn().Err(invErr).Str("org_id", orgID).Msg("report cache invalidation failed")
	}

	return err
}
