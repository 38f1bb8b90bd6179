package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// AccountUseCase owns the chart of accounts of each organization.
type AccountUseCase struct {
	accountRepo AccountRepository
	idGen       IDGenerator
	now         func() time.Time
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		idGen:       idGen,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// EnsureDefaultAccounts seeds the system accounts that are missing. It is
// safe to call repeatedly and concurrently.
func (uc *AccountUseCase) EnsureDefaultAccounts(ctx context.Context, scope domain.Scope) ([]*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	now := uc.now()
	var created []*domain.Account

	for _, sa := range domain.SystemAccounts {
		account := &domain.Account{
			ID:                  uc.idGen.Generate(),
			OrganizationID:      scope.OrganizationID,
			Code:                sa.Code,
			Name:                sa.Name,
			Type:                sa.Type,
			AccountClass:        sa.Class,
			IsSystem:            true,
			AllowManualJournals: sa.AllowManualJournals,
			CurrentBalance:      decimal.Zero,
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		inserted, err := uc.accountRepo.InsertIfAbsent(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("seed account %s: %w", sa.Code, err)
		}
		if inserted {
			created = append(created, account)
		}
	}

	return created, nil
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Code                string
	Name                string
	Type                domain.AccountType
	AccountClass        string
	AllowManualJournals bool
	ParentID            *string
}

// CreateAccount creates a custom account with a zero balance.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, scope domain.Scope, input CreateAccountInput) (*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountCode(input.Code); err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAccountType, input.Type)
	}

	code := strings.TrimSpace(input.Code)
	if err := uc.ensureCodeFree(ctx, scope.OrganizationID, code, ""); err != nil {
		return nil, err
	}
	if err := uc.ensureParent(ctx, scope.OrganizationID, input.ParentID, ""); err != nil {
		return nil, err
	}

	now := uc.now()
	account := &domain.Account{
		ID:                  uc.idGen.Generate(),
		OrganizationID:      scope.OrganizationID,
		Code:                code,
		Name:                strings.TrimSpace(input.Name),
		Type:                input.Type,
		AccountClass:        input.AccountClass,
		AllowManualJournals: input.AllowManualJournals,
		CurrentBalance:      decimal.Zero,
		ParentID:            input.ParentID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// UpdateAccountInput carries optional changes to a custom account. The type
// of an account cannot change once created.
type UpdateAccountInput struct {
	Code                *string
	Name                *string
	AccountClass        *string
	AllowManualJournals *bool
	ParentID            *string
}

// UpdateAccount edits a custom account.
func (uc *AccountUseCase) UpdateAccount(ctx context.Context, scope domain.Scope, id string, input UpdateAccountInput) (*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, scope.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if account.IsSystem {
		return nil, domain.ErrSystemAccount
	}

	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if err := domain.ValidateAccountCode(code); err != nil {
			return nil, err
		}
		if code != account.Code {
			if err := uc.ensureCodeFree(ctx, scope.OrganizationID, code, account.ID); err != nil {
				return nil, err
			}
		}
		account.Code = code
	}
	if input.Name != nil {
		if err := domain.ValidateAccountName(*input.Name); err != nil {
			return nil, err
		}
		account.Name = strings.TrimSpace(*input.Name)
	}
	if input.AccountClass != nil {
		account.AccountClass = *input.AccountClass
	}
	if input.AllowManualJournals != nil {
		account.AllowManualJournals = *input.AllowManualJournals
	}
	if input.ParentID != nil {
		if err := uc.ensureParent(ctx, scope.OrganizationID, input.ParentID, account.ID); err != nil {
			return nil, err
		}
		account.ParentID = input.ParentID
	}

	account.UpdatedAt = uc.now()
	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// DeleteAccount removes a custom account that no journal line references.
func (uc *AccountUseCase) DeleteAccount(ctx context.Context, scope domain.Scope, id string) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	account, err := uc.accountRepo.GetByID(ctx, scope.OrganizationID, id)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return domain.ErrSystemAccount
	}

	inUse, err := uc.accountRepo.HasJournalLines(ctx, scope.OrganizationID, id)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: %s", domain.ErrAccountInUse, account.Code)
	}

	return uc.accountRepo.Delete(ctx, scope.OrganizationID, id)
}

// GetChartOfAccounts lists the organization's accounts, seeding the system
// accounts first so the chart is never empty.
func (uc *AccountUseCase) GetChartOfAccounts(ctx context.Context, scope domain.Scope) ([]*domain.Account, error) {
	if _, err := uc.EnsureDefaultAccounts(ctx, scope); err != nil {
		return nil, err
	}
	return uc.accountRepo.List(ctx, scope.OrganizationID)
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, scope domain.Scope, id string) (*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return uc.accountRepo.GetByID(ctx, scope.OrganizationID, id)
}

// ResolveSystemAccount looks up a well-known account by code, seeding the
// defaults when the organization has never touched the ledger. An account
// holding the code without being the seeded system account is never
// returned.
func (uc *AccountUseCase) ResolveSystemAccount(ctx context.Context, scope domain.Scope, code string) (*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !domain.IsSystemAccountCode(code) {
		return nil, fmt.Errorf("%w: %s is not a system account code", domain.ErrAccountNotFound, code)
	}

	account, err := uc.accountRepo.GetByCode(ctx, scope.OrganizationID, code)
	if errors.Is(err, domain.ErrAccountNotFound) {
		if _, err := uc.EnsureDefaultAccounts(ctx, scope); err != nil {
			return nil, err
		}
		account, err = uc.accountRepo.GetByCode(ctx, scope.OrganizationID, code)
	}
	if err != nil {
		return nil, err
	}
	if !account.IsSystem {
		return nil, fmt.Errorf("%w: code %s is held by custom account %s", domain.ErrAccountNotFound, code, account.ID)
	}

	return account, nil
}

func (uc *AccountUseCase) ensureCodeFree(ctx context.Context, orgID, code, selfID string) error {
	if domain.IsSystemAccountCode(code) {
		return fmt.Errorf("%w: %s is reserved for a system account", domain.ErrDuplicateAccountCode, code)
	}

	existing, err := uc.accountRepo.GetByCode(ctx, orgID, code)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAccountCode, code)
	}
	return nil
}

func (uc *AccountUseCase) ensureParent(ctx context.Context, orgID string, parentID *string, selfID string) error {
	if parentID == nil {
		return nil
	}
	if *parentID == selfID {
		return fmt.Errorf("%w: account cannot be its own parent", domain.ErrInvalidAccountCode)
	}
	_, err := uc.accountRepo.GetByID(ctx, orgID, *parentID)
	return err
}
