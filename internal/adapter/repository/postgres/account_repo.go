package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

const accountColumns = `id, organization_id, code, name, type, account_class, is_system,
	allow_manual_journals, current_balance, parent_id, created_at, updated_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		accountArgs(account)...)
	if isUniqueViolation(err, "accounts_organization_id_code_key") {
		return domain.ErrDuplicateAccountCode
	}

	return err
}

// InsertIfAbsent inserts the account unless the code is taken.
func (r *AccountRepository) InsertIfAbsent(ctx context.Context, account *domain.Account) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (organization_id, code) DO NOTHING`,
		accountArgs(account)...)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// Update rewrites the editable fields of an account.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET code = $3, name = $4, type = $5, account_class = $6,
		    allow_manual_journals = $7, parent_id = $8, updated_at = $9
		WHERE organization_id = $1 AND id = $2`,
		account.OrganizationID, account.ID, account.Code, account.Name, account.Type,
		account.AccountClass, account.AllowManualJournals, account.ParentID, account.UpdatedAt)
	if isUniqueViolation(err, "accounts_organization_id_code_key") {
		return domain.ErrDuplicateAccountCode
	}

	return affected(tag, err, domain.ErrAccountNotFound)
}

// Delete removes an account.
func (r *AccountRepository) Delete(ctx context.Context, orgID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE organization_id = $1 AND id = $2`, orgID, id)

	return affected(tag, err, domain.ErrAccountNotFound)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE organization_id = $1 AND id = $2`, orgID, id)

	account, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}

	return account, nil
}

// GetByCode retrieves an account by its code.
func (r *AccountRepository) GetByCode(ctx context.Context, orgID, code string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE organization_id = $1 AND code = $2`, orgID, code)

	account, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}

	return account, nil
}

// GetByIDs retrieves the accounts of the organization among ids.
func (r *AccountRepository) GetByIDs(ctx context.Context, orgID string, ids []string) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE organization_id = $1 AND id = ANY($2)
		ORDER BY code`, orgID, ids)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

// List returns the chart of accounts ordered by code.
func (r *AccountRepository) List(ctx context.Context, orgID string) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE organization_id = $1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

// UpdateBalance stores a recalculated balance.
func (r *AccountRepository) UpdateBalance(ctx context.Context, orgID, id string, balance decimal.Decimal, updatedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET current_balance = $3, updated_at = $4
		WHERE organization_id = $1 AND id = $2`,
		orgID, id, decimalToNumeric(balance), updatedAt)

	return affected(tag, err, domain.ErrAccountNotFound)
}

// HasJournalLines reports whether any journal line references the account.
func (r *AccountRepository) HasJournalLines(ctx context.Context, orgID, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM journal_lines WHERE organization_id = $1 AND account_id = $2)`,
		orgID, id).Scan(&exists)

	return exists, err
}

func accountArgs(a *domain.Account) []any {
	return []any{
		a.ID, a.OrganizationID, a.Code, a.Name, a.Type, a.AccountClass, a.IsSystem,
		a.AllowManualJournals, decimalToNumeric(a.CurrentBalance), a.ParentID, a.CreatedAt, a.UpdatedAt,
	}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a       domain.Account
		balance pgtype.Numeric
	)
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Code, &a.Name, &a.Type, &a.AccountClass, &a.IsSystem,
		&a.AllowManualJournals, &balance, &a.ParentID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.CurrentBalance = numericToDecimal(balance)

	return &a, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
