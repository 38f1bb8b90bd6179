package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

const journalColumns = `id, organization_id, number, transaction_date, posting_date, description,
	source, source_id, status, total_debits, total_credits, created_by, posted_by, posted_at,
	created_at, updated_at`

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct {
	db DBTX
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(db DBTX) *JournalRepository {
	return &JournalRepository{db: db}
}

// Create inserts the header and its lines.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, journal *domain.Journal) error {
	q := conn(r.db, tx)

	_, err := q.Exec(ctx, `
		INSERT INTO journals (`+journalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		journal.ID, journal.OrganizationID, journal.Number, dateOnly(journal.TransactionDate),
		dateOnly(journal.PostingDate), journal.Description, journal.Source, journal.SourceID,
		journal.Status, decimalToNumeric(journal.TotalDebits), decimalToNumeric(journal.TotalCredits),
		journal.CreatedBy, journal.PostedBy, journal.PostedAt, journal.CreatedAt, journal.UpdatedAt)
	if isUniqueViolation(err, "journals_source_key") {
		return domain.ErrJournalAlreadyExists
	}
	if err != nil {
		return err
	}

	return insertJournalLines(ctx, q, journal)
}

// Update rewrites the header and replaces all lines.
func (r *JournalRepository) Update(ctx context.Context, tx usecase.Transaction, journal *domain.Journal) error {
	q := conn(r.db, tx)

	tag, err := q.Exec(ctx, `
		UPDATE journals
		SET transaction_date = $3, posting_date = $4, description = $5,
		    total_debits = $6, total_credits = $7, updated_at = $8
		WHERE organization_id = $1 AND id = $2`,
		journal.OrganizationID, journal.ID, dateOnly(journal.TransactionDate), dateOnly(journal.PostingDate),
		journal.Description, decimalToNumeric(journal.TotalDebits), decimalToNumeric(journal.TotalCredits),
		journal.UpdatedAt)
	if err := affected(tag, err, domain.ErrJournalNotFound); err != nil {
		return err
	}

	if _, err := q.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id = $1`, journal.ID); err != nil {
		return err
	}

	return insertJournalLines(ctx, q, journal)
}

// UpdateStatus writes the status and posting fields.
func (r *JournalRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, journal *domain.Journal) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE journals SET status = $3, posted_by = $4, posted_at = $5, updated_at = $6
		WHERE organization_id = $1 AND id = $2`,
		journal.OrganizationID, journal.ID, journal.Status, journal.PostedBy, journal.PostedAt, journal.UpdatedAt)

	return affected(tag, err, domain.ErrJournalNotFound)
}

// Delete removes a journal; lines cascade.
func (r *JournalRepository) Delete(ctx context.Context, tx usecase.Transaction, orgID, id string) error {
	tag, err := conn(r.db, tx).Exec(ctx, `DELETE FROM journals WHERE organization_id = $1 AND id = $2`, orgID, id)

	return affected(tag, err, domain.ErrJournalNotFound)
}

// GetByID retrieves a journal with its lines.
func (r *JournalRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Journal, error) {
	return r.get(ctx, r.db, `WHERE organization_id = $1 AND id = $2`, orgID, id)
}

// GetByIDForUpdate retrieves a journal and locks its header row.
func (r *JournalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.Journal, error) {
	return r.get(ctx, conn(r.db, tx), `WHERE organization_id = $1 AND id = $2 FOR UPDATE`, orgID, id)
}

// FindBySource returns the journal generated for a business document.
func (r *JournalRepository) FindBySource(ctx context.Context, tx usecase.Transaction, orgID string, source domain.JournalSource, sourceID string) (*domain.Journal, error) {
	return r.get(ctx, conn(r.db, tx), `WHERE organization_id = $1 AND source = $2 AND source_id = $3`, orgID, source, sourceID)
}

// ExistingSourceIDs returns which of sourceIDs already have a journal.
func (r *JournalRepository) ExistingSourceIDs(ctx context.Context, orgID string, source domain.JournalSource, sourceIDs []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(sourceIDs) == 0 {
		return found, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT source_id FROM journals
		WHERE organization_id = $1 AND source = $2 AND source_id = ANY($3)`,
		orgID, source, sourceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}

	return found, rows.Err()
}

// List returns journals newest number first. Lines are loaded for every row.
func (r *JournalRepository) List(ctx context.Context, filter usecase.JournalFilter) ([]*domain.Journal, error) {
	var (
		where = []string{"organization_id = $1"}
		args  = []any{filter.OrganizationID}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}

	query := `SELECT ` + journalColumns + ` FROM journals WHERE ` + strings.Join(where, " AND ") + ` ORDER BY number DESC`
	query, args = appendPage(query, args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	journals := make([]*domain.Journal, 0)
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		journals = append(journals, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, j := range journals {
		if j.Lines, err = loadJournalLines(ctx, r.db, j.ID); err != nil {
			return nil, err
		}
	}

	return journals, nil
}

// SumPosted totals posted lines for one account.
func (r *JournalRepository) SumPosted(ctx context.Context, orgID, accountID string) (domain.AccountActivity, error) {
	var debits, credits pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journals j ON j.id = l.journal_id
		WHERE l.organization_id = $1 AND l.account_id = $2 AND j.status = 'posted'`,
		orgID, accountID).Scan(&debits, &credits)
	if err != nil {
		return domain.AccountActivity{}, err
	}

	return domain.AccountActivity{
		AccountID: accountID,
		Debits:    numericToDecimal(debits),
		Credits:   numericToDecimal(credits),
	}, nil
}

// PostedActivity totals posted lines per account inside the optional window.
func (r *JournalRepository) PostedActivity(ctx context.Context, orgID string, start, end *time.Time) (map[string]domain.AccountActivity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT l.account_id, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journals j ON j.id = l.journal_id
		WHERE l.organization_id = $1 AND j.status = 'posted'
		  AND ($2::date IS NULL OR j.transaction_date >= $2)
		  AND ($3::date IS NULL OR j.transaction_date <= $3)
		GROUP BY l.account_id`,
		orgID, nullableDate(start), nullableDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activity := make(map[string]domain.AccountActivity)
	for rows.Next() {
		var (
			accountID       string
			debits, credits pgtype.Numeric
		)
		if err := rows.Scan(&accountID, &debits, &credits); err != nil {
			return nil, err
		}
		activity[accountID] = domain.AccountActivity{
			AccountID: accountID,
			Debits:    numericToDecimal(debits),
			Credits:   numericToDecimal(credits),
		}
	}

	return activity, rows.Err()
}

func (r *JournalRepository) get(ctx context.Context, q DBTX, where string, args ...any) (*domain.Journal, error) {
	journal, err := scanJournal(q.QueryRow(ctx, `SELECT `+journalColumns+` FROM journals `+where, args...))
	if err != nil {
		return nil, notFound(err, domain.ErrJournalNotFound)
	}

	if journal.Lines, err = loadJournalLines(ctx, q, journal.ID); err != nil {
		return nil, err
	}

	return journal, nil
}

func insertJournalLines(ctx context.Context, q DBTX, journal *domain.Journal) error {
	for i, l := range journal.Lines {
		_, err := q.Exec(ctx, `
			INSERT INTO journal_lines (id, journal_id, organization_id, account_id, description, debit, credit, entity_id, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			l.ID, journal.ID, journal.OrganizationID, l.AccountID, l.Description,
			decimalToNumeric(l.Debit), decimalToNumeric(l.Credit), l.EntityID, i)
		if err != nil {
			return fmt.Errorf("insert journal line %d: %w", i, err)
		}
	}

	return nil
}

func loadJournalLines(ctx context.Context, q DBTX, journalID string) ([]domain.JournalLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, journal_id, account_id, description, debit, credit, entity_id
		FROM journal_lines WHERE journal_id = $1 ORDER BY position`, journalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.JournalLine, 0, 2)
	for rows.Next() {
		var (
			l             domain.JournalLine
			debit, credit pgtype.Numeric
		)
		if err := rows.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.Description, &debit, &credit, &l.EntityID); err != nil {
			return nil, err
		}
		l.Debit = numericToDecimal(debit)
		l.Credit = numericToDecimal(credit)
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

func scanJournal(row pgx.Row) (*domain.Journal, error) {
	var (
		j               domain.Journal
		debits, credits pgtype.Numeric
	)
	err := row.Scan(&j.ID, &j.OrganizationID, &j.Number, &j.TransactionDate, &j.PostingDate, &j.Description,
		&j.Source, &j.SourceID, &j.Status, &debits, &credits, &j.CreatedBy, &j.PostedBy, &j.PostedAt,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.TotalDebits = numericToDecimal(debits)
	j.TotalCredits = numericToDecimal(credits)

	return &j, nil
}

// appendPage adds LIMIT/OFFSET placeholders. limit <= 0 means no limit.
func appendPage(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return query, args
}
