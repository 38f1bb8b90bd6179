package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

var invoiceColumns = documentColumns("client_id") + `, sent_at, last_reminded_at`

// InvoiceRepository implements usecase.InvoiceRepository.
type InvoiceRepository struct {
	db DBTX
}

// NewInvoiceRepository creates a new InvoiceRepository.
func NewInvoiceRepository(db DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create inserts an invoice with its line items and taxes.
func (r *InvoiceRepository) Create(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error {
	q := conn(r.db, tx)

	args := append(documentArgs(&invoice.Document), invoice.SentAt, invoice.LastRemindedAt)
	if _, err := q.Exec(ctx, `INSERT INTO invoices (`+invoiceColumns+`) VALUES (`+placeholders(1, len(args))+`)`, args...); err != nil {
		return err
	}

	return replaceDocumentLines(ctx, q, domain.DocumentKindInvoice, &invoice.Document)
}

// Update rewrites the header and replaces line items and taxes.
func (r *InvoiceRepository) Update(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error {
	q := conn(r.db, tx)

	tag, err := q.Exec(ctx, `
		UPDATE invoices
		SET client_id = $3, currency_id = $4, issue_date = $5, due_date = $6, notes = $7,
		    subtotal = $8, tax_amount = $9, total = $10, amount_due = $11, updated_at = $12
		WHERE organization_id = $1 AND id = $2`,
		invoice.OrganizationID, invoice.ID, invoice.CounterpartyID, invoice.CurrencyID, dateOnly(invoice.IssueDate),
		nullableDate(invoice.DueDate), invoice.Notes, decimalToNumeric(invoice.Subtotal),
		decimalToNumeric(invoice.TaxAmount), decimalToNumeric(invoice.Total), decimalToNumeric(invoice.AmountDue),
		invoice.UpdatedAt)
	if err := affected(tag, err, domain.ErrInvoiceNotFound); err != nil {
		return err
	}

	return replaceDocumentLines(ctx, q, domain.DocumentKindInvoice, &invoice.Document)
}

// UpdateState writes status, payment totals and send/remind timestamps.
func (r *InvoiceRepository) UpdateState(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE invoices
		SET status = $3, amount_paid = $4, amount_due = $5, paid_at = $6,
		    sent_at = $7, last_reminded_at = $8, updated_at = $9
		WHERE organization_id = $1 AND id = $2`,
		invoice.OrganizationID, invoice.ID, invoice.Status, decimalToNumeric(invoice.AmountPaid),
		decimalToNumeric(invoice.AmountDue), invoice.PaidAt, invoice.SentAt, invoice.LastRemindedAt, invoice.UpdatedAt)

	return affected(tag, err, domain.ErrInvoiceNotFound)
}

// Delete removes an invoice with its line items and taxes.
func (r *InvoiceRepository) Delete(ctx context.Context, tx usecase.Transaction, orgID, id string) error {
	q := conn(r.db, tx)

	if err := deleteDocumentLines(ctx, q, domain.DocumentKindInvoice, orgID, id); err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM invoices WHERE organization_id = $1 AND id = $2`, orgID, id)

	return affected(tag, err, domain.ErrInvoiceNotFound)
}

// GetByID retrieves an invoice with its lines.
func (r *InvoiceRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Invoice, error) {
	return r.get(ctx, r.db, `WHERE organization_id = $1 AND id = $2`, orgID, id)
}

// GetByIDForUpdate retrieves an invoice and locks its row.
func (r *InvoiceRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.Invoice, error) {
	return r.get(ctx, conn(r.db, tx), `WHERE organization_id = $1 AND id = $2 FOR UPDATE`, orgID, id)
}

// List returns invoices ordered by number.
func (r *InvoiceRepository) List(ctx context.Context, filter usecase.DocumentFilter) ([]*domain.Invoice, error) {
	where, args := documentWhere(filter, "client_id")
	query, args := appendPage(`SELECT `+invoiceColumns+` FROM invoices`+where+` ORDER BY number`, args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	invoices := make([]*domain.Invoice, 0)
	docs := make([]*domain.Document, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		invoices = append(invoices, inv)
		docs = append(docs, &inv.Document)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadDocumentLines(ctx, r.db, domain.DocumentKindInvoice, filter.OrganizationID, docs); err != nil {
		return nil, err
	}

	return invoices, nil
}

func (r *InvoiceRepository) get(ctx context.Context, q DBTX, where string, args ...any) (*domain.Invoice, error) {
	invoice, err := scanInvoice(q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices `+where, args...))
	if err != nil {
		return nil, notFound(err, domain.ErrInvoiceNotFound)
	}

	if err := loadDocumentLines(ctx, q, domain.DocumentKindInvoice, invoice.OrganizationID, []*domain.Document{&invoice.Document}); err != nil {
		return nil, err
	}

	return invoice, nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	s := documentScan{doc: &inv.Document}

	if err := row.Scan(append(s.dest(), &inv.SentAt, &inv.LastRemindedAt)...); err != nil {
		return nil, err
	}
	s.finish()

	return &inv, nil
}
