package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// documentColumns lists the header columns shared by bills and invoices.
// counterparty is vendor_id or client_id.
func documentColumns(counterparty string) string {
	return `id, organization_id, number, ` + counterparty + `, currency_id, issue_date, due_date, status,
	subtotal, tax_amount, total, amount_paid, amount_due, paid_at, notes, created_by, created_at, updated_at`
}

func documentArgs(d *domain.Document) []any {
	return []any{
		d.ID, d.OrganizationID, d.Number, d.CounterpartyID, d.CurrencyID, dateOnly(d.IssueDate), nullableDate(d.DueDate),
		d.Status, decimalToNumeric(d.Subtotal), decimalToNumeric(d.TaxAmount), decimalToNumeric(d.Total),
		decimalToNumeric(d.AmountPaid), decimalToNumeric(d.AmountDue), d.PaidAt, d.Notes, d.CreatedBy,
		d.CreatedAt, d.UpdatedAt,
	}
}

// placeholders returns "$from, ..., $to".
func placeholders(from, to int) string {
	p := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		p = append(p, fmt.Sprintf("$%d", i))
	}
	return strings.Join(p, ", ")
}

// documentScan collects the shared header columns of one row.
type documentScan struct {
	doc                              *domain.Document
	subtotal, tax, total, paid, owed pgtype.Numeric
}

func (s *documentScan) dest() []any {
	d := s.doc
	return []any{
		&d.ID, &d.OrganizationID, &d.Number, &d.CounterpartyID, &d.CurrencyID, &d.IssueDate, &d.DueDate,
		&d.Status, &s.subtotal, &s.tax, &s.total, &s.paid, &s.owed, &d.PaidAt, &d.Notes, &d.CreatedBy,
		&d.CreatedAt, &d.UpdatedAt,
	}
}

func (s *documentScan) finish() {
	s.doc.Subtotal = numericToDecimal(s.subtotal)
	s.doc.TaxAmount = numericToDecimal(s.tax)
	s.doc.Total = numericToDecimal(s.total)
	s.doc.AmountPaid = numericToDecimal(s.paid)
	s.doc.AmountDue = numericToDecimal(s.owed)
}

// documentWhere builds the filter clause shared by bill and invoice listings.
func documentWhere(filter usecase.DocumentFilter, counterparty string) (string, []any) {
	var (
		where = []string{"organization_id = $1"}
		args  = []any{filter.OrganizationID}
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.CounterpartyID != "" {
		args = append(args, filter.CounterpartyID)
		where = append(where, fmt.Sprintf("%s = $%d", counterparty, len(args)))
	}

	return " WHERE " + strings.Join(where, " AND "), args
}

// replaceDocumentLines rewrites the line items and taxes of one document.
func replaceDocumentLines(ctx context.Context, q DBTX, kind domain.DocumentKind, d *domain.Document) error {
	if err := deleteDocumentLines(ctx, q, kind, d.OrganizationID, d.ID); err != nil {
		return err
	}

	for _, item := range d.LineItems {
		_, err := q.Exec(ctx, `
			INSERT INTO document_line_items
				(id, organization_id, document_kind, document_id, description, quantity, unit_price, amount, account_id, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			item.ID, d.OrganizationID, kind, d.ID, item.Description, decimalToNumeric(item.Quantity),
			decimalToNumeric(item.UnitPrice), decimalToNumeric(item.Amount), item.AccountID, item.Position)
		if err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}

	for i, tax := range d.Taxes {
		_, err := q.Exec(ctx, `
			INSERT INTO document_taxes
				(id, organization_id, document_kind, document_id, name, percentage, amount, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			tax.ID, d.OrganizationID, kind, d.ID, tax.Name, decimalToNumeric(tax.Percentage),
			decimalToNumeric(tax.Amount), i+1)
		if err != nil {
			return fmt.Errorf("insert tax line: %w", err)
		}
	}

	return nil
}

func deleteDocumentLines(ctx context.Context, q DBTX, kind domain.DocumentKind, orgID, id string) error {
	if _, err := q.Exec(ctx, `DELETE FROM document_line_items WHERE organization_id = $1 AND document_kind = $2 AND document_id = $3`, orgID, kind, id); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `DELETE FROM document_taxes WHERE organization_id = $1 AND document_kind = $2 AND document_id = $3`, orgID, kind, id)
	return err
}

// loadDocumentLines fills LineItems and Taxes of every document in one pass.
func loadDocumentLines(ctx context.Context, q DBTX, kind domain.DocumentKind, orgID string, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Document, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		byID[d.ID] = d
		ids[i] = d.ID
		d.LineItems = []domain.LineItem{}
		d.Taxes = []domain.TaxLine{}
	}

	rows, err := q.Query(ctx, `
		SELECT id, document_id, description, quantity, unit_price, amount, account_id, position
		FROM document_line_items
		WHERE organization_id = $1 AND document_kind = $2 AND document_id = ANY($3)
		ORDER BY document_id, position`, orgID, kind, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			item               domain.LineItem
			qty, price, amount pgtype.Numeric
		)
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.Description, &qty, &price, &amount, &item.AccountID, &item.Position); err != nil {
			rows.Close()
			return err
		}
		item.Quantity = numericToDecimal(qty)
		item.UnitPrice = numericToDecimal(price)
		item.Amount = numericToDecimal(amount)
		if d, ok := byID[item.DocumentID]; ok {
			d.LineItems = append(d.LineItems, item)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx, `
		SELECT id, document_id, name, percentage, amount
		FROM document_taxes
		WHERE organization_id = $1 AND document_kind = $2 AND document_id = ANY($3)
		ORDER BY document_id, position`, orgID, kind, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			tax         domain.TaxLine
			pct, amount pgtype.Numeric
		)
		if err := rows.Scan(&tax.ID, &tax.DocumentID, &tax.Name, &pct, &amount); err != nil {
			return err
		}
		tax.Percentage = numericToDecimal(pct)
		tax.Amount = numericToDecimal(amount)
		if d, ok := byID[tax.DocumentID]; ok {
			d.Taxes = append(d.Taxes, tax)
		}
	}

	return rows.Err()
}
