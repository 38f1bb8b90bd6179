package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

var billColumns = documentColumns("vendor_id") +
	`, vendor_invoice_number, received_date, purchase_order_id, approved_by, approved_at`

// BillRepository implements usecase.BillRepository.
type BillRepository struct {
	db DBTX
}

// NewBillRepository creates a new BillRepository.
func NewBillRepository(db DBTX) *BillRepository {
	return &BillRepository{db: db}
}

// Create inserts a bill with its line items and taxes.
func (r *BillRepository) Create(ctx context.Context, tx usecase.Transaction, bill *domain.Bill) error {
	q := conn(r.db, tx)

	args := append(documentArgs(&bill.Document),
		bill.VendorInvoiceNumber, nullableDate(bill.ReceivedDate), bill.PurchaseOrderID, bill.ApprovedBy, bill.ApprovedAt)
	if _, err := q.Exec(ctx, `INSERT INTO bills (`+billColumns+`) VALUES (`+placeholders(1, len(args))+`)`, args...); err != nil {
		return err
	}

	return replaceDocumentLines(ctx, q, domain.DocumentKindBill, &bill.Document)
}

// Update rewrites the header and replaces line items and taxes.
func (r *BillRepository) Update(ctx context.Context, tx usecase.Transaction, bill *domain.Bill) error {
	q := conn(r.db, tx)

	tag, err := q.Exec(ctx, `
		UPDATE bills
		SET vendor_id = $3, currency_id = $4, issue_date = $5, due_date = $6, notes = $7,
		    subtotal = $8, tax_amount = $9, total = $10, amount_due = $11,
		    vendor_invoice_number = $12, received_date = $13, purchase_order_id = $14, updated_at = $15
		WHERE organization_id = $1 AND id = $2`,
		bill.OrganizationID, bill.ID, bill.CounterpartyID, bill.CurrencyID, dateOnly(bill.IssueDate),
		nullableDate(bill.DueDate), bill.Notes, decimalToNumeric(bill.Subtotal), decimalToNumeric(bill.TaxAmount),
		decimalToNumeric(bill.Total), decimalToNumeric(bill.AmountDue), bill.VendorInvoiceNumber,
		nullableDate(bill.ReceivedDate), bill.PurchaseOrderID, bill.UpdatedAt)
	if err := affected(tag, err, domain.ErrBillNotFound); err != nil {
		return err
	}

	return replaceDocumentLines(ctx, q, domain.DocumentKindBill, &bill.Document)
}

// UpdateState writes status, payment totals and approval fields.
func (r *BillRepository) UpdateState(ctx context.Context, tx usecase.Transaction, bill *domain.Bill) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE bills
		SET status = $3, amount_paid = $4, amount_due = $5, paid_at = $6,
		    approved_by = $7, approved_at = $8, updated_at = $9
		WHERE organization_id = $1 AND id = $2`,
		bill.OrganizationID, bill.ID, bill.Status, decimalToNumeric(bill.AmountPaid), decimalToNumeric(bill.AmountDue),
		bill.PaidAt, bill.ApprovedBy, bill.ApprovedAt, bill.UpdatedAt)

	return affected(tag, err, domain.ErrBillNotFound)
}

// Delete removes a bill with its line items and taxes.
func (r *BillRepository) Delete(ctx context.Context, tx usecase.Transaction, orgID, id string) error {
	q := conn(r.db, tx)

	if err := deleteDocumentLines(ctx, q, domain.DocumentKindBill, orgID, id); err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM bills WHERE organization_id = $1 AND id = $2`, orgID, id)

	return affected(tag, err, domain.ErrBillNotFound)
}

// GetByID retrieves a bill with its lines.
func (r *BillRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Bill, error) {
	return r.get(ctx, r.db, `WHERE organization_id = $1 AND id = $2`, orgID, id)
}

// GetByIDForUpdate retrieves a bill and locks its row.
func (r *BillRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.Bill, error) {
	return r.get(ctx, conn(r.db, tx), `WHERE organization_id = $1 AND id = $2 FOR UPDATE`, orgID, id)
}

// List returns bills ordered by number.
func (r *BillRepository) List(ctx context.Context, filter usecase.DocumentFilter) ([]*domain.Bill, error) {
	where, args := documentWhere(filter, "vendor_id")
	query, args := appendPage(`SELECT `+billColumns+` FROM bills`+where+` ORDER BY number`, args, filter.Limit, filter.Offset)

	return r.query(ctx, filter.OrganizationID, query, args...)
}

// FindByVendorInvoiceNumber returns non-cancelled bills of the vendor with
// the same trimmed vendor invoice number.
func (r *BillRepository) FindByVendorInvoiceNumber(ctx context.Context, orgID, vendorID, number, excludeID string) ([]*domain.Bill, error) {
	return r.query(ctx, orgID, `
		SELECT `+billColumns+` FROM bills
		WHERE organization_id = $1 AND vendor_id = $2 AND btrim(vendor_invoice_number) = btrim($3)
		  AND id <> $4 AND status <> 'cancelled'
		ORDER BY number`, orgID, vendorID, number, excludeID)
}

// FindSimilar returns non-cancelled bills of the vendor inside the amount
// and date ranges.
func (r *BillRepository) FindSimilar(ctx context.Context, orgID, vendorID string, minTotal, maxTotal decimal.Decimal, from, to time.Time, excludeID string) ([]*domain.Bill, error) {
	return r.query(ctx, orgID, `
		SELECT `+billColumns+` FROM bills
		WHERE organization_id = $1 AND vendor_id = $2 AND total BETWEEN $3 AND $4
		  AND issue_date BETWEEN $5 AND $6 AND id <> $7 AND status <> 'cancelled'
		ORDER BY number`,
		orgID, vendorID, decimalToNumeric(minTotal), decimalToNumeric(maxTotal), dateOnly(from), dateOnly(to), excludeID)
}

// RefreshPurchaseOrderBilled recomputes the billed amount of a purchase order.
func (r *BillRepository) RefreshPurchaseOrderBilled(ctx context.Context, tx usecase.Transaction, orgID, purchaseOrderID string) error {
	_, err := conn(r.db, tx).Exec(ctx, `
		UPDATE purchase_orders
		SET billed_amount = (
			SELECT COALESCE(SUM(total), 0) FROM bills
			WHERE organization_id = $1 AND purchase_order_id = $2 AND status <> 'cancelled'
		)
		WHERE organization_id = $1 AND id = $2`, orgID, purchaseOrderID)

	return err
}

func (r *BillRepository) get(ctx context.Context, q DBTX, where string, args ...any) (*domain.Bill, error) {
	bill, err := scanBill(q.QueryRow(ctx, `SELECT `+billColumns+` FROM bills `+where, args...))
	if err != nil {
		return nil, notFound(err, domain.ErrBillNotFound)
	}

	if err := loadDocumentLines(ctx, q, domain.DocumentKindBill, bill.OrganizationID, []*domain.Document{&bill.Document}); err != nil {
		return nil, err
	}

	return bill, nil
}

func (r *BillRepository) query(ctx context.Context, orgID, query string, args ...any) ([]*domain.Bill, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	bills := make([]*domain.Bill, 0)
	docs := make([]*domain.Document, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		bills = append(bills, b)
		docs = append(docs, &b.Document)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadDocumentLines(ctx, r.db, domain.DocumentKindBill, orgID, docs); err != nil {
		return nil, err
	}

	return bills, nil
}

func scanBill(row pgx.Row) (*domain.Bill, error) {
	var b domain.Bill
	s := documentScan{doc: &b.Document}

	dest := append(s.dest(), &b.VendorInvoiceNumber, &b.ReceivedDate, &b.PurchaseOrderID, &b.ApprovedBy, &b.ApprovedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.finish()

	return &b, nil
}
