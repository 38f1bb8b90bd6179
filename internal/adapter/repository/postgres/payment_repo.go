package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

const paymentColumns = `id, organization_id, document_id, document_kind, amount, payment_date, method,
	reference_number, created_by, created_at, updated_at`

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	db DBTX
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	_, err := conn(r.db, tx).Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.OrganizationID, p.DocumentID, p.DocumentKind, decimalToNumeric(p.Amount), dateOnly(p.PaymentDate),
		p.Method, p.ReferenceNumber, p.CreatedBy, p.CreatedAt, p.UpdatedAt)

	return err
}

// Update writes amount, date, method and reference.
func (r *PaymentRepository) Update(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE payments
		SET amount = $3, payment_date = $4, method = $5, reference_number = $6, updated_at = $7
		WHERE organization_id = $1 AND id = $2`,
		p.OrganizationID, p.ID, decimalToNumeric(p.Amount), dateOnly(p.PaymentDate), p.Method, p.ReferenceNumber, p.UpdatedAt)

	return affected(tag, err, domain.ErrPaymentNotFound)
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, tx usecase.Transaction, orgID, id string) error {
	tag, err := conn(r.db, tx).Exec(ctx, `DELETE FROM payments WHERE organization_id = $1 AND id = $2`, orgID, id)

	return affected(tag, err, domain.ErrPaymentNotFound)
}

// GetByID retrieves a payment, locking it when tx is set.
func (r *PaymentRepository) GetByID(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE organization_id = $1 AND id = $2`
	if tx != nil {
		query += ` FOR UPDATE`
	}

	p, err := scanPayment(conn(r.db, tx).QueryRow(ctx, query, orgID, id))
	if err != nil {
		return nil, notFound(err, domain.ErrPaymentNotFound)
	}

	return p, nil
}

// ListByDocument returns the payments of one document by payment date.
func (r *PaymentRepository) ListByDocument(ctx context.Context, orgID string, kind domain.DocumentKind, documentID string) ([]*domain.Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE organization_id = $1 AND document_kind = $2 AND document_id = $3
		ORDER BY payment_date, created_at`, orgID, kind, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p      domain.Payment
		amount pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.OrganizationID, &p.DocumentID, &p.DocumentKind, &amount, &p.PaymentDate, &p.Method,
		&p.ReferenceNumber, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Amount = numericToDecimal(amount)

	return &p, nil
}
