package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// PaymentUseCase applies cash movements to bills and invoices. It changes
// document state only and never posts to the ledger.
type PaymentUseCase struct {
	store Store
	rt    Runtime
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(store Store, rt Runtime) *PaymentUseCase {
	return &PaymentUseCase{store: store, rt: rt.withDefaults()}
}

// RecordPaymentInput represents input for recording a payment.
type RecordPaymentInput struct {
	Amount          decimal.Decimal
	PaymentDate     time.Time
	Method          string
	ReferenceNumber *string
}

// UpdatePaymentInput carries changes to a recorded payment.
type UpdatePaymentInput struct {
	Amount          *decimal.Decimal
	PaymentDate     *time.Time
	Method          *string
	ReferenceNumber *string
}

// PaymentResult is a payment with the document state it produced.
type PaymentResult struct {
	Payment  *domain.Payment
	Document *domain.Document
}

// settlement is a locked document together with the rules of its kind.
type settlement struct {
	entity     string
	doc        *domain.Document
	accepts    func() error
	openStatus domain.DocumentStatus
	save       func(ctx context.Context, tx Transaction) error
}

// RecordPayment applies a payment to a document. Amounts above the amount
// due are rejected.
func (uc *PaymentUseCase) RecordPayment(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, documentID string, input RecordPaymentInput) (*PaymentResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", domain.ErrInvalidAmount, input.Amount)
	}
	if err := domain.ValidateDocumentAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.RequireField("method", input.Method); err != nil {
		return nil, err
	}

	var result *PaymentResult

	err := uc.rt.Retrier.Retry(ctx, func() error {
		return inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
			s, err := uc.lock(ctx, tx, scope, kind, documentID)
			if err != nil {
				return err
			}
			if err := s.accepts(); err != nil {
				return err
			}

			now := uc.rt.Now()
			if err := s.doc.ApplyPayment(input.Amount, now); err != nil {
				return err
			}
			s.doc.UpdatedAt = now

			paymentDate := input.PaymentDate
			if paymentDate.IsZero() {
				paymentDate = now
			}

			payment := &domain.Payment{
				ID:              uc.store.IDGen.Generate(),
				OrganizationID:  scope.OrganizationID,
				DocumentID:      s.doc.ID,
				DocumentKind:    kind,
				Amount:          input.Amount,
				PaymentDate:     paymentDate,
				Method:          strings.TrimSpace(input.Method),
				ReferenceNumber: input.ReferenceNumber,
				CreatedBy:       scope.ActorID,
				CreatedAt:       now,
				UpdatedAt:       now,
			}

			if err := uc.store.Payments.Create(ctx, tx, payment); err != nil {
				return err
			}
			if err := s.save(ctx, tx); err != nil {
				return err
			}
			if err := recordActivity(ctx, tx, uc.store, scope, s.entity, s.doc.ID,
				domain.ActivityPaymentAdded, paymentDetails(payment, s.doc), now); err != nil {
				return err
			}
			if err := writeEvent(ctx, tx, uc.store, scope, s.entity, s.doc.ID,
				domain.EventTypePaymentRecorded, paymentEvent(payment, s.doc), now); err != nil {
				return err
			}

			result = &PaymentResult{Payment: payment, Document: s.doc}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.rt.Metrics.PaymentRecorded(kind)
	uc.rt.Metrics.DocumentTransitioned(kind, result.Document.Status)
	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	return result, nil
}

// UpdatePayment changes a payment, backing out the old amount before the new
// one is applied.
func (uc *PaymentUseCase) UpdatePayment(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, documentID, paymentID string, input UpdatePaymentInput) (*PaymentResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if input.Amount != nil {
		if !input.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: got %s", domain.ErrInvalidAmount, *input.Amount)
		}
		if err := domain.ValidateDocumentAmount(*input.Amount); err != nil {
			return nil, err
		}
	}
	if input.Method != nil {
		if err := domain.RequireField("method", *input.Method); err != nil {
			return nil, err
		}
	}

	var result *PaymentResult

	err := uc.rt.Retrier.Retry(ctx, func() error {
		return inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
			s, payment, err := uc.lockPayment(ctx, tx, scope, kind, documentID, paymentID)
			if err != nil {
				return err
			}

			now := uc.rt.Now()
			if input.Amount != nil && !input.Amount.Equal(payment.Amount) {
				s.doc.RemovePayment(payment.Amount, s.openStatus, now)
				if err := s.doc.ApplyPayment(*input.Amount, now); err != nil {
					return err
				}
				payment.Amount = *input.Amount
			}
			if input.PaymentDate != nil {
				payment.PaymentDate = *input.PaymentDate
			}
			if input.Method != nil {
				payment.Method = strings.TrimSpace(*input.Method)
			}
			if input.ReferenceNumber != nil {
				payment.ReferenceNumber = input.ReferenceNumber
			}
			payment.UpdatedAt = now
			s.doc.UpdatedAt = now

			if err := uc.store.Payments.Update(ctx, tx, payment); err != nil {
				return err
			}
			if err := s.save(ctx, tx); err != nil {
				return err
			}
			if err := recordActivity(ctx, tx, uc.store, scope, s.entity, s.doc.ID,
				domain.ActivityPaymentEdited, paymentDetails(payment, s.doc), now); err != nil {
				return err
			}

			result = &PaymentResult{Payment: payment, Document: s.doc}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.rt.Metrics.DocumentTransitioned(kind, result.Document.Status)
	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	return result, nil
}

// DeletePayment removes a payment and recomputes the document backwards.
func (uc *PaymentUseCase) DeletePayment(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, documentID, paymentID string) (*domain.Document, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var doc *domain.Document

	err := uc.rt.Retrier.Retry(ctx, func() error {
		return inTx(ctx, uc.store.TxManager, func(ctx context.Context, tx Transaction) error {
			s, payment, err := uc.lockPayment(ctx, tx, scope, kind, documentID, paymentID)
			if err != nil {
				return err
			}

			now := uc.rt.Now()
			s.doc.RemovePayment(payment.Amount, s.openStatus, now)
			s.doc.UpdatedAt = now

			if err := uc.store.Payments.Delete(ctx, tx, scope.OrganizationID, payment.ID); err != nil {
				return err
			}
			if err := s.save(ctx, tx); err != nil {
				return err
			}
			if err := recordActivity(ctx, tx, uc.store, scope, s.entity, s.doc.ID,
				domain.ActivityPaymentVoided, paymentDetails(payment, s.doc), now); err != nil {
				return err
			}

			doc = s.doc
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.rt.Metrics.DocumentTransitioned(kind, doc.Status)
	logInvalidation(ctx, uc.rt, scope.OrganizationID)

	return doc, nil
}

// ListPayments lists the payments of a document.
func (uc *PaymentUseCase) ListPayments(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, documentID string) ([]*domain.Payment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var err error
	switch kind {
	case domain.DocumentKindBill:
		_, err = uc.store.Bills.GetByID(ctx, scope.OrganizationID, documentID)
	case domain.DocumentKindInvoice:
		_, err = uc.store.Invoices.GetByID(ctx, scope.OrganizationID, documentID)
	default:
		err = fmt.Errorf("%w: document kind %q", domain.ErrMissingField, kind)
	}
	if err != nil {
		return nil, err
	}

	return uc.store.Payments.ListByDocument(ctx, scope.OrganizationID, kind, documentID)
}

func (uc *PaymentUseCase) lock(ctx context.Context, tx Transaction, scope domain.Scope, kind domain.DocumentKind, documentID string) (*settlement, error) {
	switch kind {
	case domain.DocumentKindBill:
		bill, err := uc.store.Bills.GetByIDForUpdate(ctx, tx, scope.OrganizationID, documentID)
		if err != nil {
			return nil, err
		}
		return &settlement{
			entity:     domain.EntityBill,
			doc:        &bill.Document,
			accepts:    bill.AcceptsPayments,
			openStatus: domain.DocumentStatusApproved,
			save: func(ctx context.Context, tx Transaction) error {
				return uc.store.Bills.UpdateState(ctx, tx, bill)
			},
		}, nil

	case domain.DocumentKindInvoice:
		invoice, err := uc.store.Invoices.GetByIDForUpdate(ctx, tx, scope.OrganizationID, documentID)
		if err != nil {
			return nil, err
		}
		return &settlement{
			entity:     domain.EntityInvoice,
			doc:        &invoice.Document,
			accepts:    invoice.AcceptsPayments,
			openStatus: domain.DocumentStatusSent,
			save: func(ctx context.Context, tx Transaction) error {
				return uc.store.Invoices.UpdateState(ctx, tx, invoice)
			},
		}, nil
	}

	return nil, fmt.Errorf("%w: document kind %q", domain.ErrMissingField, kind)
}

func (uc *PaymentUseCase) lockPayment(ctx context.Context, tx Transaction, scope domain.Scope, kind domain.DocumentKind, documentID, paymentID string) (*settlement, *domain.Payment, error) {
	s, err := uc.lock(ctx, tx, scope, kind, documentID)
	if err != nil {
		return nil, nil, err
	}
	if s.doc.Status == domain.DocumentStatusCancelled {
		return nil, nil, &domain.TransitionError{Entity: string(kind), From: string(s.doc.Status), To: "payment change"}
	}

	payment, err := uc.store.Payments.GetByID(ctx, tx, scope.OrganizationID, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if payment.DocumentID != s.doc.ID || payment.DocumentKind != kind {
		return nil, nil, domain.ErrPaymentNotFound
	}

	return s, payment, nil
}

func paymentDetails(p *domain.Payment, d *domain.Document) domain.JSON {
	return domain.JSON{
		"payment_id":  p.ID,
		"amount":      p.Amount.StringFixed(2),
		"method":      p.Method,
		"status":      string(d.Status),
		"amount_paid": d.AmountPaid.StringFixed(2),
		"amount_due":  d.AmountDue.StringFixed(2),
	}
}

func paymentEvent(p *domain.Payment, d *domain.Document) domain.PaymentEvent {
	return domain.PaymentEvent{
		OrganizationID: p.OrganizationID,
		PaymentID:      p.ID,
		DocumentID:     d.ID,
		DocumentKind:   string(p.DocumentKind),
		Amount:         p.Amount.StringFixed(2),
		Status:         string(d.Status),
	}
}
