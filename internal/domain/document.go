package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DocumentKind distinguishes the two subledger document types.
type DocumentKind string

const (
	DocumentKindBill    DocumentKind = "bill"
	DocumentKindInvoice DocumentKind = "invoice"
)

// DocumentStatus is shared by bills and invoices; each kind uses a subset.
type DocumentStatus string

const (
	DocumentStatusDraft         DocumentStatus = "draft"
	DocumentStatusPending       DocumentStatus = "pending"
	DocumentStatusApproved      DocumentStatus = "approved"
	DocumentStatusSent          DocumentStatus = "sent"
	DocumentStatusPartiallyPaid DocumentStatus = "partially_paid"
	DocumentStatusPaid          DocumentStatus = "paid"
	DocumentStatusCancelled     DocumentStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusPaid || s == DocumentStatusCancelled
}

// LineItem is one priced row of a document.
type LineItem struct {
	ID          string
	DocumentID  string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	AccountID   *string
	Position    int
}

// TaxLine is a percentage tax applied to the document subtotal.
type TaxLine struct {
	ID         string
	DocumentID string
	Name       string
	Percentage decimal.Decimal
	Amount     decimal.Decimal
}

// Document holds the fields bills and invoices have in common.
type Document struct {
	ID             string
	OrganizationID string
	Number         string
	CounterpartyID string
	CurrencyID     string
	IssueDate      time.Time
	DueDate        *time.Time
	Status         DocumentStatus
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	AmountPaid     decimal.Decimal
	AmountDue      decimal.Decimal
	PaidAt         *time.Time
	Notes          string
	LineItems      []LineItem
	Taxes          []TaxLine
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidateLines checks line items and taxes before totals are computed.
func ValidateLines(items []LineItem, taxes []TaxLine) error {
	if len(items) == 0 {
		return ErrNoLineItems
	}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: line %d has no description", ErrInvalidLineItem, i+1)
		}
		if !item.Quantity.IsPositive() {
			return fmt.Errorf("%w: line %d quantity %s must be positive", ErrInvalidLineItem, i+1, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %d unit price %s is negative", ErrInvalidLineItem, i+1, item.UnitPrice)
		}
	}
	for i, tax := range taxes {
		if tax.Percentage.IsNegative() {
			return fmt.Errorf("%w: tax %d percentage %s is negative", ErrInvalidTax, i+1, tax.Percentage)
		}
	}
	return nil
}

// SetLines replaces the line items and taxes wholesale and recomputes
// subtotal, tax, total and amount due. Taxes apply to the pre-tax subtotal.
func (d *Document) SetLines(items []LineItem, taxes []TaxLine) {
	subtotal := decimal.Zero
	for i := range items {
		items[i].Amount = items[i].Quantity.Mul(items[i].UnitPrice).Round(2)
		items[i].Position = i + 1
		subtotal = subtotal.Add(items[i].Amount)
	}

	taxAmount := decimal.Zero
	for i := range taxes {
		taxes[i].Amount = subtotal.Mul(taxes[i].Percentage).Div(hundred).Round(2)
		taxAmount = taxAmount.Add(taxes[i].Amount)
	}

	d.LineItems = items
	d.Taxes = taxes
	d.Subtotal = subtotal
	d.TaxAmount = taxAmount
	d.Total = subtotal.Add(taxAmount)
	d.AmountDue = d.Total.Sub(d.AmountPaid)
}

// IsEditable reports whether the document may be changed or deleted.
func (d *Document) IsEditable() bool {
	return d.Status == DocumentStatusDraft
}

// ApplyPayment adds amount to the paid total and settles the status.
// openStatus is the status the document falls back to once nothing is paid.
func (d *Document) ApplyPayment(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(d.AmountDue) {
		return &OverpaymentError{Amount: amount, AmountDue: d.AmountDue}
	}

	d.AmountPaid = d.AmountPaid.Add(amount)
	d.AmountDue = d.Total.Sub(d.AmountPaid)
	d.settle(now, "")

	return nil
}

// RemovePayment subtracts a previously applied amount. When nothing remains
// paid the document returns to openStatus.
func (d *Document) RemovePayment(amount decimal.Decimal, openStatus DocumentStatus, now time.Time) {
	d.AmountPaid = d.AmountPaid.Sub(amount)
	if d.AmountPaid.IsNegative() {
		d.AmountPaid = decimal.Zero
	}
	d.AmountDue = d.Total.Sub(d.AmountPaid)
	d.settle(now, openStatus)
}

func (d *Document) settle(now time.Time, openStatus DocumentStatus) {
	switch {
	case d.AmountDue.LessThanOrEqual(BalanceTolerance):
		d.Status = DocumentStatusPaid
		if d.PaidAt == nil {
			paidAt := now
			d.PaidAt = &paidAt
		}
	case d.AmountPaid.IsPositive():
		d.Status = DocumentStatusPartiallyPaid
		d.PaidAt = nil
	default:
		if openStatus != "" {
			d.Status = openStatus
		}
		d.PaidAt = nil
	}
}

// DaysPastDue returns how many whole days the document is overdue at asOf.
// Documents without a due date are measured from the issue date.
func (d *Document) DaysPastDue(asOf time.Time) int {
	due := d.IssueDate
	if d.DueDate != nil {
		due = *d.DueDate
	}
	days := int(truncateDay(asOf).Sub(truncateDay(due)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
