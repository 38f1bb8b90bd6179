package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a cash movement applied against a bill or invoice.
type Payment struct {
	ID              string
	OrganizationID  string
	DocumentID      string
	DocumentKind    DocumentKind
	Amount          decimal.Decimal
	PaymentDate     time.Time
	Method          string
	ReferenceNumber *string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
