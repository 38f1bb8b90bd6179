package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Scope errors
	ErrMissingOrganization = errors.New("organization is required")

	// Account errors
	ErrAccountNotFound         = errors.New("account not found")
	ErrDuplicateAccountCode    = errors.New("account code already exists in organization")
	ErrSystemAccount           = errors.New("system accounts cannot be modified or deleted")
	ErrAccountInUse            = errors.New("account is referenced by journal lines")
	ErrInvalidAccountType      = errors.New("invalid account type")
	ErrManualJournalNotAllowed = errors.New("account does not allow manual journals")

	// Journal errors
	ErrJournalNotFound      = errors.New("journal not found")
	ErrInvalidJournalSource = errors.New("invalid journal source")
	ErrUnbalancedJournal    = errors.New("journal does not balance")
	ErrTooFewLines          = errors.New("journal requires at least two lines")
	ErrInvalidJournalLine   = errors.New("invalid journal line")
	ErrJournalNotDraft      = errors.New("journal is not in draft status")
	ErrJournalAlreadyExists = errors.New("journal already exists for source")
	ErrPeriodClosed         = errors.New("transaction date is not in an open period")

	// Period errors
	ErrPeriodNotFound     = errors.New("period not found")
	ErrInvalidPeriodRange = errors.New("period start must not be after end")
	ErrPeriodOverlap      = errors.New("period overlaps an existing period")

	// Document errors
	ErrBillNotFound        = errors.New("bill not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrDocumentNotEditable = errors.New("document is not in draft status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrOverpayment         = errors.New("payment exceeds amount due")
	ErrNoLineItems         = errors.New("document requires at least one line item")
	ErrInvalidLineItem     = errors.New("invalid line item")
	ErrInvalidTax          = errors.New("invalid tax line")
	ErrDuplicateBill       = errors.New("bill duplicates an existing vendor invoice")

	// Master data errors
	ErrVendorNotFound        = errors.New("vendor not found")
	ErrClientNotFound        = errors.New("client not found")
	ErrCurrencyNotFound      = errors.New("currency not found")
	ErrPurchaseOrderNotFound = errors.New("purchase order not found")

	// Numbering errors
	ErrUnknownSequenceKind = errors.New("unknown sequence kind")
)

// UnbalancedJournalError reports both sides of a journal that failed the
// balance check.
type UnbalancedJournalError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedJournalError) Error() string {
	return fmt.Sprintf("journal does not balance: debits %s vs credits %s",
		e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

func (e *UnbalancedJournalError) Unwrap() error {
	return ErrUnbalancedJournal
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// OverpaymentError carries the rejected amount and what was still due.
type OverpaymentError struct {
	Amount    decimal.Decimal
	AmountDue decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds amount due %s",
		e.Amount.StringFixed(2), e.AmountDue.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error {
	return ErrOverpayment
}
