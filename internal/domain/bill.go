package domain

import (
	"strings"
	"time"
)

// Bill is a payable owed to a vendor.
type Bill struct {
	Document

	VendorInvoiceNumber string
	ReceivedDate        *time.Time
	PurchaseOrderID     *string
	ApprovedBy          *string
	ApprovedAt          *time.Time
}

var billTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusDraft:         {DocumentStatusPending, DocumentStatusApproved, DocumentStatusCancelled},
	DocumentStatusPending:       {DocumentStatusApproved, DocumentStatusCancelled},
	DocumentStatusApproved:      {DocumentStatusCancelled},
	DocumentStatusPartiallyPaid: {DocumentStatusCancelled},
}

// CanTransition reports whether a manual status change to next is allowed.
// Partially paid and paid are reached only through payments.
func (b *Bill) CanTransition(next DocumentStatus) error {
	for _, allowed := range billTransitions[b.Status] {
		if allowed == next {
			return nil
		}
	}
	return &TransitionError{Entity: "bill", From: string(b.Status), To: string(next)}
}

// AcceptsPayments reports whether payments may be recorded.
func (b *Bill) AcceptsPayments() error {
	switch b.Status {
	case DocumentStatusApproved, DocumentStatusPartiallyPaid:
		return nil
	}
	return &TransitionError{Entity: "bill", From: string(b.Status), To: string(DocumentStatusPartiallyPaid)}
}

// IsRecognized reports whether the bill has reached the state that posts to
// the ledger.
func (b *Bill) IsRecognized() bool {
	switch b.Status {
	case DocumentStatusApproved, DocumentStatusPartiallyPaid, DocumentStatusPaid:
		return true
	}
	return false
}

// NormalizeVendorInvoiceNumber trims the vendor's reference for comparison.
func NormalizeVendorInvoiceNumber(number string) string {
	return strings.TrimSpace(number)
}
