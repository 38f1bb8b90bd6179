package domain

import "time"

// Invoice is a receivable billed to a client.
type Invoice struct {
	Document

	SentAt         *time.Time
	LastRemindedAt *time.Time
}

var invoiceTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusDraft:         {DocumentStatusSent, DocumentStatusCancelled},
	DocumentStatusSent:          {DocumentStatusCancelled},
	DocumentStatusPartiallyPaid: {DocumentStatusCancelled},
}

// CanTransition reports whether a manual status change to next is allowed.
func (i *Invoice) CanTransition(next DocumentStatus) error {
	for _, allowed := range invoiceTransitions[i.Status] {
		if allowed == next {
			return nil
		}
	}
	return &TransitionError{Entity: "invoice", From: string(i.Status), To: string(next)}
}

// AcceptsPayments reports whether payments may be recorded.
func (i *Invoice) AcceptsPayments() error {
	switch i.Status {
	case DocumentStatusSent, DocumentStatusPartiallyPaid:
		return nil
	}
	return &TransitionError{Entity: "invoice", From: string(i.Status), To: string(DocumentStatusPartiallyPaid)}
}

// IsRecognized reports whether the invoice has been sent at least once.
func (i *Invoice) IsRecognized() bool {
	switch i.Status {
	case DocumentStatusSent, DocumentStatusPartiallyPaid, DocumentStatusPaid:
		return true
	}
	return false
}

// CanRemind reports whether a reminder may be sent for the invoice.
func (i *Invoice) CanRemind() error {
	switch i.Status {
	case DocumentStatusSent, DocumentStatusPartiallyPaid:
		return nil
	}
	return &TransitionError{Entity: "invoice", From: string(i.Status), To: "reminded"}
}
