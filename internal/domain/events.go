package domain

import "time"

// Event types
const (
	EventTypeJournalPosted    = "journal.posted"
	EventTypeJournalVoided    = "journal.voided"
	EventTypeBillApproved     = "bill.approved"
	EventTypeBillCancelled    = "bill.cancelled"
	EventTypeInvoiceSent      = "invoice.sent"
	EventTypeInvoiceReminder  = "invoice.reminder_requested"
	EventTypeInvoiceCancelled = "invoice.cancelled"
	EventTypePaymentRecorded  = "payment.recorded"
)

// OutboxEvent represents an event to be published after commit.
type OutboxEvent struct {
	ID             string
	OrganizationID string
	AggregateID    string
	AggregateType  string
	EventType      string
	Payload        map[string]any
	CreatedAt      time.Time
	PublishedAt    *time.Time
	Published      bool
}

// DocumentEvent is the payload of bill and invoice events.
type DocumentEvent struct {
	OrganizationID string `json:"organization_id"`
	DocumentID     string `json:"document_id"`
	DocumentKind   string `json:"document_kind"`
	Number         string `json:"number"`
	CounterpartyID string `json:"counterparty_id"`
	Total          string `json:"total"`
	AmountDue      string `json:"amount_due"`
	ActorID        string `json:"actor_id"`
}

// JournalEvent is the payload of journal events.
type JournalEvent struct {
	OrganizationID string `json:"organization_id"`
	JournalID      string `json:"journal_id"`
	Number         string `json:"number"`
	Source         string `json:"source"`
	SourceID       string `json:"source_id,omitempty"`
	Total          string `json:"total"`
}

// PaymentEvent is the payload of payment events.
type PaymentEvent struct {
	OrganizationID string `json:"organization_id"`
	PaymentID      string `json:"payment_id"`
	DocumentID     string `json:"document_id"`
	DocumentKind   string `json:"document_kind"`
	Amount         string `json:"amount"`
	Status         string `json:"status"`
}

// NewDocumentEvent builds the payload for a document event.
func NewDocumentEvent(kind DocumentKind, d *Document, actorID string) DocumentEvent {
	return DocumentEvent{
		OrganizationID: d.OrganizationID,
		DocumentID:     d.ID,
		DocumentKind:   string(kind),
		Number:         d.Number,
		CounterpartyID: d.CounterpartyID,
		Total:          d.Total.StringFixed(2),
		AmountDue:      d.AmountDue.StringFixed(2),
		ActorID:        actorID,
	}
}
