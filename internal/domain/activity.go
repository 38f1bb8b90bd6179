package domain

import (
	"encoding/json"
	"time"
)

// ActivityLogEntry records a mutation of a journal or document. It is written
// in the same transaction as the change it describes.
type ActivityLogEntry struct {
	ID             string
	OrganizationID string
	EntityType     string
	EntityID       string
	Action         ActivityAction
	ActorID        string
	Details        JSON
	CreatedAt      time.Time
}

// JSON is a free-form detail map.
type JSON map[string]any

// ActivityAction names what happened to an entity.
type ActivityAction string

const (
	ActivityCreated       ActivityAction = "created"
	ActivityUpdated       ActivityAction = "updated"
	ActivityDeleted       ActivityAction = "deleted"
	ActivityStatusChanged ActivityAction = "status_changed"
	ActivityPosted        ActivityAction = "posted"
	ActivityVoided        ActivityAction = "voided"
	ActivitySent          ActivityAction = "sent"
	ActivityReminded      ActivityAction = "reminded"
	ActivityPaymentAdded  ActivityAction = "payment_recorded"
	ActivityPaymentEdited ActivityAction = "payment_updated"
	ActivityPaymentVoided ActivityAction = "payment_deleted"
)

// Entity types used in the activity log and outbox.
const (
	EntityJournal = "journal"
	EntityBill    = "bill"
	EntityInvoice = "invoice"
)

// MarshalState converts a value into a detail map.
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}
