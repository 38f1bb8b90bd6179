package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/iho/gobooks/internal/domain"
)

const (
	// QueueDefault carries notifications.
	QueueDefault = "default"
	// QueueMaintenance carries reconciliation runs.
	QueueMaintenance = "maintenance"

	// TypeEventNotify delivers one outbox event to the notifier.
	TypeEventNotify = "gobooks:event:notify"
	// TypeReconcile produces the reconciliation report of one or all organizations.
	TypeReconcile = "gobooks:ledger:reconcile"
)

// EventPayload is the task form of an outbox event.
type EventPayload struct {
	EventID        string         `json:"event_id"`
	OrganizationID string         `json:"organization_id"`
	AggregateID    string         `json:"aggregate_id"`
	AggregateType  string         `json:"aggregate_type"`
	EventType      string         `json:"event_type"`
	Payload        map[string]any `json:"payload"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

// NewEventTask wraps an outbox event. The event id doubles as the task id,
// so republishing the same event is rejected by the queue.
func NewEventTask(event *domain.OutboxEvent) (*asynq.Task, error) {
	data, err := json.Marshal(EventPayload{
		EventID:        event.ID,
		OrganizationID: event.OrganizationID,
		AggregateID:    event.AggregateID,
		AggregateType:  event.AggregateType,
		EventType:      event.EventType,
		Payload:        event.Payload,
		OccurredAt:     event.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeEventNotify, data,
		asynq.TaskID(event.ID),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(10),
		asynq.Retention(24*time.Hour),
	), nil
}

// ReconcilePayload selects the organization to reconcile; empty means all
// active organizations.
type ReconcilePayload struct {
	OrganizationID string `json:"organization_id,omitempty"`
}

// NewReconcileTask constructs a reconciliation task.
func NewReconcileTask(orgID string) (*asynq.Task, error) {
	data, err := json.Marshal(ReconcilePayload{OrganizationID: orgID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeReconcile, data,
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
	), nil
}
