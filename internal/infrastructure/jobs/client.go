package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/iho/gobooks/internal/domain"
)

// Enqueuer is the subset of *asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client submits gobooks tasks to the queue.
type Client struct {
	enqueuer Enqueuer
}

// NewClient wraps an enqueuer, usually *asynq.Client.
func NewClient(enqueuer Enqueuer) *Client {
	return &Client{enqueuer: enqueuer}
}

// Publish enqueues a notification task for an outbox event. An event
// that is already queued counts as published.
func (c *Client) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	task, err := NewEventTask(event)
	if err != nil {
		return err
	}

	_, err = c.enqueuer.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", event.EventType, err)
	}

	return nil
}

// EnqueueReconcile requests a reconciliation run; empty orgID means all.
func (c *Client) EnqueueReconcile(ctx context.Context, orgID string) (string, error) {
	task, err := NewReconcileTask(orgID)
	if err != nil {
		return "", err
	}

	info, err := c.enqueuer.EnqueueContext(ctx, task)
	if err != nil {
		return "", err
	}

	return info.ID, nil
}
