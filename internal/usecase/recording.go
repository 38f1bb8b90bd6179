package usecase

import (
	"context"
	"time"

	"github.com/iho/gobooks/internal/domain"
)

func recordActivity(
	ctx context.Context,
	tx Transaction,
	store Store,
	scope domain.Scope,
	entityType, entityID string,
	action domain.ActivityAction,
	details domain.JSON,
	now time.Time,
) error {
	return store.Activity.Create(ctx, tx, &domain.ActivityLogEntry{
		OrganizationID: scope.OrganizationID,
		EntityType:     entityType,
		EntityID:       entityID,
		Action:         action,
		ActorID:        scope.ActorID,
		Details:        details,
		CreatedAt:      now,
	})
}

func writeEvent(
	ctx context.Context,
	tx Transaction,
	store Store,
	scope domain.Scope,
	aggregateType, aggregateID, eventType string,
	payload any,
	now time.Time,
) error {
	return store.Outbox.Create(ctx, tx, &domain.OutboxEvent{
		ID:             store.IDGen.Generate(),
		OrganizationID: scope.OrganizationID,
		AggregateID:    aggregateID,
		AggregateType:  aggregateType,
		EventType:      eventType,
		Payload:        domain.MarshalState(payload),
		CreatedAt:      now,
	})
}

func nextNumber(
	ctx context.Context,
	tx Transaction,
	sequences SequenceRepository,
	orgID string,
	kind domain.SequenceKind,
	prefix string,
	date time.Time,
) (string, error) {
	year := date.UTC().Year()

	value, err := sequences.Next(ctx, tx, orgID, kind, year)
	if err != nil {
		return "", err
	}

	return domain.FormatNumber(kind, prefix, year, value)
}

// inTx runs fn in one transaction bounded by DefaultTransactionTimeout.
// Nothing fn wrote survives unless it returns nil and the commit succeeds.
func inTx(ctx context.Context, tm TransactionManager, fn func(ctx context.Context, tx Transaction) error) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
