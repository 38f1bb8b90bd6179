package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// TaskMetrics counts handled tasks.
type TaskMetrics interface {
	TaskProcessed(taskType string, err error)
}

// EventHandler forwards outbox events to the notifier.
type EventHandler struct {
	Notifier usecase.Notifier
	Logger   zerolog.Logger
	Metrics  TaskMetrics
}

// Handle processes TypeEventNotify tasks.
func (h *EventHandler) Handle(ctx context.Context, t *asynq.Task) (err error) {
	defer func() {
		if h.Metrics != nil {
			h.Metrics.TaskProcessed(t.Type(), err)
		}
	}()

	var payload EventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode event payload: %v: %w", err, asynq.SkipRetry)
	}

	data := make(map[string]any, len(payload.Payload)+3)
	for k, v := range payload.Payload {
		data[k] = v
	}
	data["event_id"] = payload.EventID
	data["organization_id"] = payload.OrganizationID
	data["aggregate_id"] = payload.AggregateID

	if err := h.Notifier.Notify(ctx, payload.EventType, data); err != nil {
		h.Logger.Warn().Err(err).
			Str("event_id", payload.EventID).
			Str("event_type", payload.EventType).
			Msg("notification failed")
		return err
	}

	return nil
}

// Reconciler produces one organization's reconciliation report.
type Reconciler interface {
	GenerateReconciliationReport(ctx context.Context, scope domain.Scope) (*usecase.ReconciliationReport, error)
}

// OrganizationLister enumerates active organizations.
type OrganizationLister interface {
	OrganizationIDs(ctx context.Context) ([]string, error)
}

// ReconcileHandler runs the report-only reconciliation and logs drift and
// unposted documents. It never repairs anything.
type ReconcileHandler struct {
	Reconciler    Reconciler
	Organizations OrganizationLister
	Logger        zerolog.Logger
	Metrics       TaskMetrics
}

// Handle processes TypeReconcile tasks.
func (h *ReconcileHandler) Handle(ctx context.Context, t *asynq.Task) (err error) {
	defer func() {
		if h.Metrics != nil {
			h.Metrics.TaskProcessed(t.Type(), err)
		}
	}()

	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode reconcile payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	orgIDs := []string{payload.OrganizationID}
	if payload.OrganizationID == "" {
		if orgIDs, err = h.Organizations.OrganizationIDs(ctx); err != nil {
			return fmt.Errorf("list organizations: %w", err)
		}
	}

	_, err = h.Run(ctx, orgIDs)
	return err
}

// Run reconciles each organization and returns the reports. It keeps going
// past failing organizations and returns the first error.
func (h *ReconcileHandler) Run(ctx context.Context, orgIDs []string) ([]*usecase.ReconciliationReport, error) {
	var (
		reports  = make([]*usecase.ReconciliationReport, 0, len(orgIDs))
		firstErr error
	)
	for _, orgID := range orgIDs {
		report, err := h.Reconciler.GenerateReconciliationReport(ctx, domain.Scope{OrganizationID: orgID, ActorID: "system"})
		if err != nil {
			h.Logger.Error().Err(err).Str("org_id", orgID).Msg("reconciliation failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("reconcile %s: %w", orgID, err)
			}
			continue
		}
		reports = append(reports, report)

		event := h.Logger.Info()
		if len(report.Discrepancies) > 0 || len(report.UnpostedDocuments) > 0 || !report.LedgerConsistent {
			event = h.Logger.Warn()
		}
		event.Str("org_id", orgID).
			Int("accounts", report.TotalAccounts).
			Int("reconciled", report.ReconciledAccounts).
			Int("discrepancies", len(report.Discrepancies)).
			Int("unposted_documents", len(report.UnpostedDocuments)).
			Bool("ledger_consistent", report.LedgerConsistent).
			Msg("reconciliation report")

		for _, d := range report.Discrepancies {
			h.Logger.Warn().
				Str("org_id", orgID).
				Str("account_id", d.AccountID).
				Str("code", d.Code).
				Str("recorded", d.RecordedBalance.StringFixed(2)).
				Str("calculated", d.CalculatedBalance.StringFixed(2)).
				Msg("account balance drift")
		}
		for _, doc := range report.UnpostedDocuments {
			h.Logger.Warn().
				Str("org_id", orgID).
				Str("document_kind", string(doc.Kind)).
				Str("document_id", doc.ID).
				Str("number", doc.Number).
				Msg("document without journal")
		}
	}

	return reports, firstErr
}
