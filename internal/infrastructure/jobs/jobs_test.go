package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
	"github.com/iho/gobooks/internal/usecase/mocks"
)

type recordingNotifier struct {
	eventType string
	payload   map[string]any
	err       error
}

func (n *recordingNotifier) Notify(_ context.Context, eventType string, payload map[string]any) error {
	n.eventType = eventType
	n.payload = payload
	return n.err
}

type countingMetrics struct {
	ok, failed int
}

func (m *countingMetrics) TaskProcessed(_ string, err error) {
	if err != nil {
		m.failed++
		return
	}
	m.ok++
}

func sampleEvent() *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:             "evt-1",
		OrganizationID: "org-1",
		AggregateID:    "inv-1",
		AggregateType:  "invoice",
		EventType:      domain.EventTypeInvoiceSent,
		Payload:        map[string]any{"number": "INV-2025-0001"},
		CreatedAt:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewEventTask(t *testing.T) {
	task, err := NewEventTask(sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TypeEventNotify {
		t.Fatalf("unexpected type %s", task.Type())
	}

	var payload EventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.EventID != "evt-1" || payload.EventType != domain.EventTypeInvoiceSent || payload.Payload["number"] != "INV-2025-0001" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestEventHandlerForwardsToNotifier(t *testing.T) {
	notifier := &recordingNotifier{}
	metrics := &countingMetrics{}
	h := &EventHandler{Notifier: notifier, Logger: zerolog.Nop(), Metrics: metrics}

	task, err := NewEventTask(sampleEvent())
	if err != nil {
		t.Fatalf("task: %v", err)
	}

	if err := h.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if notifier.eventType != domain.EventTypeInvoiceSent {
		t.Fatalf("unexpected event type %s", notifier.eventType)
	}
	if notifier.payload["organization_id"] != "org-1" || notifier.payload["number"] != "INV-2025-0001" {
		t.Fatalf("unexpected payload %v", notifier.payload)
	}
	if metrics.ok != 1 {
		t.Fatalf("expected one successful task, got %+v", metrics)
	}
}

func TestEventHandlerErrors(t *testing.T) {
	t.Run("bad payload skips retry", func(t *testing.T) {
		h := &EventHandler{Notifier: &recordingNotifier{}, Logger: zerolog.Nop()}
		err := h.Handle(context.Background(), asynq.NewTask(TypeEventNotify, []byte("{")))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("expected SkipRetry, got %v", err)
		}
	})

	t.Run("notifier failure is retried", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mocks.NewMockNotifier(ctrl)
		notifier.EXPECT().
			Notify(gomock.Any(), domain.EventTypeInvoiceSent, gomock.Any()).
			Return(errors.New("smtp down")).
			Times(1)

		metrics := &countingMetrics{}
		h := &EventHandler{Notifier: notifier, Logger: zerolog.Nop(), Metrics: metrics}
		task, _ := NewEventTask(sampleEvent())

		err := h.Handle(context.Background(), task)
		if err == nil || errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("expected retryable error, got %v", err)
		}
		if metrics.failed != 1 {
			t.Fatalf("expected one failed task, got %+v", metrics)
		}
	})
}

type stubReconciler struct {
	reports map[string]*usecase.ReconciliationReport
	errs    map[string]error
	calls   []string
}

func (s *stubReconciler) GenerateReconciliationReport(_ context.Context, scope domain.Scope) (*usecase.ReconciliationReport, error) {
	s.calls = append(s.calls, scope.OrganizationID)
	if err := s.errs[scope.OrganizationID]; err != nil {
		return nil, err
	}
	if r, ok := s.reports[scope.OrganizationID]; ok {
		return r, nil
	}
	return &usecase.ReconciliationReport{OrganizationID: scope.OrganizationID, LedgerConsistent: true}, nil
}

type stubOrganizations []string

func (s stubOrganizations) OrganizationIDs(context.Context) ([]string, error) {
	return s, nil
}

func TestReconcileHandlerAllOrganizations(t *testing.T) {
	var buf bytes.Buffer
	reconciler := &stubReconciler{
		reports: map[string]*usecase.ReconciliationReport{
			"org-2": {
				OrganizationID:   "org-2",
				TotalAccounts:    5,
				LedgerConsistent: true,
				Discrepancies: []*usecase.ReconciliationResult{{
					AccountID:         "acc-1",
					Code:              "1200",
					RecordedBalance:   decimal.NewFromInt(75),
					CalculatedBalance: decimal.NewFromInt(100),
				}},
			},
		},
	}
	h := &ReconcileHandler{
		Reconciler:    reconciler,
		Organizations: stubOrganizations{"org-1", "org-2"},
		Logger:        zerolog.New(&buf),
	}

	task, err := NewReconcileTask("")
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := h.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if strings.Join(reconciler.calls, ",") != "org-1,org-2" {
		t.Fatalf("unexpected calls %v", reconciler.calls)
	}
	if !strings.Contains(buf.String(), "account balance drift") || !strings.Contains(buf.String(), `"recorded":"75.00"`) {
		t.Fatalf("expected drift to be logged, got %s", buf.String())
	}
}

func TestReconcileHandlerSingleOrganizationContinuesPastFailures(t *testing.T) {
	reconciler := &stubReconciler{errs: map[string]error{"org-1": errors.New("db down")}}
	h := &ReconcileHandler{Reconciler: reconciler, Logger: zerolog.Nop()}

	reports, err := h.Run(context.Background(), []string{"org-1", "org-2"})
	if err == nil || !strings.Contains(err.Error(), "org-1") {
		t.Fatalf("expected first error to name org-1, got %v", err)
	}
	if len(reports) != 1 || reports[0].OrganizationID != "org-2" {
		t.Fatalf("expected org-2 report, got %+v", reports)
	}

	task, _ := NewReconcileTask("org-2")
	if err := h.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if reconciler.calls[len(reconciler.calls)-1] != "org-2" {
		t.Fatalf("expected org-2 to be reconciled, got %v", reconciler.calls)
	}
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func TestClientPublish(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClient(enq)

	if err := client.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(enq.tasks) != 1 || enq.tasks[0].Type() != TypeEventNotify {
		t.Fatalf("unexpected tasks %+v", enq.tasks)
	}

	enq.err = asynq.ErrTaskIDConflict
	if err := client.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("duplicate publish should succeed, got %v", err)
	}

	enq.err = errors.New("redis down")
	if err := client.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected enqueue error")
	}
}

func TestClientEnqueueReconcile(t *testing.T) {
	enq := &fakeEnqueuer{}
	id, err := NewClient(enq).EnqueueReconcile(context.Background(), "org-1")
	if err != nil || id != "task-1" {
		t.Fatalf("unexpected result %q, %v", id, err)
	}
	if enq.tasks[0].Type() != TypeReconcile {
		t.Fatalf("unexpected task type %s", enq.tasks[0].Type())
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(zerolog.New(&buf))

	if err := n.Notify(context.Background(), domain.EventTypeBillApproved, map[string]any{"document_id": "bill-1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(buf.String(), `"event_type":"bill.approved"`) || !strings.Contains(buf.String(), `"document_id":"bill-1"`) {
		t.Fatalf("unexpected log %s", buf.String())
	}
}

func TestNewWorkerRequiresRedis(t *testing.T) {
	if _, err := NewWorker(WorkerConfig{}); err == nil {
		t.Fatalf("expected error without redis options")
	}
}
