package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/gobooks/internal/domain"
)

// Metrics holds all Prometheus metrics and implements usecase.Metrics.
type Metrics struct {
	// Ledger metrics
	JournalsPosted       *prometheus.CounterVec
	LedgerPostingFailure *prometheus.CounterVec
	Recalculations       *prometheus.CounterVec

	// Subledger metrics
	PaymentsRecorded    *prometheus.CounterVec
	DocumentTransitions *prometheus.CounterVec

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	RateLimitHits *prometheus.CounterVec

	// Background metrics
	OutboxPublished prometheus.Counter
	OutboxErrors    prometheus.Counter
	TasksProcessed  *prometheus.CounterVec
}

// New creates and registers all metrics with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		JournalsPosted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gobooks_journals_posted_total",
			Help: "Total number of journals posted",
		}, []string{"source"}),
		LedgerPostingFailure: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gobooks_ledger_posting_failures_total",
			Help: "Document transitions whose journal could not be posted",
		}, []string{"kind"}),
		Recalculations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gobooks_balance_recalculations_total",
			Help: "Account balance recalculations by outcome",
		}, []string{"outcome"}),
		PaymentsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gobooks_payments_recorded_total",
			Help: "Total number of payments recorded",
		}, []string{"kind"}),
		DocumentTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gobooks_document_transitions_total",
			Help: "Bill and invoice status transitions",
		}, []string{"kind", "status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gobooks_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gobooks_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimitHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gobooks_rate_limit_hits_total",
			Help: "Requests rejected by a rate limiter",
		}, []string{"limiter"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_outbox_published_total",
			Help: "Outbox events handed to the task queue",
		}),
		OutboxErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "gobooks_outbox_errors_total",
			Help: "Outbox events that failed to publish",
		}),
		TasksProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gobooks_tasks_processed_total",
			Help: "Background tasks processed by type and outcome",
		}, []string{"type", "outcome"}),
	}
}

func (m *Metrics) JournalPosted(source domain.JournalSource) {
	m.JournalsPosted.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) LedgerPostingFailed(kind domain.DocumentKind) {
	m.LedgerPostingFailure.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) BalancesRecalculated(succeeded, failed int) {
	m.Recalculations.WithLabelValues("ok").Add(float64(succeeded))
	m.Recalculations.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) PaymentRecorded(kind domain.DocumentKind) {
	m.PaymentsRecorded.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) DocumentTransitioned(kind domain.DocumentKind, status domain.DocumentStatus) {
	m.DocumentTransitions.WithLabelValues(string(kind), string(status)).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited(limiter string) {
	m.RateLimitHits.WithLabelValues(limiter).Inc()
}

// TaskProcessed counts one handled background task.
func (m *Metrics) TaskProcessed(taskType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.TasksProcessed.WithLabelValues(taskType, outcome).Inc()
}

func (m *Metrics) OutboxPublishedInc() { m.OutboxPublished.Inc() }
func (m *Metrics) OutboxErrorInc()     { m.OutboxErrors.Inc() }
