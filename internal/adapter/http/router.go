package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/gobooks/internal/adapter/http/handler"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// Observer receives HTTP and rate limiter metrics.
type Observer interface {
	middleware.HTTPObserver
	middleware.LimitObserver
}

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler        *handler.AccountHandler
	JournalHandler        *handler.JournalHandler
	PeriodHandler         *handler.PeriodHandler
	BillHandler           *handler.BillHandler
	BillPaymentHandler    *handler.PaymentHandler
	InvoiceHandler        *handler.InvoiceHandler
	InvoicePaymentHandler *handler.PaymentHandler
	ReportHandler         *handler.ReportHandler
	ReconciliationHandler *handler.ReconciliationHandler
	SequenceHandler       *handler.SequenceHandler
	ActivityHandler       *handler.ActivityHandler
	HealthHandler         *handler.HealthHandler

	Logger zerolog.Logger

	// TokenVerifier enables bearer authentication. Nil trusts the tenant
	// headers.
	TokenVerifier middleware.TokenVerifier

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	RateLimiter *middleware.RateLimiter
	// ReportLimit caps report requests per organization per minute. Zero
	// disables it.
	ReportLimit int

	Observer       Observer
	MetricsHandler http.Handler
	SSLRedirect    bool
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecureHeaders(cfg.SSLRedirect, cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Observer != nil {
		r.Use(middleware.Metrics(cfg.Observer))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	viewer := middleware.RequireRole(domain.RoleViewer)
	clerk := middleware.RequireRole(domain.RoleClerk)
	approver := middleware.RequireRole(domain.RoleApprover)
	admin := middleware.RequireRole(domain.RoleAdmin)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.TokenVerifier))

		// Idempotency keys are scoped by organization, so this runs
		// after authentication.
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		// Chart of accounts
		r.Route("/accounts", func(r chi.Router) {
			r.With(viewer).Get("/", cfg.AccountHandler.List)
			r.With(admin).Post("/", cfg.AccountHandler.Create)
			r.With(viewer).Get("/{id}", cfg.AccountHandler.Get)
			r.With(admin).Put("/{id}", cfg.AccountHandler.Update)
			r.With(admin).Delete("/{id}", cfg.AccountHandler.Delete)
		})

		// Manual journals
		r.Route("/journals", func(r chi.Router) {
			r.With(viewer).Get("/", cfg.JournalHandler.List)
			r.With(clerk).Post("/", cfg.JournalHandler.Create)
			r.With(viewer).Get("/{id}", cfg.JournalHandler.Get)
			r.With(clerk).Put("/{id}", cfg.JournalHandler.Update)
			r.With(clerk).Delete("/{id}", cfg.JournalHandler.Delete)
			r.With(approver).Post("/{id}/post", cfg.JournalHandler.Post)
			r.With(approver).Post("/{id}/void", cfg.JournalHandler.Void)
		})

		r.Route("/periods", func(r chi.Router) {
			r.With(viewer).Get("/", cfg.PeriodHandler.List)
			r.With(admin).Post("/", cfg.PeriodHandler.Create)
			r.With(approver).Post("/{id}/close", cfg.PeriodHandler.Close)
			r.With(approver).Post("/{id}/reopen", cfg.PeriodHandler.Reopen)
		})

		// Payables
		r.Route("/bills", func(r chi.Router) {
			r.With(viewer).Get("/", cfg.BillHandler.List)
			r.With(clerk).Post("/", cfg.BillHandler.Create)
			r.With(clerk).Post("/duplicate-check", cfg.BillHandler.DuplicateCheck)
			r.With(viewer).Get("/{id}", cfg.BillHandler.Get)
			r.With(clerk).Put("/{id}", cfg.BillHandler.Update)
			r.With(clerk).Delete("/{id}", cfg.BillHandler.Delete)
			r.With(approver).Post("/{id}/status", cfg.BillHandler.UpdateStatus)
			r.With(approver).Post("/{id}/post-to-gl", cfg.BillHandler.PostToLedger)
			mountPayments(r, cfg.BillPaymentHandler, viewer, clerk)
		})

		// Receivables
		r.Route("/invoices", func(r chi.Router) {
			r.With(viewer).Get("/", cfg.InvoiceHandler.List)
			r.With(clerk).Post("/", cfg.InvoiceHandler.Create)
			r.With(viewer).Get("/{id}", cfg.InvoiceHandler.Get)
			r.With(clerk).Put("/{id}", cfg.InvoiceHandler.Update)
			r.With(clerk).Delete("/{id}", cfg.InvoiceHandler.Delete)
			r.With(approver).Post("/{id}/send", cfg.InvoiceHandler.Send)
			r.With(clerk).Post("/{id}/remind", cfg.InvoiceHandler.Remind)
			r.With(approver).Post("/{id}/cancel", cfg.InvoiceHandler.Cancel)
			r.With(approver).Post("/{id}/post-to-gl", cfg.InvoiceHandler.PostToLedger)
			mountPayments(r, cfg.InvoicePaymentHandler, viewer, clerk)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(viewer)
			if cfg.ReportLimit > 0 {
				r.Use(middleware.OrganizationLimit(cfg.ReportLimit, time.Minute, cfg.Observer))
			}
			r.Get("/trial-balance", cfg.ReportHandler.TrialBalance)
			r.Get("/income-statement", cfg.ReportHandler.IncomeStatement)
			r.Get("/balance-sheet", cfg.ReportHandler.BalanceSheet)
			r.Get("/aging", cfg.ReportHandler.Aging)
		})

		r.Route("/reconciliation", func(r chi.Router) {
			r.With(viewer).Get("/accounts", cfg.ReconciliationHandler.Accounts)
			r.With(viewer).Get("/unposted", cfg.ReconciliationHandler.Unposted)
			r.With(admin).Post("/accounts/{id}/repair", cfg.ReconciliationHandler.Repair)
		})

		r.With(clerk).Post("/sequences/{kind}", cfg.SequenceHandler.Next)
		r.With(viewer).Get("/activity/{entityType}/{entityId}", cfg.ActivityHandler.List)
	})

	return r
}

func mountPayments(r chi.Router, h *handler.PaymentHandler, read, write func(http.Handler) http.Handler) {
	r.With(read).Get("/{id}/payments", h.List)
	r.With(write).Post("/{id}/payments", h.Record)
	r.With(write).Put("/{id}/payments/{paymentId}", h.Update)
	r.With(write).Delete("/{id}/payments/{paymentId}", h.Delete)
}
