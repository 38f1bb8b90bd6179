package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/gobooks/internal/adapter/http/handler"
	apimiddleware "github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("expected secure headers, got %v", rec.Header())
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	observer := &countingObserver{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = apimiddleware.NewRateLimiter(1, 1, observer)
		cfg.Observer = observer
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
	if observer.limited["ip"] != 1 {
		t.Fatalf("expected one ip rejection, got %v", observer.limited)
	}
	if observer.routes["/health"] != 2 {
		t.Fatalf("expected both requests observed, got %v", observer.routes)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"code":"1000","name":"Cash","type":"asset"}`
	req := apiRequest(http.MethodPost, "/api/v1/accounts", body, domain.RoleAdmin)
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(store.key, "org-1:POST:") {
		t.Fatalf("expected organization scoped key, got %q", store.key)
	}
}

func TestNewRouter_RequiresOrganization(t *testing.T) {
	router := NewRouter(newRouterConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without organization, got %d", rec.Code)
	}
}

func TestNewRouter_RoleGates(t *testing.T) {
	router := NewRouter(newRouterConfig())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		role   domain.Role
		want   int
	}{
		{name: "viewer reads accounts", method: http.MethodGet, path: "/api/v1/accounts", role: domain.RoleViewer, want: http.StatusOK},
		{name: "viewer cannot create accounts", method: http.MethodPost, path: "/api/v1/accounts", body: `{}`, role: domain.RoleViewer, want: http.StatusForbidden},
		{name: "clerk cannot create accounts", method: http.MethodPost, path: "/api/v1/accounts", body: `{}`, role: domain.RoleClerk, want: http.StatusForbidden},
		{name: "clerk cannot void journals", method: http.MethodPost, path: "/api/v1/journals/j-1/void", role: domain.RoleClerk, want: http.StatusForbidden},
		{name: "viewer cannot record payments", method: http.MethodPost, path: "/api/v1/bills/b-1/payments", body: `{}`, role: domain.RoleViewer, want: http.StatusForbidden},
		{name: "approver cannot repair balances", method: http.MethodPost, path: "/api/v1/reconciliation/accounts/a-1/repair", role: domain.RoleApprover, want: http.StatusForbidden},
		{name: "unknown role", method: http.MethodGet, path: "/api/v1/accounts", role: domain.Role("owner"), want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, apiRequest(tt.method, tt.path, tt.body, tt.role))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestNewRouter_ReportLimitPerOrganization(t *testing.T) {
	observer := &countingObserver{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.ReportLimit = 1
		cfg.Observer = observer
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, apiRequest(http.MethodGet, "/api/v1/reports/trial-balance", "", domain.RoleViewer))
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
	if observer.limited["organization"] != 1 {
		t.Fatalf("expected one organization rejection, got %v", observer.limited)
	}

	// Another organization has its own allowance.
	req := apiRequest(http.MethodGet, "/api/v1/reports/trial-balance", "", domain.RoleViewer)
	req.Header.Set(apimiddleware.OrganizationHeader, "org-2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected other organization to pass, got %d", rec.Code)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "gobooks_up 1\n")
		})
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "gobooks_up") {
		t.Fatalf("unexpected metrics response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/accounts/",
		"DELETE /api/v1/accounts/{id}",
		"POST /api/v1/journals/{id}/post",
		"POST /api/v1/journals/{id}/void",
		"POST /api/v1/periods/{id}/close",
		"POST /api/v1/bills/duplicate-check",
		"POST /api/v1/bills/{id}/status",
		"POST /api/v1/bills/{id}/post-to-gl",
		"PUT /api/v1/bills/{id}/payments/{paymentId}",
		"POST /api/v1/invoices/{id}/send",
		"POST /api/v1/invoices/{id}/remind",
		"DELETE /api/v1/invoices/{id}/payments/{paymentId}",
		"GET /api/v1/reports/aging",
		"GET /api/v1/reconciliation/unposted",
		"POST /api/v1/sequences/{kind}",
		"GET /api/v1/activity/{entityType}/{entityId}",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func apiRequest(method, path, body string, role domain.Role) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.OrganizationHeader, "org-1")
	req.Header.Set(apimiddleware.ActorHeader, "user-1")
	req.Header.Set(apimiddleware.RoleHeader, string(role))
	return req
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		AccountHandler:        handler.NewAccountHandler(stubAccountService{}),
		JournalHandler:        handler.NewJournalHandler(nil),
		PeriodHandler:         handler.NewPeriodHandler(nil),
		BillHandler:           handler.NewBillHandler(nil, nil),
		BillPaymentHandler:    handler.NewPaymentHandler(nil, domain.DocumentKindBill),
		InvoiceHandler:        handler.NewInvoiceHandler(nil),
		InvoicePaymentHandler: handler.NewPaymentHandler(nil, domain.DocumentKindInvoice),
		ReportHandler:         handler.NewReportHandler(stubReportService{}),
		ReconciliationHandler: handler.NewReconciliationHandler(nil),
		SequenceHandler:       handler.NewSequenceHandler(nil),
		ActivityHandler:       handler.NewActivityHandler(nil),
		HealthHandler:         handler.NewHealthHandler(handler.PingFunc(func(context.Context) error { return nil }), nil),
		Logger:                zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type countingObserver struct {
	routes  map[string]int
	limited map[string]int
}

func (o *countingObserver) ObserveHTTP(method, route, status string, seconds float64) {
	if o.routes == nil {
		o.routes = map[string]int{}
	}
	o.routes[route]++
}

func (o *countingObserver) RateLimited(limiter string) {
	if o.limited == nil {
		o.limited = map[string]int{}
	}
	o.limited[limiter]++
}

type stubAccountService struct{}

func (stubAccountService) CreateAccount(ctx context.Context, scope domain.Scope, input usecase.CreateAccountInput) (*domain.Account, error) {
	return &domain.Account{ID: "acc", OrganizationID: scope.OrganizationID, Code: input.Code}, nil
}

func (stubAccountService) UpdateAccount(ctx context.Context, scope domain.Scope, id string, input usecase.UpdateAccountInput) (*domain.Account, error) {
	return &domain.Account{ID: id}, nil
}

func (stubAccountService) DeleteAccount(ctx context.Context, scope domain.Scope, id string) error {
	return nil
}

func (stubAccountService) GetAccount(ctx context.Context, scope domain.Scope, id string) (*domain.Account, error) {
	return &domain.Account{ID: id}, nil
}

func (stubAccountService) GetChartOfAccounts(ctx context.Context, scope domain.Scope) ([]*domain.Account, error) {
	return []*domain.Account{}, nil
}

type stubReportService struct{}

func (stubReportService) TrialBalance(ctx context.Context, scope domain.Scope, start, end *time.Time) (*domain.TrialBalance, error) {
	return &domain.TrialBalance{OrganizationID: scope.OrganizationID}, nil
}

func (stubReportService) IncomeStatement(ctx context.Context, scope domain.Scope, start, end *time.Time) (*domain.IncomeStatement, error) {
	return &domain.IncomeStatement{}, nil
}

func (stubReportService) BalanceSheet(ctx context.Context, scope domain.Scope, asOf time.Time) (*domain.BalanceSheet, error) {
	return &domain.BalanceSheet{AsOf: asOf}, nil
}

func (stubReportService) AgingReport(ctx context.Context, scope domain.Scope, kind domain.DocumentKind, asOf time.Time) (*domain.AgingReport, error) {
	return domain.BuildAgingReport(scope.OrganizationID, kind, asOf, nil), nil
}

type stubIdempotencyStore struct {
	key string
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.key = key
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}
