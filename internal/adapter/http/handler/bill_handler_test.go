package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

type billServiceStub struct {
	createFn func(ctx context.Context, scope domain.Scope, input usecase.CreateBillInput) (*usecase.BillResult, error)
	statusFn func(ctx context.Context, scope domain.Scope, id string, status domain.DocumentStatus) (*usecase.BillResult, error)
	postFn   func(ctx context.Context, scope domain.Scope, id string) (*usecase.BillResult, error)
	listFn   func(ctx context.Context, scope domain.Scope, filter usecase.DocumentFilter) ([]*domain.Bill, error)
}

func (s *billServiceStub) CreateBill(ctx context.Context, scope domain.Scope, input usecase.CreateBillInput) (*usecase.BillResult, error) {
	return s.createFn(ctx, scope, input)
}

func (s *billServiceStub) UpdateBill(ctx context.Context, scope domain.Scope, id string, input usecase.UpdateBillInput) (*usecase.BillResult, error) {
	return nil, domain.ErrDocumentNotEditable
}

func (s *billServiceStub) DeleteBill(ctx context.Context, scope domain.Scope, id string) error {
	return nil
}

func (s *billServiceStub) UpdateBillStatus(ctx context.Context, scope domain.Scope, id string, status domain.DocumentStatus) (*usecase.BillResult, error) {
	return s.statusFn(ctx, scope, id, status)
}

func (s *billServiceStub) PostBillToLedger(ctx context.Context, scope domain.Scope, id string) (*usecase.BillResult, error) {
	return s.postFn(ctx, scope, id)
}

func (s *billServiceStub) GetBill(ctx context.Context, scope domain.Scope, id string) (*domain.Bill, error) {
	return nil, domain.ErrBillNotFound
}

func (s *billServiceStub) ListBills(ctx context.Context, scope domain.Scope, filter usecase.DocumentFilter) ([]*domain.Bill, error) {
	return s.listFn(ctx, scope, filter)
}

type duplicateCheckerStub struct {
	query domain.DuplicateQuery
}

func (s *duplicateCheckerStub) CheckForDuplicateBill(ctx context.Context, scope domain.Scope, query domain.DuplicateQuery) (*domain.DuplicateCheckResult, error) {
	s.query = query
	return &domain.DuplicateCheckResult{IsDuplicate: true, Confidence: domain.DuplicateConfidenceHigh}, nil
}

func approvedBill(id string) *domain.Bill {
	return &domain.Bill{Document: domain.Document{
		ID:        id,
		Status:    domain.DocumentStatusApproved,
		IssueDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Total:     decimal.NewFromInt(110),
		AmountDue: decimal.NewFromInt(110),
	}}
}

func TestBillHandler_CreateReturnsWarnings(t *testing.T) {
	var captured usecase.CreateBillInput
	h := NewBillHandler(&billServiceStub{
		createFn: func(ctx context.Context, scope domain.Scope, input usecase.CreateBillInput) (*usecase.BillResult, error) {
			captured = input
			return &usecase.BillResult{
				Bill:      approvedBill("bill-1"),
				Ledger:    &domain.LedgerPosting{Status: domain.LedgerPosted, JournalID: "j-1"},
				Duplicate: &domain.DuplicateCheckResult{Confidence: domain.DuplicateConfidenceMedium},
			}, nil
		},
	}, nil)

	body := `{
		"vendor_id": "vendor-1",
		"currency_id": "usd",
		"vendor_invoice_number": "V-100",
		"issue_date": "2025-03-01",
		"due_date": "2025-03-31",
		"status": "approved",
		"line_items": [{"description": "Paper", "quantity": "2", "unit_price": "50"}],
		"taxes": [{"name": "VAT", "percentage": "10"}]
	}`
	rec := serve(t, http.MethodPost, "/bills", "/bills", body, h.Create)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Status != domain.DocumentStatusApproved || captured.DueDate == nil || len(captured.Taxes) != 1 {
		t.Fatalf("unexpected input: %+v", captured)
	}

	resp := decode[dto.BillResponse](t, rec)
	if resp.Ledger == nil || resp.Ledger.JournalID != "j-1" {
		t.Fatalf("expected ledger outcome, got %+v", resp.Ledger)
	}
	if resp.Duplicate == nil || resp.Duplicate.Confidence != "medium" {
		t.Fatalf("expected duplicate warning, got %+v", resp.Duplicate)
	}
}

func TestBillHandler_CreateRejectsDuplicate(t *testing.T) {
	h := NewBillHandler(&billServiceStub{
		createFn: func(ctx context.Context, scope domain.Scope, input usecase.CreateBillInput) (*usecase.BillResult, error) {
			return nil, &usecase.DuplicateBillError{Result: &domain.DuplicateCheckResult{IsDuplicate: true, Confidence: domain.DuplicateConfidenceHigh}}
		},
	}, nil)

	rec := serve(t, http.MethodPost, "/bills", "/bills", dto.CreateBillRequest{
		VendorID:   "vendor-1",
		CurrencyID: "usd",
		IssueDate:  dto.NewDate(time.Now()),
		LineItems:  []dto.LineItemRequest{{Description: "Paper", Quantity: decimal.NewFromInt(1)}},
	}, h.Create)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestBillHandler_UpdateStatus(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		want   int
		called bool
	}{
		{name: "approve", body: `{"status":"approved"}`, want: http.StatusOK, called: true},
		{name: "illegal transition", body: `{"status":"cancelled"}`, err: &domain.TransitionError{Entity: "bill", From: "paid", To: "cancelled"}, want: http.StatusConflict, called: true},
		{name: "paid is not settable", body: `{"status":"paid"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := NewBillHandler(&billServiceStub{
				statusFn: func(ctx context.Context, scope domain.Scope, id string, status domain.DocumentStatus) (*usecase.BillResult, error) {
					called = true
					if tt.err != nil {
						return nil, tt.err
					}
					return &usecase.BillResult{Bill: approvedBill(id)}, nil
				},
			}, nil)

			rec := serve(t, http.MethodPost, "/bills/{id}/status", "/bills/bill-1/status", tt.body, h.UpdateStatus)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if called != tt.called {
				t.Fatalf("called = %v, want %v", called, tt.called)
			}
		})
	}
}

func TestBillHandler_PostToLedgerFailure(t *testing.T) {
	h := NewBillHandler(&billServiceStub{
		postFn: func(ctx context.Context, scope domain.Scope, id string) (*usecase.BillResult, error) {
			return &usecase.BillResult{
				Bill:   approvedBill(id),
				Ledger: &domain.LedgerPosting{Status: domain.LedgerFailed, Error: "database unavailable", Retryable: true},
			}, nil
		},
	}, nil)

	rec := serve(t, http.MethodPost, "/bills/{id}/post-to-gl", "/bills/bill-1/post-to-gl", nil, h.PostToLedger)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if resp := decode[dto.BillResponse](t, rec); resp.Ledger == nil || resp.Ledger.Status != "failed" {
		t.Fatalf("expected failed ledger outcome, got %+v", resp.Ledger)
	}
}

func TestBillHandler_ListFilters(t *testing.T) {
	var captured usecase.DocumentFilter
	h := NewBillHandler(&billServiceStub{
		listFn: func(ctx context.Context, scope domain.Scope, filter usecase.DocumentFilter) ([]*domain.Bill, error) {
			captured = filter
			return []*domain.Bill{approvedBill("bill-1")}, nil
		},
	}, nil)

	rec := serve(t, http.MethodGet, "/bills", "/bills?status=approved,partially_paid&vendor_id=vendor-1&limit=10", nil, h.List)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(captured.Statuses) != 2 || captured.CounterpartyID != "vendor-1" || captured.Limit != 10 {
		t.Fatalf("unexpected filter: %+v", captured)
	}
	if resp := decode[dto.ListResponse[dto.BillResponse]](t, rec); len(resp.Data) != 1 || resp.Limit != 10 {
		t.Fatalf("unexpected list: %+v", resp)
	}
}

func TestBillHandler_DuplicateCheck(t *testing.T) {
	checker := &duplicateCheckerStub{}
	h := NewBillHandler(&billServiceStub{}, checker)

	rec := serve(t, http.MethodPost, "/bills/duplicate-check", "/bills/duplicate-check",
		`{"vendor_id":"vendor-1","vendor_invoice_number":"V-1","amount":"100.00","bill_date":"2025-03-01"}`, h.DuplicateCheck)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if checker.query.VendorInvoiceNumber != "V-1" || !checker.query.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected query: %+v", checker.query)
	}
	if resp := decode[dto.DuplicateCheckResponse](t, rec); !resp.IsDuplicate {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestBillHandler_UpdateNotEditable(t *testing.T) {
	h := NewBillHandler(&billServiceStub{}, nil)

	rec := serve(t, http.MethodPut, "/bills/{id}", "/bills/bill-1", `{"notes":"late"}`, h.Update)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
