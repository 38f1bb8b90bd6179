package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Code                string  `json:"code" validate:"required,max=20"`
	Name                string  `json:"name" validate:"required,max=255"`
	Type                string  `json:"type" validate:"required,oneof=asset liability equity income expense"`
	AccountClass        string  `json:"account_class" validate:"max=64"`
	AllowManualJournals *bool   `json:"allow_manual_journals,omitempty"`
	ParentID            *string `json:"parent_id,omitempty"`
}

// ToUseCaseInput converts to use case input. Manual journals are allowed
// unless explicitly disabled.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	allowManual := true
	if r.AllowManualJournals != nil {
		allowManual = *r.AllowManualJournals
	}
	return usecase.CreateAccountInput{
		Code:                r.Code,
		Name:                r.Name,
		Type:                domain.AccountType(r.Type),
		AccountClass:        r.AccountClass,
		AllowManualJournals: allowManual,
		ParentID:            r.ParentID,
	}
}

// UpdateAccountRequest represents a partial account update.
type UpdateAccountRequest struct {
	Code                *string `json:"code,omitempty" validate:"omitempty,max=20"`
	Name                *string `json:"name,omitempty" validate:"omitempty,max=255"`
	AccountClass        *string `json:"account_class,omitempty" validate:"omitempty,max=64"`
	AllowManualJournals *bool   `json:"allow_manual_journals,omitempty"`
	ParentID            *string `json:"parent_id,omitempty"`
}

func (r *UpdateAccountRequest) ToUseCaseInput() usecase.UpdateAccountInput {
	return usecase.UpdateAccountInput{
		Code:                r.Code,
		Name:                r.Name,
		AccountClass:        r.AccountClass,
		AllowManualJournals: r.AllowManualJournals,
		ParentID:            r.ParentID,
	}
}

// JournalLineRequest is one journal line.
type JournalLineRequest struct {
	AccountID   string          `json:"account_id" validate:"required"`
	Description string          `json:"description" validate:"max=500"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	EntityID    *string         `json:"entity_id,omitempty"`
}

// CreateJournalRequest represents a request to create a manual journal.
type CreateJournalRequest struct {
	TransactionDate Date                 `json:"transaction_date" validate:"required"`
	PostingDate     *Date                `json:"posting_date,omitempty"`
	Description     string               `json:"description" validate:"max=1000"`
	Lines           []JournalLineRequest `json:"lines" validate:"required,min=2,dive"`
	Post            bool                 `json:"post"`
}

// ToUseCaseInput converts to use case input. Journals created over HTTP are
// always manual.
func (r *CreateJournalRequest) ToUseCaseInput() usecase.CreateJournalInput {
	return usecase.CreateJournalInput{
		TransactionDate: r.TransactionDate.Time,
		PostingDate:     r.PostingDate.Ptr(),
		Description:     r.Description,
		Source:          domain.JournalSourceManual,
		Lines:           journalLines(r.Lines),
		Post:            r.Post,
	}
}

// UpdateJournalRequest represents changes to a draft journal.
type UpdateJournalRequest struct {
	TransactionDate *Date                `json:"transaction_date,omitempty"`
	PostingDate     *Date                `json:"posting_date,omitempty"`
	Description     *string              `json:"description,omitempty" validate:"omitempty,max=1000"`
	Lines           []JournalLineRequest `json:"lines,omitempty" validate:"omitempty,min=2,dive"`
}

func (r *UpdateJournalRequest) ToUseCaseInput() usecase.UpdateJournalInput {
	return usecase.UpdateJournalInput{
		TransactionDate: r.TransactionDate.Ptr(),
		PostingDate:     r.PostingDate.Ptr(),
		Description:     r.Description,
		Lines:           journalLines(r.Lines),
	}
}

func journalLines(lines []JournalLineRequest) []usecase.JournalLineInput {
	if lines == nil {
		return nil
	}
	out := make([]usecase.JournalLineInput, len(lines))
	for i, l := range lines {
		out[i] = usecase.JournalLineInput{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			EntityID:    l.EntityID,
		}
	}
	return out
}

// CreatePeriodRequest represents a request to create an accounting period.
type CreatePeriodRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	StartDate Date   `json:"start_date" validate:"required"`
	EndDate   Date   `json:"end_date" validate:"required"`
	Closed    bool   `json:"closed"`
}

func (r *CreatePeriodRequest) ToUseCaseInput() usecase.CreatePeriodInput {
	return usecase.CreatePeriodInput{
		Name:      r.Name,
		StartDate: r.StartDate.Time,
		EndDate:   r.EndDate.Time,
		Closed:    r.Closed,
	}
}

// LineItemRequest is one document line.
type LineItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	AccountID   *string         `json:"account_id,omitempty"`
}

// TaxRequest is one tax row.
type TaxRequest struct {
	Name       string          `json:"name" validate:"required,max=100"`
	Percentage decimal.Decimal `json:"percentage"`
}

func lineItems(items []LineItemRequest) []usecase.LineItemInput {
	if items == nil {
		return nil
	}
	out := make([]usecase.LineItemInput, len(items))
	for i, item := range items {
		out[i] = usecase.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			AccountID:   item.AccountID,
		}
	}
	return out
}

func taxes(rows []TaxRequest) []usecase.TaxInput {
	if rows == nil {
		return nil
	}
	out := make([]usecase.TaxInput, len(rows))
	for i, t := range rows {
		out[i] = usecase.TaxInput{Name: t.Name, Percentage: t.Percentage}
	}
	return out
}

// CreateBillRequest represents a request to create a bill.
type CreateBillRequest struct {
	VendorID            string            `json:"vendor_id" validate:"required"`
	CurrencyID          string            `json:"currency_id" validate:"required"`
	VendorInvoiceNumber string            `json:"vendor_invoice_number" validate:"max=100"`
	IssueDate           Date              `json:"issue_date" validate:"required"`
	ReceivedDate        *Date             `json:"received_date,omitempty"`
	DueDate             *Date             `json:"due_date,omitempty"`
	PurchaseOrderID     *string           `json:"purchase_order_id,omitempty"`
	Notes               string            `json:"notes" validate:"max=2000"`
	LineItems           []LineItemRequest `json:"line_items" validate:"required,min=1,dive"`
	Taxes               []TaxRequest      `json:"taxes,omitempty" validate:"dive"`
	Status              string            `json:"status,omitempty" validate:"omitempty,oneof=draft pending approved"`
	AllowDuplicate      bool              `json:"allow_duplicate"`
}

func (r *CreateBillRequest) ToUseCaseInput() usecase.CreateBillInput {
	return usecase.CreateBillInput{
		VendorID:            r.VendorID,
		CurrencyID:          r.CurrencyID,
		VendorInvoiceNumber: r.VendorInvoiceNumber,
		IssueDate:           r.IssueDate.Time,
		ReceivedDate:        r.ReceivedDate.Ptr(),
		DueDate:             r.DueDate.Ptr(),
		PurchaseOrderID:     r.PurchaseOrderID,
		Notes:               r.Notes,
		LineItems:           lineItems(r.LineItems),
		Taxes:               taxes(r.Taxes),
		Status:              domain.DocumentStatus(r.Status),
		AllowDuplicate:      r.AllowDuplicate,
	}
}

// UpdateBillRequest represents changes to a draft bill.
type UpdateBillRequest struct {
	VendorID            *string           `json:"vendor_id,omitempty"`
	CurrencyID          *string           `json:"currency_id,omitempty"`
	VendorInvoiceNumber *string           `json:"vendor_invoice_number,omitempty" validate:"omitempty,max=100"`
	IssueDate           *Date             `json:"issue_date,omitempty"`
	ReceivedDate        *Date             `json:"received_date,omitempty"`
	DueDate             *Date             `json:"due_date,omitempty"`
	PurchaseOrderID     *string           `json:"purchase_order_id,omitempty"`
	Notes               *string           `json:"notes,omitempty" validate:"omitempty,max=2000"`
	LineItems           []LineItemRequest `json:"line_items,omitempty" validate:"omitempty,min=1,dive"`
	Taxes               []TaxRequest      `json:"taxes,omitempty" validate:"dive"`
	AllowDuplicate      bool              `json:"allow_duplicate"`
}

func (r *UpdateBillRequest) ToUseCaseInput() usecase.UpdateBillInput {
	return usecase.UpdateBillInput{
		VendorID:            r.VendorID,
		CurrencyID:          r.CurrencyID,
		VendorInvoiceNumber: r.VendorInvoiceNumber,
		IssueDate:           r.IssueDate.Ptr(),
		ReceivedDate:        r.ReceivedDate.Ptr(),
		DueDate:             r.DueDate.Ptr(),
		PurchaseOrderID:     r.PurchaseOrderID,
		Notes:               r.Notes,
		LineItems:           lineItems(r.LineItems),
		Taxes:               taxes(r.Taxes),
		AllowDuplicate:      r.AllowDuplicate,
	}
}

// BillStatusRequest moves a bill to a new status.
type BillStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved cancelled"`
}

// DuplicateCheckRequest checks for bills resembling a prospective one.
type DuplicateCheckRequest struct {
	VendorID            string          `json:"vendor_id" validate:"required"`
	VendorInvoiceNumber string          `json:"vendor_invoice_number"`
	Amount              decimal.Decimal `json:"amount"`
	BillDate            Date            `json:"bill_date" validate:"required"`
	ExcludeID           string          `json:"exclude_id,omitempty"`
}

func (r *DuplicateCheckRequest) ToQuery() domain.DuplicateQuery {
	return domain.DuplicateQuery{
		VendorID:            r.VendorID,
		VendorInvoiceNumber: r.VendorInvoiceNumber,
		Amount:              r.Amount,
		BillDate:            r.BillDate.Time,
		ExcludeID:           r.ExcludeID,
	}
}

// CreateInvoiceRequest represents a request to create an invoice.
type CreateInvoiceRequest struct {
	ClientID   string            `json:"client_id" validate:"required"`
	CurrencyID string            `json:"currency_id" validate:"required"`
	IssueDate  Date              `json:"issue_date" validate:"required"`
	DueDate    *Date             `json:"due_date,omitempty"`
	Notes      string            `json:"notes" validate:"max=2000"`
	LineItems  []LineItemRequest `json:"line_items" validate:"required,min=1,dive"`
	Taxes      []TaxRequest      `json:"taxes,omitempty" validate:"dive"`
}

func (r *CreateInvoiceRequest) ToUseCaseInput() usecase.CreateInvoiceInput {
	return usecase.CreateInvoiceInput{
		ClientID:   r.ClientID,
		CurrencyID: r.CurrencyID,
		IssueDate:  r.IssueDate.Time,
		DueDate:    r.DueDate.Ptr(),
		Notes:      r.Notes,
		LineItems:  lineItems(r.LineItems),
		Taxes:      taxes(r.Taxes),
	}
}

// UpdateInvoiceRequest represents changes to a draft invoice.
type UpdateInvoiceRequest struct {
	ClientID   *string           `json:"client_id,omitempty"`
	CurrencyID *string           `json:"currency_id,omitempty"`
	IssueDate  *Date             `json:"issue_date,omitempty"`
	DueDate    *Date             `json:"due_date,omitempty"`
	Notes      *string           `json:"notes,omitempty" validate:"omitempty,max=2000"`
	LineItems  []LineItemRequest `json:"line_items,omitempty" validate:"omitempty,min=1,dive"`
	Taxes      []TaxRequest      `json:"taxes,omitempty" validate:"dive"`
}

func (r *UpdateInvoiceRequest) ToUseCaseInput() usecase.UpdateInvoiceInput {
	return usecase.UpdateInvoiceInput{
		ClientID:   r.ClientID,
		CurrencyID: r.CurrencyID,
		IssueDate:  r.IssueDate.Ptr(),
		DueDate:    r.DueDate.Ptr(),
		Notes:      r.Notes,
		LineItems:  lineItems(r.LineItems),
		Taxes:      taxes(r.Taxes),
	}
}

// RecordPaymentRequest records a payment against a bill or invoice.
type RecordPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     Date            `json:"payment_date" validate:"required"`
	Method          string          `json:"method" validate:"max=50"`
	ReferenceNumber *string         `json:"reference_number,omitempty" validate:"omitempty,max=100"`
}

func (r *RecordPaymentRequest) ToUseCaseInput() usecase.RecordPaymentInput {
	return usecase.RecordPaymentInput{
		Amount:          r.Amount,
		PaymentDate:     r.PaymentDate.Time,
		Method:          r.Method,
		ReferenceNumber: r.ReferenceNumber,
	}
}

// UpdatePaymentRequest edits a recorded payment.
type UpdatePaymentRequest struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	PaymentDate     *Date            `json:"payment_date,omitempty"`
	Method          *string          `json:"method,omitempty" validate:"omitempty,max=50"`
	ReferenceNumber *string          `json:"reference_number,omitempty" validate:"omitempty,max=100"`
}

func (r *UpdatePaymentRequest) ToUseCaseInput() usecase.UpdatePaymentInput {
	return usecase.UpdatePaymentInput{
		Amount:          r.Amount,
		PaymentDate:     r.PaymentDate.Ptr(),
		Method:          r.Method,
		ReferenceNumber: r.ReferenceNumber,
	}
}
